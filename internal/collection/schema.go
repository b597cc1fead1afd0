package collection

import (
	"strings"

	"github.com/emkeyen/postman-to-jmx/internal/model"
	"github.com/xeipuuv/gojsonschema"
)

// collectionSchema is the minimum shape a Postman v2 collection must have
// before extraction is worth attempting. Strict mode only; the default path
// stays lenient so half-broken exports still convert.
const collectionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["info", "item"],
  "properties": {
    "info": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string"},
        "schema": {"type": "string"}
      }
    },
    "item": {
      "type": "array",
      "items": {"type": "object"}
    },
    "variable": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["key"],
        "properties": {
          "key": {"type": "string"},
          "disabled": {"type": "boolean"}
        }
      }
    }
  }
}`

// ValidateCollection checks data against the embedded collection schema.
// Callers opt in via --strict / strict=1; a failure is fatal for the run.
func ValidateCollection(source string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(collectionSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return &ParseError{
			AppError: model.AppError{
				Code:    "COLLECTION_PARSE_ERROR",
				Message: "collection JSON 解析失败",
				Stage:   "validate_collection",
				Source:  source,
			},
			Cause: err,
		}
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
		if len(details) == 3 {
			break
		}
	}
	return &ParseError{
		AppError: model.AppError{
			Code:    "COLLECTION_SCHEMA_ERROR",
			Message: "collection 不符合 Postman v2 最小结构",
			Stage:   "validate_collection",
			Source:  source,
			Hint:    strings.Join(details, "; "),
		},
	}
}
