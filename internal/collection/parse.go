package collection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emkeyen/postman-to-jmx/internal/model"
)

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Document is a parsed but not yet interpreted collection. Fields stay as raw
// JSON on purpose: the loader's only contract is well-formed JSON, and every
// per-item shape anomaly is degraded locally during extraction instead of
// failing the whole document here.
type Document struct {
	Source string
	root   rawCollection
}

type Environment struct {
	Source string
	root   rawEnvironment
}

type rawCollection struct {
	Info     json.RawMessage `json:"info"`
	Item     json.RawMessage `json:"item"`
	Variable json.RawMessage `json:"variable"`
	Event    []rawEvent      `json:"event"`
}

type rawEnvironment struct {
	Name   string          `json:"name"`
	Values json.RawMessage `json:"values"`
}

type rawInfo struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

// rawItem is decoded per item so that one malformed item cannot break the
// surrounding collection. Item/Request stay raw: their presence (not their
// content) decides the folder/leaf classification.
type rawItem struct {
	Name    string          `json:"name"`
	Item    json.RawMessage `json:"item"`
	Request json.RawMessage `json:"request"`
	Event   []rawEvent      `json:"event"`
}

type rawEvent struct {
	Listen string `json:"listen"`
}

type rawRequest struct {
	Method string          `json:"method"`
	Header json.RawMessage `json:"header"`
	Body   json.RawMessage `json:"body"`
	URL    json.RawMessage `json:"url"`
}

type rawHeader struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled"`
}

type rawBody struct {
	Mode       string     `json:"mode"`
	Raw        string     `json:"raw"`
	URLEncoded []rawParam `json:"urlencoded"`
}

type rawParam struct {
	Key      string `json:"key"`
	Value    any    `json:"value"`
	Disabled bool   `json:"disabled"`
}

type rawVariable struct {
	Key      string `json:"key"`
	Value    any    `json:"value"`
	Disabled bool   `json:"disabled"`
	Enabled  *bool  `json:"enabled"`
}

type rawURL struct {
	Raw      string          `json:"raw"`
	Protocol string          `json:"protocol"`
	Host     json.RawMessage `json:"host"`
	Path     json.RawMessage `json:"path"`
	Port     json.RawMessage `json:"port"`
	Query    []rawParam      `json:"query"`
	Variable []rawParam      `json:"variable"`
}

// ParseCollection parses a collection document. The only fatal condition is
// text that is not a single well-formed JSON object.
func ParseCollection(source string, data []byte) (*Document, error) {
	var root rawCollection
	if err := jsonDecodeSingle(data, &root); err != nil {
		return nil, &ParseError{
			AppError: model.AppError{
				Code:    "COLLECTION_PARSE_ERROR",
				Message: "collection JSON 解析失败",
				Stage:   "parse_collection",
				Source:  source,
				Snippet: truncateSnippet(string(data), 200),
			},
			Cause: err,
		}
	}
	return &Document{Source: source, root: root}, nil
}

// ParseEnvironment parses an environment document (the optional variable
// override source).
func ParseEnvironment(source string, data []byte) (*Environment, error) {
	var root rawEnvironment
	if err := jsonDecodeSingle(data, &root); err != nil {
		return nil, &ParseError{
			AppError: model.AppError{
				Code:    "ENVIRONMENT_PARSE_ERROR",
				Message: "environment JSON 解析失败",
				Stage:   "parse_environment",
				Source:  source,
				Snippet: truncateSnippet(string(data), 200),
			},
			Cause: err,
		}
	}
	return &Environment{Source: source, root: root}, nil
}

func jsonDecodeSingle(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(out); err != nil {
		return err
	}

	// Reject trailing content to keep behavior deterministic.
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return errors.New("multiple JSON documents are not allowed")
	} else if !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
