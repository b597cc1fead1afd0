package collection

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCollection_Valid(t *testing.T) {
	data := []byte(`{
		"info": {"name": "API", "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"},
		"item": [{"name": "r", "request": {"url": "http://example.com"}}],
		"variable": [{"key": "host", "value": "example.com"}]
	}`)
	if err := ValidateCollection("ok.json", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCollection_MissingInfo(t *testing.T) {
	err := ValidateCollection("bad.json", []byte(`{"item": []}`))
	if err == nil {
		t.Fatalf("expected error")
	}

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if pe.AppError.Code != "COLLECTION_SCHEMA_ERROR" {
		t.Fatalf("code = %q, want COLLECTION_SCHEMA_ERROR", pe.AppError.Code)
	}
	if pe.AppError.Stage != "validate_collection" {
		t.Fatalf("stage = %q, want validate_collection", pe.AppError.Stage)
	}
	if pe.AppError.Hint == "" {
		t.Fatalf("hint is empty, want violation details")
	}
}

func TestValidateCollection_ItemMustBeArrayOfObjects(t *testing.T) {
	err := ValidateCollection("bad.json", []byte(`{"info": {"name": "x"}, "item": ["nope"]}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if pe.AppError.Code != "COLLECTION_SCHEMA_ERROR" {
		t.Fatalf("code = %q, want COLLECTION_SCHEMA_ERROR", pe.AppError.Code)
	}
}

func TestValidateCollection_HintCapsAtThreeViolations(t *testing.T) {
	err := ValidateCollection("bad.json", []byte(`{
		"item": "x",
		"variable": [{"value": 1}, {"value": 2}, {"value": 3}, {"value": 4}]
	}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if n := strings.Count(pe.AppError.Hint, ";"); n > 2 {
		t.Fatalf("hint carries %d separators, want at most 2: %q", n, pe.AppError.Hint)
	}
}
