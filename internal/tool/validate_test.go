package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDialectRouting(t *testing.T) {
	t.Parallel()
	// Bound record with a non-object input_schema: exactly the WxO error, and
	// never the generic OpenAPI field errors.
	doc := []byte(`{
		"name": "t",
		"binding": {"openapi": {"http_method": "GET", "http_path": "/x"}},
		"input_schema": "not an object"
	}`)
	r := Validate(doc)
	require.Equal(t, []string{"input_schema is required for WxO tools"}, r.Errors)
	assert.NotContains(t, r.Errors, "Missing required field: openapi")
}

func TestValidateBoundMissingBindingFields(t *testing.T) {
	t.Parallel()
	doc := []byte(`{
		"display_name": "My Tool",
		"binding": {"openapi": {"connection_id": "c1"}},
		"input_schema": {"type": "object", "properties": {}}
	}`)
	r := Validate(doc)
	assert.Contains(t, r.Errors, "binding.openapi.http_method is required")
	assert.Contains(t, r.Errors, "binding.openapi.http_path is required")
}

func TestValidateBoundNeedsAName(t *testing.T) {
	t.Parallel()
	doc := []byte(`{
		"binding": {"openapi": {"http_method": "GET", "http_path": "/x"}},
		"input_schema": {"type": "object"}
	}`)
	r := Validate(doc)
	assert.Contains(t, r.Errors, "one of name or display_name is required")

	withDisplay := []byte(`{
		"display_name": "Named",
		"binding": {"openapi": {"http_method": "GET", "http_path": "/x"}},
		"input_schema": {"type": "object"}
	}`)
	assert.True(t, Validate(withDisplay).OK())
}

func TestValidateOpenAPIRules(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`{}`))
	assert.Contains(t, r.Errors, "Missing required field: openapi")
	assert.Contains(t, r.Errors, "Missing required field: info")

	r = Validate([]byte(`{"openapi": 3, "info": {"title": "T", "version": "1.0"}}`))
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "openapi must be a string")

	r = Validate([]byte(`{"openapi": "3.0.0", "info": {}}`))
	assert.Contains(t, r.Errors, "Missing required field: info.title")
}

func TestValidateVersionIsAWarningNotAnError(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`{"openapi": "3.0.0", "info": {"title": "T"}}`))
	assert.True(t, r.OK())
	assert.Contains(t, r.Warnings, "info.version is recommended")
}

func TestValidateShapeChecks(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`{"openapi": "3.0.0", "info": {"title": "T", "version": "1"}, "paths": ["/a"]}`))
	assert.Contains(t, r.Errors, "paths must be an object")

	r = Validate([]byte(`{"openapi": "3.0.0", "info": {"title": "T", "version": "1"}, "servers": {"url": "x"}}`))
	assert.Contains(t, r.Errors, "servers must be an array")
}

func TestValidateMalformedJSON(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`{`))
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "not valid JSON")
}

func TestIsBoundDialect(t *testing.T) {
	t.Parallel()
	assert.True(t, IsBoundDialect([]byte(`{"binding":{"openapi":{"http_method":"GET"}}}`)))
	assert.False(t, IsBoundDialect([]byte(`{"openapi":"3.0.0"}`)))
	assert.False(t, IsBoundDialect([]byte(`{"binding":{"openapi":null}}`)))
}
