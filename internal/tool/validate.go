package tool

import (
	"encoding/json"
	"fmt"
)

// ValidationResult separates blocking errors from advisory warnings. A
// document with warnings only is still saveable.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the document passed with no hard errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate applies the structural rule set to a raw document of either
// dialect. The dialect is decided first: a record carrying binding.openapi is
// checked against the bound rules only, never against the generic OpenAPI
// field rules, so a valid bound record is never misreported as missing
// "openapi" or "info".
//
// This is a structural gate, not a JSON-Schema validator: no per-parameter or
// per-schema-type checks are performed.
func Validate(data []byte) ValidationResult {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return ValidationResult{Errors: []string{fmt.Sprintf("document is not valid JSON: %v", err)}}
	}
	if IsBoundDialect(data) {
		return validateBound(root)
	}
	return validateOpenAPI(root)
}

func validateBound(root map[string]any) ValidationResult {
	var r ValidationResult

	binding, _ := root["binding"].(map[string]any)
	oapi, _ := binding["openapi"].(map[string]any)
	if s, _ := oapi["http_method"].(string); s == "" {
		r.Errors = append(r.Errors, "binding.openapi.http_method is required")
	}
	if s, _ := oapi["http_path"].(string); s == "" {
		r.Errors = append(r.Errors, "binding.openapi.http_path is required")
	}

	if _, ok := root["input_schema"].(map[string]any); !ok {
		r.Errors = append(r.Errors, "input_schema is required for WxO tools")
	}

	name, _ := root["name"].(string)
	displayName, _ := root["display_name"].(string)
	if name == "" && displayName == "" {
		r.Errors = append(r.Errors, "one of name or display_name is required")
	}
	return r
}

func validateOpenAPI(root map[string]any) ValidationResult {
	var r ValidationResult

	switch v := root["openapi"].(type) {
	case nil:
		r.Errors = append(r.Errors, "Missing required field: openapi")
	case string:
		// ok
	default:
		r.Errors = append(r.Errors, fmt.Sprintf("openapi must be a string, got %T", v))
	}

	info, hasInfo := root["info"].(map[string]any)
	if !hasInfo {
		r.Errors = append(r.Errors, "Missing required field: info")
	} else {
		if s, _ := info["title"].(string); s == "" {
			r.Errors = append(r.Errors, "Missing required field: info.title")
		}
		// Version absence alone must not block a save.
		if s, _ := info["version"].(string); s == "" {
			r.Warnings = append(r.Warnings, "info.version is recommended")
		}
	}

	if paths, present := root["paths"]; present {
		switch paths.(type) {
		case map[string]any:
			// ok
		default:
			r.Errors = append(r.Errors, "paths must be an object")
		}
	}

	if servers, present := root["servers"]; present {
		if _, ok := servers.([]any); !ok {
			r.Errors = append(r.Errors, "servers must be an array")
		}
	}
	return r
}
