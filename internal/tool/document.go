package tool

import (
	"encoding/json"

	"github.com/wxo-labs/studio/internal/oas"
	"github.com/wxo-labs/studio/internal/studioerr"
)

// Kind discriminates the two tool dialects.
type Kind int

const (
	// KindOpenAPI marks a plain OpenAPI document.
	KindOpenAPI Kind = iota
	// KindBound marks the vendor bound-tool record.
	KindBound
)

// Document is the tagged union over the two dialects describing the same
// logical tool. Exactly one variant is active; the discriminant is decided
// once at the boundary (Detect) and never re-sniffed downstream.
type Document struct {
	Kind    Kind
	OpenAPI *oas.Document
	Bound   *Bound
}

// dialectProbe sniffs only the discriminating field.
type dialectProbe struct {
	Binding struct {
		OpenAPI json.RawMessage `json:"openapi"`
	} `json:"binding"`
}

// IsBoundDialect reports whether raw JSON carries a binding.openapi object,
// i.e. is a bound-tool record rather than plain OpenAPI.
func IsBoundDialect(data []byte) bool {
	var probe dialectProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return len(probe.Binding.OpenAPI) > 0 && string(probe.Binding.OpenAPI) != "null"
}

// Detect parses raw JSON into the appropriate variant. Malformed JSON yields
// a ParseError; the caller decides whether that blocks the current action.
func Detect(data []byte) (*Document, error) {
	if IsBoundDialect(data) {
		var b Bound
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, &studioerr.ParseError{Msg: "bound tool record", Err: err}
		}
		return &Document{Kind: KindBound, Bound: &b}, nil
	}
	doc, err := oas.Parse(data)
	if err != nil {
		return nil, err
	}
	return &Document{Kind: KindOpenAPI, OpenAPI: doc}, nil
}

// Marshal serializes the active variant back to indented JSON for the editor.
func (d *Document) Marshal() ([]byte, error) {
	switch d.Kind {
	case KindBound:
		return json.MarshalIndent(d.Bound, "", "  ")
	default:
		return json.MarshalIndent(d.OpenAPI, "", "  ")
	}
}
