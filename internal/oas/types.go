// Package oas models single-operation OpenAPI documents, builds them from
// observed HTTP traffic, and imports externally authored specs.
//
// The model is deliberately tolerant: documents arrive from templates, file
// imports, remote records, and live generation, and may be partial or
// inconsistent at every step. Unknown fields are dropped on parse rather than
// rejected.
package oas

import (
	"bytes"
	"encoding/json"

	"github.com/wxo-labs/studio/internal/security"
	"github.com/wxo-labs/studio/internal/studioerr"
)

// Document is the OpenAPI variant of a tool definition.
type Document struct {
	OpenAPI    string                `json:"openapi"`
	Info       Info                  `json:"info"`
	Servers    []Server              `json:"servers,omitempty"`
	Paths      Paths                 `json:"paths,omitempty"`
	Components *Components           `json:"components,omitempty"`
	Security   []SecurityRequirement `json:"security,omitempty"`

	// XSecurity is the vendor extension carrying pre-resolved binding
	// security. When present it wins over per-operation security refs.
	XSecurity []security.Declaration `json:"x-security,omitempty"`
}

// Info mirrors the OpenAPI info object.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Server is one base URL entry.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// SecurityRequirement references named schemes in components.securitySchemes.
type SecurityRequirement map[string][]string

// Components holds the subset of OpenAPI components this toolkit uses.
type Components struct {
	SecuritySchemes map[string]security.Declaration `json:"securitySchemes,omitempty"`
}

// PathItem declares per-method operations for one path.
type PathItem struct {
	Get     *Operation `json:"get,omitempty"`
	Post    *Operation `json:"post,omitempty"`
	Put     *Operation `json:"put,omitempty"`
	Delete  *Operation `json:"delete,omitempty"`
	Patch   *Operation `json:"patch,omitempty"`
	Head    *Operation `json:"head,omitempty"`
	Options *Operation `json:"options,omitempty"`
	Trace   *Operation `json:"trace,omitempty"`
}

// MethodOrder is the canonical iteration order used wherever "first declared
// method" must be stable.
var MethodOrder = []string{"get", "post", "put", "delete", "patch", "head", "options", "trace"}

// Operations returns the declared operations in canonical method order.
func (p *PathItem) Operations() []MethodOperation {
	if p == nil {
		return nil
	}
	byMethod := map[string]*Operation{
		"get": p.Get, "post": p.Post, "put": p.Put, "delete": p.Delete,
		"patch": p.Patch, "head": p.Head, "options": p.Options, "trace": p.Trace,
	}
	var out []MethodOperation
	for _, m := range MethodOrder {
		if op := byMethod[m]; op != nil {
			out = append(out, MethodOperation{Method: m, Operation: op})
		}
	}
	return out
}

// MethodOperation pairs an HTTP method with its operation.
type MethodOperation struct {
	Method    string
	Operation *Operation
}

// Operation is a single OpenAPI operation.
type Operation struct {
	OperationID string                `json:"operationId,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Description string                `json:"description,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"`
	Responses   map[string]*Response  `json:"responses,omitempty"`
	Security    []SecurityRequirement `json:"security,omitempty"`
}

// Response is one response entry.
type Response struct {
	Description string                `json:"description,omitempty"`
	Content     map[string]*MediaType `json:"content,omitempty"`
}

// MediaType keeps the response schema raw so arbitrary generated or
// hand-edited schemas survive a round trip untouched.
type MediaType struct {
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Parameter is one declared request parameter.
type Parameter struct {
	Name        string       `json:"name"`
	In          string       `json:"in"`
	Required    bool         `json:"required,omitempty"`
	Description string       `json:"description,omitempty"`
	Schema      *ParamSchema `json:"schema,omitempty"`
}

// ParamSchema is the scalar schema attached to a parameter.
type ParamSchema struct {
	Type    string `json:"type,omitempty"`
	Default any    `json:"default,omitempty"`
	Title   string `json:"title,omitempty"`
	Enum    []any  `json:"enum,omitempty"`
}

// JSONResponseSchema returns the 200/application/json schema of op, or nil.
func (op *Operation) JSONResponseSchema() (json.RawMessage, *Response) {
	if op == nil {
		return nil, nil
	}
	resp := op.Responses["200"]
	if resp == nil {
		return nil, nil
	}
	mt := resp.Content["application/json"]
	if mt == nil {
		return nil, resp
	}
	return mt.Schema, resp
}

// FirstOperation selects the first declared path and, within it, the first
// method in canonical order. Later paths and methods are ignored: the bound
// tool format supports exactly one operation per tool.
func (d *Document) FirstOperation() (path, method string, op *Operation, ok bool) {
	for _, p := range d.Paths.Keys() {
		item := d.Paths.Get(p)
		ops := item.Operations()
		if len(ops) == 0 {
			continue
		}
		return p, ops[0].Method, ops[0].Operation, true
	}
	return "", "", nil, false
}

// Parse decodes a JSON document into the OpenAPI variant model. Malformed
// JSON yields a ParseError; structurally odd but well-formed JSON parses into
// whatever fields it can fill.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &studioerr.ParseError{Msg: "openapi document", Err: err}
	}
	return &doc, nil
}

// Paths is an ordered path→item mapping. JSON objects carry declaration
// order, and "first declared path" is load-bearing for compilation, so a
// plain map will not do.
type Paths struct {
	keys  []string
	items map[string]*PathItem
}

// NewPaths builds an ordered path set from pairs.
func NewPaths(pairs ...PathEntry) Paths {
	var p Paths
	for _, e := range pairs {
		p.Set(e.Path, e.Item)
	}
	return p
}

// PathEntry pairs a path with its item for construction.
type PathEntry struct {
	Path string
	Item *PathItem
}

// Set appends or replaces a path entry, preserving first-seen order.
func (p *Paths) Set(path string, item *PathItem) {
	if p.items == nil {
		p.items = make(map[string]*PathItem)
	}
	if _, exists := p.items[path]; !exists {
		p.keys = append(p.keys, path)
	}
	p.items[path] = item
}

// Get returns the item for path, or nil.
func (p *Paths) Get(path string) *PathItem {
	if p.items == nil {
		return nil
	}
	return p.items[path]
}

// Keys returns paths in declaration order.
func (p *Paths) Keys() []string { return p.keys }

// Len reports the number of declared paths.
func (p *Paths) Len() int { return len(p.keys) }

// MarshalJSON emits paths in declaration order.
func (p Paths) MarshalJSON() ([]byte, error) {
	if len(p.keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		item, err := json.Marshal(p.items[k])
		if err != nil {
			return nil, err
		}
		buf.Write(item)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes paths preserving declaration order.
func (p *Paths) UnmarshalJSON(data []byte) error {
	p.keys = nil
	p.items = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		// Tolerate null; anything else is a structural problem the validator
		// reports separately.
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var item PathItem
		if err := dec.Decode(&item); err != nil {
			return err
		}
		p.Set(key, &item)
	}
	_, err = dec.Token()
	return err
}
