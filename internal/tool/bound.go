// Package tool defines the vendor bound-tool record, the tagged union over
// the two tool dialects, the OpenAPI→bound compiler, and the structural
// validator that gates saves.
package tool

import (
	"bytes"
	"encoding/json"

	"github.com/wxo-labs/studio/internal/security"
)

// Permission values accepted by the remote service.
const (
	PermissionReadWrite = "read_write"
	PermissionReadOnly  = "read_only"
)

// Bound is the vendor-specific persisted tool record.
type Bound struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name,omitempty"`
	DisplayName  string          `json:"display_name,omitempty"`
	Description  string          `json:"description,omitempty"`
	Permission   string          `json:"permission,omitempty"`
	Restrictions json.RawMessage `json:"restrictions,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Binding      Binding         `json:"binding"`
	InputSchema  *InputSchema    `json:"input_schema,omitempty"`
	OutputSchema map[string]any  `json:"output_schema,omitempty"`
}

// Binding wraps the concrete invocation description.
type Binding struct {
	OpenAPI *OpenAPIBinding `json:"openapi,omitempty"`
}

// OpenAPIBinding describes the HTTP operation actually invoked.
type OpenAPIBinding struct {
	HTTPMethod   string                 `json:"http_method"`
	HTTPPath     string                 `json:"http_path"`
	Servers      []string               `json:"servers,omitempty"`
	Security     []security.Declaration `json:"security,omitempty"`
	ConnectionID string                 `json:"connection_id,omitempty"`
}

// InputSchema is the JSON-Schema-shaped input declaration. Property keys must
// be unique across all parameters regardless of their `in` location.
type InputSchema struct {
	Type       string      `json:"type"`
	Properties PropertyMap `json:"properties"`
	Required   []string    `json:"required,omitempty"`
}

// InputProperty is one input_schema property. In and AliasName are
// non-standard extensions the vendor format requires: In preserves the wire
// location, AliasName the true wire name when the property key had to be
// disambiguated.
type InputProperty struct {
	Type        string `json:"type,omitempty"`
	In          string `json:"in,omitempty"`
	AliasName   string `json:"aliasName,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// WireName returns the parameter name used on the wire: the alias when the
// property key was prefixed, else the key itself.
func (p *InputProperty) WireName(key string) string {
	if p != nil && p.AliasName != "" {
		return p.AliasName
	}
	return key
}

// PropertyMap is an ordered key→property mapping. Parameter order drives the
// editable table, so declaration order must survive JSON round trips.
type PropertyMap struct {
	keys  []string
	props map[string]*InputProperty
}

// Set appends or replaces a property, preserving first-seen order.
func (m *PropertyMap) Set(key string, p *InputProperty) {
	if m.props == nil {
		m.props = make(map[string]*InputProperty)
	}
	if _, exists := m.props[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.props[key] = p
}

// Get returns the property for key, or nil.
func (m *PropertyMap) Get(key string) *InputProperty {
	if m.props == nil {
		return nil
	}
	return m.props[key]
}

// Keys returns property keys in declaration order.
func (m *PropertyMap) Keys() []string { return m.keys }

// Len reports the number of properties.
func (m *PropertyMap) Len() int { return len(m.keys) }

// MarshalJSON emits properties in declaration order.
func (m PropertyMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		prop, err := json.Marshal(m.props[k])
		if err != nil {
			return nil, err
		}
		buf.Write(prop)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes properties preserving declaration order.
func (m *PropertyMap) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.props = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var prop InputProperty
		if err := dec.Decode(&prop); err != nil {
			return err
		}
		m.Set(key, &prop)
	}
	_, err = dec.Token()
	return err
}
