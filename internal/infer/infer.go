// Package infer derives JSON-Schema-like structures from example JSON values.
//
// The inferencer is total: any input, including malformed JSON, yields a usable
// schema (defaulting to {type: string}). Object key order is preserved by
// walking the raw bytes with a token decoder instead of decoding into a map.
package infer

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Schema is a minimal JSON-Schema shape sufficient for generated tool
// definitions. Properties keep the order of the sampled document.
type Schema struct {
	Type        string
	Nullable    bool
	Description string
	Items       *Schema
	Properties  []Property
}

// Property is a named member of an object schema.
type Property struct {
	Name   string
	Schema *Schema
}

// previewLen and previewThreshold control the synthesized description added to
// long string values so generated schemas stay reviewable by a human.
const (
	previewThreshold = 10
	previewLen       = 30
)

// Infer derives a schema from a raw JSON value. It never fails: inputs that do
// not parse are treated as plain strings.
func Infer(raw json.RawMessage) *Schema {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	s, err := decodeValue(dec)
	if err != nil || s == nil {
		return &Schema{Type: "string"}
	}
	return s
}

// InferValue derives a schema from an already-decoded JSON value.
func InferValue(v any) *Schema {
	raw, err := json.Marshal(v)
	if err != nil {
		return &Schema{Type: "string"}
	}
	return Infer(raw)
}

func decodeValue(dec *json.Decoder) (*Schema, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return &Schema{Type: "string"}, nil
	case string:
		return &Schema{Type: "string"}, nil
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return &Schema{Type: "integer"}, nil
		}
		return &Schema{Type: "number"}, nil
	case bool:
		return &Schema{Type: "boolean"}, nil
	case nil:
		// A null sample carries no type information, so it is not mapped to a
		// nullable form of its "real" type.
		return &Schema{Type: "string", Nullable: true}, nil
	default:
		return &Schema{Type: "string"}, nil
	}
}

func decodeObject(dec *json.Decoder) (*Schema, error) {
	s := &Schema{Type: "object"}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		// Peek the raw value so long strings can carry a preview description.
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		child := Infer(raw)
		if child.Type == "string" && !child.Nullable {
			var sv string
			if err := json.Unmarshal(raw, &sv); err == nil && len(sv) > previewThreshold {
				child.Description = "Example: " + preview(sv)
			}
		}
		s.Properties = append(s.Properties, Property{Name: key, Schema: child})
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeArray(dec *json.Decoder) (*Schema, error) {
	s := &Schema{Type: "array"}
	if dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		// Only the first element is sampled; heterogeneous arrays are not
		// detected.
		s.Items = Infer(raw)
		for dec.More() {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
	} else {
		s.Items = &Schema{Type: "string"}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return s, nil
}

func preview(s string) string {
	if len(s) > previewLen {
		s = s[:previewLen] + "..."
	}
	return strings.ReplaceAll(s, "\n", " ")
}

// MarshalJSON emits the schema with object properties in sampled order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField(&buf, "type", s.Type)
	if s.Nullable {
		buf.WriteString(`,"nullable":true`)
	}
	if s.Description != "" {
		buf.WriteByte(',')
		writeField(&buf, "description", s.Description)
	}
	if s.Items != nil {
		data, err := s.Items.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"items":`)
		buf.Write(data)
	}
	if len(s.Properties) > 0 {
		buf.WriteString(`,"properties":{`)
		for i, p := range s.Properties {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(p.Name)
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			data, err := p.Schema.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, name, value string) {
	k, _ := json.Marshal(name)
	v, _ := json.Marshal(value)
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
}

// Literal parses free-form text into its most specific JSON scalar. The
// conversion is total: anything that is not a numeric or boolean literal passes
// through as a string.
func Literal(text string) any {
	trimmed := strings.TrimSpace(text)
	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}
	var n json.Number
	if err := json.Unmarshal([]byte(trimmed), &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return text
}

// ScalarType names the schema type of a decoded scalar value, defaulting to
// string for anything unrecognized.
func ScalarType(v any) string {
	switch t := v.(type) {
	case bool:
		return "boolean"
	case int, int32, int64:
		return "integer"
	case float32:
		return "number"
	case float64:
		if t == float64(int64(t)) {
			return "integer"
		}
		return "number"
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return "integer"
		}
		return "number"
	default:
		return "string"
	}
}
