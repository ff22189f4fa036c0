// Package form keeps three views of a tool document consistent: the
// structured document itself, the parameter table rows, and the top-level
// metadata fields. Edits flow both ways without data loss across tab
// switches.
package form

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/wxo-labs/studio/internal/infer"
	"github.com/wxo-labs/studio/internal/oas"
	"github.com/wxo-labs/studio/internal/tool"
)

// Mode selects the editability policy for a session.
type Mode string

const (
	// ModeCreate allows editing the full document.
	ModeCreate Mode = "create"
	// ModeEdit restricts edits to the fields the remote service accepts in
	// update calls; everything else is rendered display-only.
	ModeEdit Mode = "edit"
)

// editFields are the only fields writable in edit mode. This reflects a
// backend constraint on update payloads, not a UI preference.
var editFields = map[string]bool{
	"display_name": true,
	"description":  true,
	"permission":   true,
	"restrictions": true,
	"tags":         true,
}

// Editable reports whether a named field may be written in the given mode.
func Editable(mode Mode, field string) bool {
	if mode == ModeCreate {
		return true
	}
	return editFields[field]
}

// Row is one editable parameter-table row. ID is a synthetic stable identity
// so a still-open table view never references rows by position. Deleted is a
// tombstone: the row stays in the slice and is filtered at serialization.
// Title and Enum ride along unedited so a sync never strips schema attributes
// the table has no column for.
type Row struct {
	ID          string
	Name        string
	In          string
	Type        string
	Required    bool
	DefaultText string
	Description string
	Title       string
	Enum        []any
	Deleted     bool
}

// Engine owns the table/field state derived from one document.
type Engine struct {
	mode Mode
	doc  *tool.Document
	rows []Row
}

// NewEngine loads a document into table rows and metadata fields.
func NewEngine(mode Mode, doc *tool.Document) *Engine {
	return &Engine{mode: mode, doc: doc, rows: rowsFromDocument(doc)}
}

// Mode returns the session's editability mode.
func (e *Engine) Mode() Mode { return e.mode }

// Rows returns the current table rows, tombstoned rows included (the table
// view decides how to render them).
func (e *Engine) Rows() []Row {
	out := make([]Row, len(e.rows))
	copy(out, e.rows)
	return out
}

// AddRow appends a blank row and returns its id.
func (e *Engine) AddRow() string {
	id := uuid.NewString()
	e.rows = append(e.rows, Row{ID: id, In: "query", Type: "string"})
	return id
}

// UpdateRow mutates the row with the given id. Returns false if no such row
// exists.
func (e *Engine) UpdateRow(id string, mut func(*Row)) bool {
	for i := range e.rows {
		if e.rows[i].ID == id {
			mut(&e.rows[i])
			return true
		}
	}
	return false
}

// MarkDeleted tombstones a row. The row is excluded from serialization but
// keeps its slice position and identity.
func (e *Engine) MarkDeleted(id string) bool {
	return e.UpdateRow(id, func(r *Row) { r.Deleted = true })
}

// Sync writes the table back into the document. Parameter edits only apply
// in create mode; in edit mode parameters are display-only and Sync leaves
// them untouched.
func (e *Engine) Sync() {
	if e.mode != ModeCreate {
		return
	}
	params := e.parameters()
	switch e.doc.Kind {
	case tool.KindBound:
		e.doc.Bound.InputSchema = tool.BuildInputSchema(params)
	default:
		_, _, op, ok := e.doc.OpenAPI.FirstOperation()
		if !ok {
			return
		}
		op.Parameters = params
	}
}

// parameters serializes live rows into ordered parameters. Rows whose
// sanitized name is empty are skipped silently: they are "not yet a
// parameter", not an error.
func (e *Engine) parameters() []oas.Parameter {
	var out []oas.Parameter
	for _, r := range e.rows {
		if r.Deleted {
			continue
		}
		name := SanitizeName(r.Name)
		if name == "" {
			continue
		}
		in := r.In
		if in == "" {
			in = "query"
		}
		p := oas.Parameter{
			Name:        name,
			In:          in,
			Required:    r.Required,
			Description: r.Description,
			Schema:      &oas.ParamSchema{Type: r.Type, Title: r.Title, Enum: r.Enum},
		}
		if p.Schema.Type == "" {
			p.Schema.Type = "string"
		}
		if v, ok := ParseDefault(r.DefaultText); ok {
			p.Schema.Default = v
		}
		out = append(out, p)
	}
	return out
}

// rowsFromDocument reconstructs one row per parameter. For bound input the
// displayed name is the aliasName when present, else the raw property key.
func rowsFromDocument(doc *tool.Document) []Row {
	var rows []Row
	switch doc.Kind {
	case tool.KindBound:
		if doc.Bound == nil || doc.Bound.InputSchema == nil {
			return nil
		}
		in := doc.Bound.InputSchema
		required := map[string]bool{}
		for _, k := range in.Required {
			required[k] = true
		}
		for _, key := range in.Properties.Keys() {
			prop := in.Properties.Get(key)
			rows = append(rows, Row{
				ID:          uuid.NewString(),
				Name:        prop.WireName(key),
				In:          prop.In,
				Type:        prop.Type,
				Required:    required[key],
				DefaultText: DefaultText(prop.Default),
				Description: prop.Description,
				Title:       prop.Title,
				Enum:        prop.Enum,
			})
		}
	default:
		if doc.OpenAPI == nil {
			return nil
		}
		_, _, op, ok := doc.OpenAPI.FirstOperation()
		if !ok {
			return nil
		}
		for _, p := range op.Parameters {
			row := Row{
				ID:          uuid.NewString(),
				Name:        p.Name,
				In:          p.In,
				Required:    p.Required,
				Description: p.Description,
			}
			if p.Schema != nil {
				row.Type = p.Schema.Type
				row.DefaultText = DefaultText(p.Schema.Default)
				row.Title = p.Schema.Title
				row.Enum = p.Schema.Enum
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// SanitizeName turns typed text into a safe identifier: whitespace runs
// collapse to single underscores, characters outside [A-Za-z0-9_] are
// stripped, and leading/trailing underscores are trimmed.
func SanitizeName(name string) string {
	joined := strings.Join(strings.Fields(name), "_")
	var b strings.Builder
	for _, r := range joined {
		if r == '_' || unicode.IsDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_")
}

// ParseDefault converts the default-value text field into a typed value. A
// blank field reports ok=false, meaning the default attribute is omitted
// entirely from the compiled schema.
func ParseDefault(text string) (any, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	return infer.Literal(text), true
}

// DefaultText renders a default value the way the parameter table displays
// it: strings verbatim, everything else through JSON.
func DefaultText(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return strings.TrimSpace(stringify(v))
	}
}
