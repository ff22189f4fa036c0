package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxo-labs/studio/internal/oas"
	"github.com/wxo-labs/studio/internal/tool"
)

func openAPIDoc(t *testing.T) *tool.Document {
	t.Helper()
	d := &oas.Document{OpenAPI: "3.0.0", Info: oas.Info{Title: "T", Version: "1.0.0"}}
	d.Paths.Set("/search", &oas.PathItem{Get: &oas.Operation{
		Parameters: []oas.Parameter{
			{Name: "q", In: "query", Required: true, Schema: &oas.ParamSchema{Type: "string", Default: "cats"}},
			{Name: "limit", In: "query", Schema: &oas.ParamSchema{Type: "integer", Default: int64(10)}},
		},
	}})
	return &tool.Document{Kind: tool.KindOpenAPI, OpenAPI: d}
}

func TestRowsFromOpenAPIDocument(t *testing.T) {
	t.Parallel()
	e := NewEngine(ModeCreate, openAPIDoc(t))
	rows := e.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "q", rows[0].Name)
	assert.Equal(t, "query", rows[0].In)
	assert.True(t, rows[0].Required)
	assert.Equal(t, "cats", rows[0].DefaultText)
	assert.Equal(t, "10", rows[1].DefaultText)
	assert.NotEmpty(t, rows[0].ID)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
}

func TestRowsFromBoundDocumentUsesAliasName(t *testing.T) {
	t.Parallel()
	var in tool.InputSchema
	in.Type = "object"
	in.Properties.Set("path_id", &tool.InputProperty{Type: "string", In: "path", AliasName: "id"})
	in.Properties.Set("query_id", &tool.InputProperty{Type: "string", In: "query", AliasName: "id"})
	in.Properties.Set("limit", &tool.InputProperty{Type: "integer", In: "query"})
	in.Required = []string{"path_id"}

	doc := &tool.Document{Kind: tool.KindBound, Bound: &tool.Bound{Name: "t", InputSchema: &in}}
	rows := NewEngine(ModeEdit, doc).Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0].Name)
	assert.Equal(t, "path", rows[0].In)
	assert.True(t, rows[0].Required)
	assert.Equal(t, "id", rows[1].Name)
	assert.Equal(t, "limit", rows[2].Name)
}

func TestSyncWritesRowsBack(t *testing.T) {
	t.Parallel()
	doc := openAPIDoc(t)
	e := NewEngine(ModeCreate, doc)

	id := e.AddRow()
	require.True(t, e.UpdateRow(id, func(r *Row) {
		r.Name = "  new param  "
		r.Type = "integer"
		r.DefaultText = "5"
	}))
	e.Sync()

	_, _, op, ok := doc.OpenAPI.FirstOperation()
	require.True(t, ok)
	require.Len(t, op.Parameters, 3)
	added := op.Parameters[2]
	assert.Equal(t, "new_param", added.Name)
	assert.Equal(t, int64(5), added.Schema.Default)
}

func TestSyncPreservesTitleAndEnum(t *testing.T) {
	t.Parallel()
	d := &oas.Document{OpenAPI: "3.0.0", Info: oas.Info{Title: "T", Version: "1.0.0"}}
	d.Paths.Set("/current", &oas.PathItem{Get: &oas.Operation{
		Parameters: []oas.Parameter{
			{Name: "units", In: "query", Schema: &oas.ParamSchema{
				Type:  "string",
				Title: "Units",
				Enum:  []any{"metric", "imperial"},
			}},
		},
	}})
	doc := &tool.Document{Kind: tool.KindOpenAPI, OpenAPI: d}

	// A sync with no edits must not strip attributes the table has no
	// column for.
	e := NewEngine(ModeCreate, doc)
	e.Sync()

	_, _, op, ok := d.FirstOperation()
	require.True(t, ok)
	require.Len(t, op.Parameters, 1)
	require.NotNil(t, op.Parameters[0].Schema)
	assert.Equal(t, "Units", op.Parameters[0].Schema.Title)
	assert.Equal(t, []any{"metric", "imperial"}, op.Parameters[0].Schema.Enum)

	// They also survive an actual edit to the row.
	rows := e.Rows()
	require.True(t, e.UpdateRow(rows[0].ID, func(r *Row) { r.DefaultText = "metric" }))
	e.Sync()
	assert.Equal(t, []any{"metric", "imperial"}, op.Parameters[0].Schema.Enum)
	assert.Equal(t, "metric", op.Parameters[0].Schema.Default)
}

func TestRowsFromBoundDocumentCarryTitleAndEnum(t *testing.T) {
	t.Parallel()
	var in tool.InputSchema
	in.Type = "object"
	in.Properties.Set("units", &tool.InputProperty{
		Type:  "string",
		In:    "query",
		Title: "Units",
		Enum:  []any{"metric", "imperial"},
	})
	doc := &tool.Document{Kind: tool.KindBound, Bound: &tool.Bound{Name: "t", InputSchema: &in}}

	e := NewEngine(ModeCreate, doc)
	rows := e.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Units", rows[0].Title)
	assert.Equal(t, []any{"metric", "imperial"}, rows[0].Enum)

	e.Sync()
	prop := doc.Bound.InputSchema.Properties.Get("units")
	require.NotNil(t, prop)
	assert.Equal(t, "Units", prop.Title)
	assert.Equal(t, []any{"metric", "imperial"}, prop.Enum)
}

func TestSyncSkipsEmptyNamesAndTombstones(t *testing.T) {
	t.Parallel()
	doc := openAPIDoc(t)
	e := NewEngine(ModeCreate, doc)
	rows := e.Rows()

	// Blank-name rows are "not yet a parameter", not an error.
	blank := e.AddRow()
	require.True(t, e.UpdateRow(blank, func(r *Row) { r.Name = "  ___ " }))
	// Tombstoned rows stay in the table but leave the document.
	require.True(t, e.MarkDeleted(rows[1].ID))
	e.Sync()

	_, _, op, ok := doc.OpenAPI.FirstOperation()
	require.True(t, ok)
	require.Len(t, op.Parameters, 1)
	assert.Equal(t, "q", op.Parameters[0].Name)

	// The tombstone is still visible to the table view.
	assert.Len(t, e.Rows(), 3)
}

func TestSyncBlankDefaultOmitsAttribute(t *testing.T) {
	t.Parallel()
	doc := openAPIDoc(t)
	e := NewEngine(ModeCreate, doc)
	rows := e.Rows()
	require.True(t, e.UpdateRow(rows[0].ID, func(r *Row) { r.DefaultText = "   " }))
	e.Sync()

	_, _, op, ok := doc.OpenAPI.FirstOperation()
	require.True(t, ok)
	assert.Nil(t, op.Parameters[0].Schema.Default)
}

func TestSyncIsANoOpInEditMode(t *testing.T) {
	t.Parallel()
	doc := openAPIDoc(t)
	e := NewEngine(ModeEdit, doc)
	rows := e.Rows()
	e.MarkDeleted(rows[0].ID)
	e.Sync()

	_, _, op, ok := doc.OpenAPI.FirstOperation()
	require.True(t, ok)
	assert.Len(t, op.Parameters, 2)
}

func TestSyncBoundRebuildsInputSchema(t *testing.T) {
	t.Parallel()
	var in tool.InputSchema
	in.Type = "object"
	in.Properties.Set("q", &tool.InputProperty{Type: "string", In: "query"})
	doc := &tool.Document{Kind: tool.KindBound, Bound: &tool.Bound{Name: "t", InputSchema: &in}}

	e := NewEngine(ModeCreate, doc)
	id := e.AddRow()
	e.UpdateRow(id, func(r *Row) { r.Name = "page"; r.Type = "integer"; r.Required = true })
	e.Sync()

	require.NotNil(t, doc.Bound.InputSchema)
	assert.Equal(t, []string{"q", "page"}, doc.Bound.InputSchema.Properties.Keys())
	assert.Equal(t, []string{"page"}, doc.Bound.InputSchema.Required)
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"plain":            "plain",
		"  two  words ":    "two_words",
		"weird-chars!here": "weirdcharshere",
		"_lead_trail_":     "lead_trail",
		"___":              "",
		"a b-c":            "a_bc",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeName(in), "input=%q", in)
	}
}

func TestParseDefault(t *testing.T) {
	t.Parallel()
	v, ok := ParseDefault("10")
	require.True(t, ok)
	assert.Equal(t, int64(10), v)

	v, ok = ParseDefault("true")
	require.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = ParseDefault("Toronto,On")
	require.True(t, ok)
	assert.Equal(t, "Toronto,On", v)

	_, ok = ParseDefault("   ")
	assert.False(t, ok)
}

func TestEditabilityPolicy(t *testing.T) {
	t.Parallel()
	assert.True(t, Editable(ModeCreate, "paths"))
	assert.True(t, Editable(ModeCreate, "name"))
	assert.True(t, Editable(ModeEdit, "display_name"))
	assert.True(t, Editable(ModeEdit, "tags"))
	assert.False(t, Editable(ModeEdit, "paths"))
	assert.False(t, Editable(ModeEdit, "name"))
	assert.False(t, Editable(ModeEdit, "input_schema"))
}

func TestSetFieldsRespectsMode(t *testing.T) {
	t.Parallel()
	var in tool.InputSchema
	in.Type = "object"
	doc := &tool.Document{Kind: tool.KindBound, Bound: &tool.Bound{
		Name:        "orig_name",
		DisplayName: "Orig",
		Binding:     tool.Binding{OpenAPI: &tool.OpenAPIBinding{HTTPMethod: "GET", HTTPPath: "/x", Servers: []string{"https://a"}}},
		InputSchema: &in,
	}}

	e := NewEngine(ModeEdit, doc)
	f := e.Fields()
	f.Name = "hacked_name"
	f.DisplayName = "New Display"
	f.Servers = []string{"https://evil"}
	e.SetFields(f)

	assert.Equal(t, "orig_name", doc.Bound.Name, "name is display-only in edit mode")
	assert.Equal(t, "New Display", doc.Bound.DisplayName)
	assert.Equal(t, []string{"https://a"}, doc.Bound.Binding.OpenAPI.Servers)

	create := NewEngine(ModeCreate, doc)
	f = create.Fields()
	f.Name = "renamed"
	create.SetFields(f)
	assert.Equal(t, "renamed", doc.Bound.Name)
}
