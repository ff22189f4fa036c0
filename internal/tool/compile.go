package tool

import (
	"encoding/json"
	"strings"

	"github.com/wxo-labs/studio/internal/oas"
	"github.com/wxo-labs/studio/internal/security"
	"github.com/wxo-labs/studio/internal/studioerr"
)

// Meta carries the user-entered tool metadata merged into the compiled
// record.
type Meta struct {
	Name         string
	DisplayName  string
	Description  string
	Permission   string
	Restrictions json.RawMessage
	Tags         []string
	ConnectionID string
}

// Compile converts an OpenAPI document plus tool metadata into the bound
// record the remote service persists.
//
// Only the first declared path and its first method are compiled; the bound
// format supports exactly one operation per tool, so later paths and methods
// are ignored rather than merged.
func Compile(meta Meta, doc *oas.Document) (*Bound, error) {
	httpPath, method, op, ok := doc.FirstOperation()
	if !ok {
		return nil, &studioerr.ValidationError{Problems: []string{"document declares no operations"}}
	}

	servers := make([]string, 0, len(doc.Servers))
	for _, s := range doc.Servers {
		if u := strings.TrimSpace(s.URL); u != "" {
			servers = append(servers, u)
		}
	}

	b := &Bound{
		Name:         meta.Name,
		DisplayName:  meta.DisplayName,
		Description:  firstNonEmpty(meta.Description, op.Description, op.Summary),
		Permission:   meta.Permission,
		Restrictions: meta.Restrictions,
		Tags:         meta.Tags,
		Binding: Binding{
			OpenAPI: &OpenAPIBinding{
				HTTPMethod:   strings.ToUpper(method),
				HTTPPath:     httpPath,
				Servers:      servers,
				Security:     deriveBindingSecurity(doc, op),
				ConnectionID: meta.ConnectionID,
			},
		},
		InputSchema: BuildInputSchema(op.Parameters),
	}

	if out := compileOutputSchema(op); out != nil {
		b.OutputSchema = out
	}
	return b, nil
}

// deriveBindingSecurity resolves the security declarations for the binding.
// Precedence: the x-security vendor extension on the document root, then
// security requirement refs (operation-level, falling back to root-level)
// resolved against components.securitySchemes. Scheme types other than apiKey
// and http/bearer are dropped silently. Nothing resolvable yields an empty
// array, not an error.
func deriveBindingSecurity(doc *oas.Document, op *oas.Operation) []security.Declaration {
	if len(doc.XSecurity) > 0 {
		out := make([]security.Declaration, len(doc.XSecurity))
		copy(out, doc.XSecurity)
		return out
	}

	reqs := op.Security
	if len(reqs) == 0 {
		reqs = doc.Security
	}
	if len(reqs) == 0 || doc.Components == nil {
		return []security.Declaration{}
	}

	out := []security.Declaration{}
	for _, req := range reqs {
		for name := range req {
			scheme, ok := doc.Components.SecuritySchemes[name]
			if !ok {
				continue
			}
			switch {
			case scheme.Type == "apiKey":
				out = append(out, scheme)
			case scheme.Type == "http" && strings.EqualFold(scheme.Scheme, "bearer"):
				out = append(out, scheme)
			}
		}
	}
	return out
}

// BuildInputSchema maps operation parameters onto input_schema properties.
// Property keys must be unique across all parameters regardless of location,
// so a name declared under more than one `in` is keyed as "<in>_<name>" with
// the true wire name preserved in aliasName for round-tripping.
func BuildInputSchema(params []oas.Parameter) *InputSchema {
	in := &InputSchema{Type: "object"}

	locsByName := map[string]map[string]bool{}
	for _, p := range params {
		if locsByName[p.Name] == nil {
			locsByName[p.Name] = map[string]bool{}
		}
		locsByName[p.Name][p.In] = true
	}

	for _, p := range params {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		key := name
		prop := &InputProperty{
			In:          p.In,
			Description: p.Description,
		}
		if len(locsByName[p.Name]) > 1 {
			key = p.In + "_" + name
			prop.AliasName = name
		}
		if p.Schema != nil {
			prop.Type = p.Schema.Type
			prop.Default = p.Schema.Default
			prop.Title = p.Schema.Title
			prop.Enum = p.Schema.Enum
		}
		if prop.Type == "" {
			prop.Type = "string"
		}
		in.Properties.Set(key, prop)
		if p.Required {
			in.Required = append(in.Required, key)
		}
	}
	return in
}

// compileOutputSchema copies the 200/application/json response schema, with a
// description fallback chain: the schema's own, then the response's, then
// "Success".
func compileOutputSchema(op *oas.Operation) map[string]any {
	raw, resp := op.JSONResponseSchema()
	if raw == nil {
		return nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if desc, _ := out["description"].(string); desc == "" {
		fallback := "Success"
		if resp != nil && strings.TrimSpace(resp.Description) != "" {
			fallback = resp.Description
		}
		out["description"] = fallback
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
