package form

import (
	"encoding/json"
	"fmt"

	"github.com/wxo-labs/studio/internal/oas"
	"github.com/wxo-labs/studio/internal/tool"
)

// Fields is the flat view of a document's top-level metadata shown alongside
// the parameter table.
type Fields struct {
	Name         string
	DisplayName  string
	Description  string
	Version      string
	Permission   string
	Restrictions json.RawMessage
	Tags         []string
	Servers      []string
}

// Fields projects the document's metadata into the flat field view.
func (e *Engine) Fields() Fields {
	var f Fields
	switch e.doc.Kind {
	case tool.KindBound:
		b := e.doc.Bound
		f.Name = b.Name
		f.DisplayName = b.DisplayName
		f.Description = b.Description
		f.Permission = b.Permission
		f.Restrictions = b.Restrictions
		f.Tags = append([]string(nil), b.Tags...)
		if b.Binding.OpenAPI != nil {
			f.Servers = append([]string(nil), b.Binding.OpenAPI.Servers...)
		}
	default:
		d := e.doc.OpenAPI
		f.Name = d.Info.Title
		f.Description = d.Info.Description
		f.Version = d.Info.Version
		for _, s := range d.Servers {
			f.Servers = append(f.Servers, s.URL)
		}
	}
	return f
}

// SetFields writes edited metadata back into the document, honoring the
// session's editability policy: in edit mode only display name, description,
// permission, restrictions, and tags are applied; everything else is
// silently ignored because the remote service rejects it in update calls.
func (e *Engine) SetFields(f Fields) {
	switch e.doc.Kind {
	case tool.KindBound:
		b := e.doc.Bound
		b.DisplayName = f.DisplayName
		b.Description = f.Description
		b.Permission = f.Permission
		b.Restrictions = f.Restrictions
		b.Tags = append([]string(nil), f.Tags...)
		if e.mode == ModeCreate {
			b.Name = f.Name
			if b.Binding.OpenAPI != nil {
				b.Binding.OpenAPI.Servers = append([]string(nil), f.Servers...)
			}
		}
	default:
		d := e.doc.OpenAPI
		d.Info.Description = f.Description
		if e.mode == ModeCreate {
			d.Info.Title = f.Name
			d.Info.Version = f.Version
			var servers []oas.Server
			for _, u := range f.Servers {
				servers = append(servers, oas.Server{URL: u})
			}
			d.Servers = servers
		}
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case json.Number:
		return t.String()
	case float64, int64, int, bool:
		return fmt.Sprintf("%v", t)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
