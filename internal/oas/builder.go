package oas

import (
	"encoding/json"
	"net/url"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/wxo-labs/studio/internal/infer"
	"github.com/wxo-labs/studio/internal/security"
)

// ServiceInfo is best-effort metadata about the service behind a tested URL.
type ServiceInfo struct {
	Title       string
	Description string
}

// BuildRequest carries everything observed during a local test that feeds
// document generation.
type BuildRequest struct {
	Service      ServiceInfo
	URL          *url.URL
	Method       string
	Params       map[string]string
	ResponseBody json.RawMessage

	// APIKeyParam is the user-configured API key parameter name. It is
	// checked before the common aliases when inferring security.
	APIKeyParam string
}

// apiKeyAliases are common parameter names that indicate query-string API key
// auth when no explicit name is configured.
var apiKeyAliases = []string{"key", "apiKey", "api_key"}

const (
	fallbackTitle       = "Generated Tool"
	fallbackOperationID = "generatedOperation"
	fallbackSummary     = "Generated Operation"
)

// Build derives a one-operation OpenAPI document from an observed HTTP
// exchange. It is total: missing metadata degrades to fallbacks, never to an
// error.
func Build(req BuildRequest) *Document {
	title := strings.TrimSpace(req.Service.Title)
	if title == "" && req.URL != nil {
		title = hostTitle(req.URL.Hostname())
	}
	if title == "" {
		title = fallbackTitle
	}

	doc := &Document{
		OpenAPI: "3.0.0",
		Info: Info{
			Title:       title,
			Description: strings.TrimSpace(req.Service.Description),
			Version:     "1.0.0",
		},
	}

	opPath := "/"
	if req.URL != nil {
		doc.Servers = []Server{{URL: req.URL.Scheme + "://" + req.URL.Host}}
		if p := req.URL.Path; p != "" {
			opPath = p
		}
	}

	op := &Operation{
		OperationID: operationID(opPath),
		Summary:     operationSummary(opPath),
		Responses: map[string]*Response{
			"200": {
				Description: "Successful response",
				Content: map[string]*MediaType{
					"application/json": {Schema: responseSchema(req.ResponseBody)},
				},
			},
		},
	}

	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = "get"
	}

	// Only GET requests get declared parameters; other methods are body-based
	// and bodies are not inferred in this design. The observed value is kept
	// as the parameter default so a later test run can be pre-filled.
	if method == "get" {
		names := make([]string, 0, len(req.Params))
		for name := range req.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			val := infer.Literal(req.Params[name])
			op.Parameters = append(op.Parameters, Parameter{
				Name: name,
				In:   "query",
				Schema: &ParamSchema{
					Type:    infer.ScalarType(val),
					Default: val,
				},
			})
		}
	}

	item := &PathItem{}
	switch method {
	case "post":
		item.Post = op
	case "put":
		item.Put = op
	case "delete":
		item.Delete = op
	case "patch":
		item.Patch = op
	case "head":
		item.Head = op
	case "options":
		item.Options = op
	case "trace":
		item.Trace = op
	default:
		item.Get = op
	}
	doc.Paths.Set(opPath, item)

	if name, ok := matchAPIKeyParam(req.Params, req.APIKeyParam); ok {
		doc.Components = &Components{
			SecuritySchemes: map[string]security.Declaration{
				"ApiKeyAuth": {Type: "apiKey", In: "query", Name: name},
			},
		}
		doc.Security = []SecurityRequirement{{"ApiKeyAuth": {}}}
	}

	return doc
}

// matchAPIKeyParam returns the parameter name that looks like an API key. The
// configured name takes precedence over the common aliases.
func matchAPIKeyParam(params map[string]string, configured string) (string, bool) {
	candidates := apiKeyAliases
	if c := strings.TrimSpace(configured); c != "" {
		candidates = append([]string{c}, apiKeyAliases...)
	}
	for _, cand := range candidates {
		if _, ok := params[cand]; ok {
			return cand, true
		}
	}
	return "", false
}

func responseSchema(body json.RawMessage) json.RawMessage {
	if len(strings.TrimSpace(string(body))) == 0 {
		return json.RawMessage(`{"type":"object"}`)
	}
	data, err := json.Marshal(infer.Infer(body))
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}

// hostTitle derives a display title from a host name: strip common prefixes,
// capitalize the first label, append " API".
func hostTitle(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return ""
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "api.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return ""
	}
	return capitalize(label) + " API"
}

// lastSegment picks the final non-empty path segment with its extension
// stripped, e.g. "/v1/current.json" → "current".
func lastSegment(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if seg := strings.TrimSpace(segs[i]); seg != "" {
			return strings.TrimSuffix(seg, path.Ext(seg))
		}
	}
	return ""
}

func operationID(p string) string {
	seg := lastSegment(p)
	if seg == "" {
		return fallbackOperationID
	}
	var b strings.Builder
	for _, r := range seg {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	id := strings.Trim(b.String(), "_")
	if id == "" {
		return fallbackOperationID
	}
	return id
}

func operationSummary(p string) string {
	seg := lastSegment(p)
	if seg == "" {
		return fallbackSummary
	}
	var b strings.Builder
	for _, r := range seg {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	summary := strings.Join(strings.Fields(b.String()), " ")
	if summary == "" {
		return fallbackSummary
	}
	return capitalize(summary)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
