// Package localtest exercises a tool's endpoint directly from the authoring
// machine, before the tool exists remotely. The request is assembled from the
// document's first operation, its parameter defaults, and the resolved
// security declarations.
package localtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wxo-labs/studio/internal/form"
	"github.com/wxo-labs/studio/internal/oas"
	"github.com/wxo-labs/studio/internal/security"
	"github.com/wxo-labs/studio/internal/studioerr"
)

// Record is the fully assembled request, kept separate from its execution so
// the same assembly feeds both the HTTP call and the cURL rendering.
type Record struct {
	Method          string
	URL             string
	Params          map[string]string
	AuthHeaders     map[string]string
	AuthQueryParams map[string]string
}

// Response is the outcome of a local execution.
type Response struct {
	Status int
	Body   []byte
}

// Options configures request assembly.
type Options struct {
	// APIKey is the credential substituted into the resolved security
	// declarations. Empty means the placeholder stays visible.
	APIKey string
	// Overrides replaces parameter defaults by name.
	Overrides map[string]string
}

const keyPlaceholder = "YOUR_API_KEY"

// BuildRequest assembles the test request from the document's first
// operation. A document with no operations cannot be tested.
func BuildRequest(doc *oas.Document, opts Options) (*Record, error) {
	path, method, op, ok := doc.FirstOperation()
	if !ok {
		return nil, &studioerr.ValidationError{Problems: []string{"document declares no operations to test"}}
	}

	base := ""
	if len(doc.Servers) > 0 {
		base = strings.TrimRight(doc.Servers[0].URL, "/")
	}
	if base == "" {
		return nil, &studioerr.ValidationError{Problems: []string{"document declares no servers to test against"}}
	}

	rec := &Record{
		Method:          strings.ToUpper(method),
		URL:             base + path,
		Params:          map[string]string{},
		AuthHeaders:     map[string]string{},
		AuthQueryParams: map[string]string{},
	}

	for _, p := range op.Parameters {
		if p.In != "query" {
			continue
		}
		val := ""
		if p.Schema != nil && p.Schema.Default != nil {
			val = form.DefaultText(p.Schema.Default)
		}
		if over, ok := opts.Overrides[p.Name]; ok {
			val = over
		}
		if val == "" {
			continue
		}
		rec.Params[p.Name] = val
	}

	key := opts.APIKey
	if key == "" {
		key = keyPlaceholder
	}
	for _, decl := range resolveDeclarations(doc) {
		switch {
		case decl.Type == "apiKey" && decl.In == "header":
			rec.AuthHeaders[decl.Name] = key
		case decl.Type == "apiKey":
			name := decl.Name
			if name == "" {
				name = security.DefaultDeclaration().Name
			}
			rec.AuthQueryParams[name] = key
		case decl.Type == "http" && strings.EqualFold(decl.Scheme, "bearer"):
			rec.AuthHeaders["Authorization"] = "Bearer " + key
		}
	}
	return rec, nil
}

// resolveDeclarations mirrors compilation: the x-security extension wins,
// then security refs resolved against components.
func resolveDeclarations(doc *oas.Document) []security.Declaration {
	if len(doc.XSecurity) > 0 {
		return doc.XSecurity
	}
	if doc.Components == nil {
		return nil
	}
	var out []security.Declaration
	for _, req := range doc.Security {
		for name := range req {
			if decl, ok := doc.Components.SecuritySchemes[name]; ok {
				out = append(out, decl)
			}
		}
	}
	return out
}

// Runner executes assembled requests.
type Runner struct {
	client *http.Client
	log    zerolog.Logger
}

// NewRunner builds a runner. A nil client gets a 30s-timeout default.
func NewRunner(client *http.Client, log zerolog.Logger) *Runner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Runner{client: client, log: log}
}

// Run performs the request and returns whatever came back. Non-2xx statuses
// are still results: seeing the endpoint's error body is the point of a local
// test.
func (r *Runner) Run(ctx context.Context, rec *Record) (*Response, error) {
	endpoint := rec.URL
	q := url.Values{}
	for k, v := range rec.Params {
		q.Set(k, v)
	}
	for k, v := range rec.AuthQueryParams {
		q.Set(k, v)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, rec.Method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range rec.AuthHeaders {
		req.Header.Set(k, v)
	}

	r.log.Debug().Str("method", rec.Method).Str("url", rec.URL).Msg("local test request")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &studioerr.TransportError{Op: "local test", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &studioerr.TransportError{Op: "local test", Err: err}
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// RenderCurl renders the record as a copy-pasteable curl command. When mask
// is set, credential values are replaced by the placeholder so the command is
// safe to share.
func RenderCurl(rec *Record, mask bool) string {
	q := url.Values{}
	for k, v := range rec.Params {
		q.Set(k, v)
	}
	for k, v := range rec.AuthQueryParams {
		if mask {
			v = keyPlaceholder
		}
		q.Set(k, v)
	}
	endpoint := rec.URL
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "curl -X %s %q", rec.Method, endpoint)

	headers := make([]string, 0, len(rec.AuthHeaders))
	for k := range rec.AuthHeaders {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	for _, k := range headers {
		v := rec.AuthHeaders[k]
		if mask {
			if strings.HasPrefix(v, "Bearer ") {
				v = "Bearer " + keyPlaceholder
			} else {
				v = keyPlaceholder
			}
		}
		fmt.Fprintf(&b, " \\\n  -H %q", k+": "+v)
	}
	return b.String()
}
