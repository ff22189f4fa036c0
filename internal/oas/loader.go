package oas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/wxo-labs/studio/internal/studioerr"
)

// ImportSettings configures the import loader.
type ImportSettings struct {
	// HTTPTimeout bounds each HTTP request when importing from a URL.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
}

// DefaultImportSettings returns recommended defaults.
func DefaultImportSettings() ImportSettings {
	return ImportSettings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// ImportOption mutates ImportSettings.
type ImportOption func(*ImportSettings)

// WithHTTPTimeout bounds each import HTTP request.
func WithHTTPTimeout(d time.Duration) ImportOption {
	return func(s *ImportSettings) { s.HTTPTimeout = d }
}

// WithMaxRetries sets the transient-failure retry budget.
func WithMaxRetries(n int) ImportOption {
	return func(s *ImportSettings) { s.MaxRetries = n }
}

// Import reads an OpenAPI document from a filesystem path or http/https URL
// and returns it as normalized v3 JSON suitable for the editor. Swagger v2.0
// input is converted to v3. Validation is permissive: problems that do not
// prevent a best-effort build (unresolved refs, incomplete responses) are
// tolerated, since the structural validator gates saves separately.
func Import(ctx context.Context, input string, opts ...ImportOption) ([]byte, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &studioerr.ParseError{Msg: "import: input is empty"}
	}
	settings := DefaultImportSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""

	var raw []byte
	location := input
	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return nil, &studioerr.ParseError{Msg: fmt.Sprintf("import: unsupported URL scheme %q (only http/https allowed)", scheme)}
		}
		fetched, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &studioerr.TransportError{Op: "import " + input, Err: err}
		}
		raw = fetched
	} else {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, &studioerr.ParseError{Msg: fmt.Sprintf("resolve path %s", input), Err: err}
		}
		location = abs
		raw, err = os.ReadFile(abs)
		if err != nil {
			return nil, &studioerr.ParseError{Msg: fmt.Sprintf("read file %s", abs), Err: err}
		}
	}

	version, err := detectSpecVersion(raw)
	if err != nil {
		return nil, &studioerr.ParseError{Msg: location, Err: err}
	}

	var doc *openapi3.T
	switch version {
	case 3:
		loader := openapi3.NewLoader()
		loader.IsExternalRefsAllowed = false
		doc, err = loader.LoadFromData(raw)
		if err != nil {
			return nil, &studioerr.ParseError{Msg: location, Err: err}
		}
	case 2:
		doc, err = convertV2ToV3(raw)
		if err != nil {
			return nil, &studioerr.ParseError{Msg: fmt.Sprintf("convert v2 to v3: %s", location), Err: err}
		}
	default:
		return nil, &studioerr.ParseError{Msg: fmt.Sprintf("%s: unknown or unsupported OpenAPI/Swagger version", location)}
	}

	if err := doc.Validate(ctx); err != nil && !canProceedDespiteValidation(err) {
		return nil, &studioerr.ValidationError{Problems: []string{err.Error()}}
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, &studioerr.ParseError{Msg: location, Err: err}
	}
	return data, nil
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else an error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return 3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var v2 openapi2.T
	if err := yaml.Unmarshal(data, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

func fetchWithRetry(ctx context.Context, rawURL string, settings ImportSettings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err == nil && resp.StatusCode < 300 {
			defer resp.Body.Close()
			return io.ReadAll(resp.Body)
		}
		if err != nil {
			lastErr = err
		} else {
			defer resp.Body.Close()
			if resp.StatusCode >= 500 || resp.StatusCode == 429 {
				lastErr = fmt.Errorf("transient http error %d", resp.StatusCode)
			} else {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

// canProceedDespiteValidation reports validation errors where a best-effort
// import can still proceed.
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref") ||
		strings.Contains(s, "found unresolved ref") ||
		strings.Contains(s, "responses")
}
