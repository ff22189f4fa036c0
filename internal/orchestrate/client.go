package orchestrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wxo-labs/studio/internal/security"
	"github.com/wxo-labs/studio/internal/studioerr"
	"github.com/wxo-labs/studio/internal/tool"
)

// TokenSource supplies bearer tokens. The token-exchange cache lives outside
// this toolkit; only the interface is consumed here.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource wrapping a fixed API key.
type StaticToken string

// Token returns the wrapped key.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client is the remote orchestration service client. CRUD failures are
// surfaced verbatim (status and body) and never retried automatically: these
// are user-initiated, idempotent-unsafe actions.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient builds a service client. A missing base URL or token source is a
// ConfigurationError: no remote call can succeed without them.
func NewClient(baseURL string, tokens TokenSource, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, &studioerr.ConfigurationError{Missing: "base URL"}
	}
	if tokens == nil {
		return nil, &studioerr.ConfigurationError{Missing: "API key"}
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// listEnvelope tolerates both bare-array and {"data": [...]} list responses.
type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	// Some deployments answer list calls with an empty body. That means no
	// records, not a malformed response.
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var out []T
		err := json.Unmarshal(trimmed, &out)
		return out, err
	}
	var env listEnvelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListTools fetches a page of tool records.
func (c *Client) ListTools(ctx context.Context, limit, offset int) ([]tool.Bound, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	body, err := c.do(ctx, http.MethodGet, "/v1/orchestrate/tools", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[tool.Bound](body)
}

// GetTool fetches one tool record.
func (c *Client) GetTool(ctx context.Context, id string) (*tool.Bound, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/orchestrate/tools/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var b tool.Bound
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, &studioerr.ParseError{Msg: "tool record", Err: err}
	}
	return &b, nil
}

// CreateTool persists a compiled bound record and returns the created
// resource.
func (c *Client) CreateTool(ctx context.Context, b *tool.Bound) (*tool.Bound, error) {
	body, err := c.do(ctx, http.MethodPost, "/v1/orchestrate/tools", nil, b)
	if err != nil {
		return nil, err
	}
	var created tool.Bound
	if err := json.Unmarshal(body, &created); err != nil {
		// Some deployments return an empty body on create; fall back to the
		// submitted record.
		return b, nil
	}
	return &created, nil
}

// UpdateTool sends the restricted update payload. The primary verb is PUT; a
// 405 response downgrades to PATCH for older deployments.
func (c *Client) UpdateTool(ctx context.Context, id string, payload ToolUpdate) error {
	path := "/v1/orchestrate/tools/" + url.PathEscape(id)
	_, err := c.do(ctx, http.MethodPut, path, nil, payload)
	if te := asTransport(err); te != nil && te.Status == http.StatusMethodNotAllowed {
		c.log.Debug().Str("tool", id).Msg("PUT not allowed, retrying as PATCH")
		_, err = c.do(ctx, http.MethodPatch, path, nil, payload)
	}
	return err
}

// DeleteTool removes a tool.
func (c *Client) DeleteTool(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/orchestrate/tools/"+url.PathEscape(id), nil, nil)
	return err
}

// UploadToolArtifact posts a ZIP artifact for a created tool as multipart
// form data. Callers treat a failure here as non-fatal: the tool record
// itself already exists.
func (c *Client) UploadToolArtifact(ctx context.Context, id, filename string, artifact []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(artifact); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	endpoint := c.baseURL + "/v1/orchestrate/tools/" + url.PathEscape(id) + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := c.authorize(ctx, req); err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &studioerr.TransportError{Op: "upload artifact", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &studioerr.TransportError{Op: "upload artifact", Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// ListAgents fetches a page of agent configurations.
func (c *Client) ListAgents(ctx context.Context, limit, offset int) ([]Agent, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	body, err := c.do(ctx, http.MethodGet, "/v1/orchestrate/agents", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Agent](body)
}

// GetAgent fetches one agent.
func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/orchestrate/agents/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var a Agent
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, &studioerr.ParseError{Msg: "agent record", Err: err}
	}
	return &a, nil
}

// UpdateAgent sends the restricted agent update payload, with the same
// PUT→PATCH downgrade as tools.
func (c *Client) UpdateAgent(ctx context.Context, id string, payload AgentUpdate) error {
	path := "/v1/orchestrate/agents/" + url.PathEscape(id)
	_, err := c.do(ctx, http.MethodPut, path, nil, payload)
	if te := asTransport(err); te != nil && te.Status == http.StatusMethodNotAllowed {
		_, err = c.do(ctx, http.MethodPatch, path, nil, payload)
	}
	return err
}

// DeleteAgent removes an agent.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/orchestrate/agents/"+url.PathEscape(id), nil, nil)
	return err
}

// SubmitRun starts an asynchronous execution and returns the thread id to
// poll.
func (c *Client) SubmitRun(ctx context.Context, run RunRequest) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/v1/orchestrate/runs", nil, run)
	if err != nil {
		return "", err
	}
	var resp RunResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &studioerr.ParseError{Msg: "run response", Err: err}
	}
	return resp.ThreadID, nil
}

// ThreadMessages fetches the current message list of a run thread.
func (c *Client) ThreadMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/orchestrate/threads/"+url.PathEscape(threadID)+"/messages", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[ThreadMessage](body)
}

// ListConnections fetches connection records with details included.
func (c *Client) ListConnections(ctx context.Context) ([]security.Connection, error) {
	q := url.Values{"include_details": {"true"}}
	body, err := c.do(ctx, http.MethodGet, "/v1/orchestrate/connections/applications", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[security.Connection](body)
}

// ListCatalog fetches the connector application catalog.
func (c *Client) ListCatalog(ctx context.Context) ([]CatalogEntry, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/orchestrate/catalog/applications", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[CatalogEntry](body)
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &studioerr.ConfigurationError{Missing: "API key"}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// do performs one JSON request and returns the response body. Non-2xx
// responses become TransportError carrying the status and body text.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	op := method + " " + path
	c.log.Debug().Str("op", op).Msg("remote call")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &studioerr.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &studioerr.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &studioerr.TransportError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func asTransport(err error) *studioerr.TransportError {
	if err == nil {
		return nil
	}
	te, ok := err.(*studioerr.TransportError)
	if !ok {
		return nil
	}
	return te
}
