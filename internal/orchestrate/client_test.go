package orchestrate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxo-labs/studio/internal/studioerr"
	"github.com/wxo-labs/studio/internal/tool"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, StaticToken("secret"))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresConfiguration(t *testing.T) {
	t.Parallel()
	_, err := NewClient("", StaticToken("k"))
	var cfg *studioerr.ConfigurationError
	require.True(t, errors.As(err, &cfg))

	_, err = NewClient("https://example.com", nil)
	require.True(t, errors.As(err, &cfg))
}

func TestClientSendsBearerToken(t *testing.T) {
	t.Parallel()
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})
	_, err := c.ListTools(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", got)
}

func TestListToolsDecodesBothShapes(t *testing.T) {
	t.Parallel()
	bare := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"a"},{"name":"b"}]`))
	})
	tools, err := bare.ListTools(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "a", tools[0].Name)

	wrapped := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"data":[{"name":"c"}]}`))
	})
	tools, err = wrapped.ListTools(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "c", tools[0].Name)
}

func TestListToolsToleratesEmptyBody(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	tools, err := c.ListTools(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, tools)
}

func TestTransportErrorCarriesStatusAndBody(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"tool name already exists"}`))
	})
	_, err := c.GetTool(context.Background(), "t1")
	var te *studioerr.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusConflict, te.Status)
	assert.Equal(t, `{"detail":"tool name already exists"}`, te.Body)
}

func TestUpdateToolDowngradesToPatchOn405(t *testing.T) {
	t.Parallel()
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte(`{}`))
	})
	err := c.UpdateTool(context.Background(), "t1", ToolUpdate{DisplayName: "X"})
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodPut, http.MethodPatch}, methods)
}

func TestUpdateToolDoesNotDowngradeOnOtherErrors(t *testing.T) {
	t.Parallel()
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusBadRequest)
	})
	err := c.UpdateTool(context.Background(), "t1", ToolUpdate{})
	require.Error(t, err)
	assert.Equal(t, []string{http.MethodPut}, methods)
}

func TestSubmitRunReturnsThreadID(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"thread_id":"th-9"}`))
	})
	id, err := c.SubmitRun(context.Background(), RunRequest{ToolID: "t1", Message: "go"})
	require.NoError(t, err)
	assert.Equal(t, "th-9", id)
}

func TestListConnectionsIncludesDetails(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("include_details"))
		w.Write([]byte(`[{"connection_id":"c1","app_id":"slack"}]`))
	})
	conns, err := c.ListConnections(context.Background())
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "c1", conns[0].ConnectionID)
}

func TestUploadToolArtifactSendsMultipart(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "tool.zip", header.Filename)
		assert.Contains(t, r.URL.Path, "/tools/t1/upload")
		w.WriteHeader(http.StatusNoContent)
	})
	err := c.UploadToolArtifact(context.Background(), "t1", "tool.zip", []byte("zipbytes"))
	require.NoError(t, err)
}

func TestCreateToolToleratesEmptyResponseBody(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	in := &tool.Bound{Name: "echo"}
	out, err := c.CreateTool(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
