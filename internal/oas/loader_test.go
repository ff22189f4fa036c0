package oas

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxo-labs/studio/internal/studioerr"
)

const swaggerV2YAML = `swagger: "2.0"
info:
  title: Petstore
  version: "1.0.0"
host: api.petstore.example
basePath: /v1
schemes: [https]
paths:
  /pets:
    get:
      operationId: listPets
      parameters:
        - name: limit
          in: query
          type: integer
      responses:
        "200":
          description: A list of pets
`

func TestImportLocalV3File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(path, []byte(Template), 0o644))

	data, err := Import(context.Background(), path)
	require.NoError(t, err)

	doc, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "My Tool", doc.Info.Title)
	assert.Equal(t, 1, doc.Paths.Len())
}

func TestImportConvertsSwaggerV2(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "swagger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(swaggerV2YAML), 0o644))

	data, err := Import(context.Background(), path)
	require.NoError(t, err)

	doc, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Petstore", doc.Info.Title)
	item := doc.Paths.Get("/pets")
	require.NotNil(t, item)
	require.NotNil(t, item.Get)
	assert.Equal(t, "listPets", item.Get.OperationID)
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: nope\n"), 0o644))

	_, err := Import(context.Background(), path)
	var pe *studioerr.ParseError
	require.True(t, errors.As(err, &pe))
}

func TestImportRejectsUnsupportedScheme(t *testing.T) {
	t.Parallel()
	_, err := Import(context.Background(), "ftp://example.com/spec.yaml")
	var pe *studioerr.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "http/https")
}

func TestImportFetchesURLWithRetry(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(Template))
	}))
	defer srv.Close()

	data, err := Import(context.Background(), srv.URL,
		WithMaxRetries(3), WithHTTPTimeout(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	doc, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "My Tool", doc.Info.Title)
}

func TestImportClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Import(context.Background(), srv.URL, WithMaxRetries(3))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDetectSpecVersion(t *testing.T) {
	t.Parallel()
	v, err := detectSpecVersion([]byte(`{"openapi":"3.0.3"}`))
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = detectSpecVersion([]byte("swagger: \"2.0\"\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = detectSpecVersion([]byte(`{"openapi":"4.0.0"}`))
	require.Error(t, err)
}
