package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNilConnection(t *testing.T) {
	t.Parallel()
	got := Resolve(nil)
	require.Len(t, got, 1)
	assert.Equal(t, DefaultDeclaration(), got[0])
}

func TestResolveExplicitArrayWinsOverHeuristic(t *testing.T) {
	t.Parallel()
	declared := []Declaration{
		{Type: "http", Scheme: "bearer", Name: "Authorization"},
		{Type: "apiKey", In: "header", Name: "X-Api-Key"},
	}
	conn := &Connection{
		ConnectionID: "c1",
		Security:     declared,
		// Heuristic would suggest apiKey/query, but the declared array wins.
		AuthType: "api_key",
	}
	got := Resolve(conn)
	assert.Equal(t, declared, got)
}

func TestResolveDirectScheme(t *testing.T) {
	t.Parallel()
	conn := &Connection{
		Scheme:   &Declaration{Type: "apiKey", In: "header", Name: "X-Token"},
		AuthType: "bearer",
	}
	got := Resolve(conn)
	require.Len(t, got, 1)
	assert.Equal(t, "X-Token", got[0].Name)
}

func TestResolveAuthTypeHeuristics(t *testing.T) {
	t.Parallel()
	cases := []struct {
		authType string
		want     Declaration
	}{
		{"api_key", Declaration{Type: "apiKey", In: "query", Name: "apiKey"}},
		{"apikey", Declaration{Type: "apiKey", In: "query", Name: "apiKey"}},
		{"API-KEY", Declaration{Type: "apiKey", In: "query", Name: "apiKey"}},
		{"bearer", Declaration{Type: "http", Scheme: "bearer", Name: "Authorization"}},
		{"oauth2", Declaration{Type: "http", Scheme: "bearer", Name: "Authorization"}},
	}
	for _, tc := range cases {
		got := Resolve(&Connection{AuthType: tc.authType})
		require.Len(t, got, 1, "authType=%s", tc.authType)
		assert.Equal(t, tc.want, got[0], "authType=%s", tc.authType)
	}
}

func TestResolveUnknownAuthTypeFallsBack(t *testing.T) {
	t.Parallel()
	got := Resolve(&Connection{AuthType: "kerberos"})
	require.Len(t, got, 1)
	assert.Equal(t, DefaultDeclaration(), got[0])
}
