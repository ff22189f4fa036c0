// Package security derives authentication declarations for tools from
// connection records and auth-type heuristics.
package security

import "strings"

// Declaration describes a single OpenAPI-style security scheme binding.
type Declaration struct {
	Type   string `json:"type"`
	In     string `json:"in,omitempty"`
	Scheme string `json:"scheme,omitempty"`
	Name   string `json:"name"`
}

// Connection is a stored credential configuration owned by the remote
// service. This package only reads and projects it.
type Connection struct {
	ConnectionID string        `json:"connection_id"`
	AppID        string        `json:"app_id"`
	Security     []Declaration `json:"security,omitempty"`
	Scheme       *Declaration  `json:"scheme,omitempty"`
	AuthType     string        `json:"auth_type,omitempty"`
}

// DefaultDeclaration is the scheme assumed when nothing else is known.
// Downstream surfaces always need something to display, so Resolve never
// returns an empty result.
func DefaultDeclaration() Declaration {
	return Declaration{Type: "apiKey", In: "query", Name: "apiKey"}
}

// Resolve projects a connection record into security declarations.
//
// Precedence: the connection's own security array, then a directly exposed
// scheme object, then an auth-type heuristic, then the default. Resolve never
// fails; absence of information degrades to the default.
func Resolve(conn *Connection) []Declaration {
	if conn == nil {
		return []Declaration{DefaultDeclaration()}
	}
	if len(conn.Security) > 0 {
		out := make([]Declaration, len(conn.Security))
		copy(out, conn.Security)
		return out
	}
	if conn.Scheme != nil && conn.Scheme.Type != "" {
		return []Declaration{*conn.Scheme}
	}
	if d, ok := fromAuthType(conn.AuthType); ok {
		return []Declaration{d}
	}
	return []Declaration{DefaultDeclaration()}
}

func fromAuthType(authType string) (Declaration, bool) {
	switch strings.ToLower(strings.TrimSpace(authType)) {
	case "api_key", "apikey", "api-key":
		return Declaration{Type: "apiKey", In: "query", Name: "apiKey"}, true
	case "bearer", "oauth2":
		return Declaration{Type: "http", Scheme: "bearer", Name: "Authorization"}, true
	}
	return Declaration{}, false
}
