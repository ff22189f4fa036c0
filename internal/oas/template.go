package oas

// Template is the starting document offered when authoring a tool from
// scratch. It shows one GET operation with a query parameter and an API key
// scheme, which is the shape most generated tools end up with.
const Template = `{
  "openapi": "3.0.0",
  "info": {
    "title": "My Tool",
    "description": "Describe what this tool does",
    "version": "1.0.0"
  },
  "servers": [
    {"url": "https://api.example.com/v1"}
  ],
  "paths": {
    "/search": {
      "get": {
        "operationId": "search",
        "summary": "Search",
        "parameters": [
          {
            "name": "q",
            "in": "query",
            "required": true,
            "schema": {"type": "string"}
          }
        ],
        "responses": {
          "200": {
            "description": "Successful response",
            "content": {
              "application/json": {
                "schema": {"type": "object"}
              }
            }
          }
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "ApiKeyAuth": {"type": "apiKey", "in": "query", "name": "apiKey"}
    }
  },
  "security": [{"ApiKeyAuth": []}]
}
`
