// Package api holds the OpenAPI description of the HTTP API.
package api

import _ "embed"

//go:embed openapi.yaml
var Spec []byte
