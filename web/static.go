// Package web embeds the single-page roster UI served at "/".
package web

import _ "embed"

// IndexHTML is the roster page. It is served as-is, with no templating.
//
//go:embed static/index.html
var IndexHTML []byte
