// Package web holds the single page of the web widget. The page is a thin
// painter: it forwards keystrokes and sends over the websocket and draws each
// view the server pushes.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var content embed.FS

// Handler serves the embedded page at "/" and its assets below it.
func Handler() http.Handler {
	static, err := fs.Sub(content, "static")
	if err != nil {
		panic(err) // embedded path is fixed at build time
	}
	return http.FileServer(http.FS(static))
}
