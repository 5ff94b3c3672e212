// Package site serves the embedded operator console.
package site

import (
	"context"
	"net/http"
)

// Register attaches the console at the root path. It must be registered
// after the API so that specific routes win.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", http.FileServer(FS()))
}
