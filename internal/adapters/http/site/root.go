// Package site serves the embedded browser front end.
package site

import (
	"context"
	"net/http"
)

// Register serves the front end at / with index.html as the landing page.
// Paths without a matching asset return 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("/", http.FileServer(FS()))
}
