package storage

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler serves artifacts from a file backend over HTTP so reports can
// link to baseline/current/diff images. Only PNG files are served.
func Handler(backend *FileBackend) http.Handler {
	fileServer := http.FileServer(http.Dir(backend.Root()))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Get("/artifacts/*", func(w http.ResponseWriter, req *http.Request) {
		rest := chi.URLParam(req, "*")
		if !strings.HasSuffix(rest, ".png") || strings.Contains(rest, "..") {
			http.NotFound(w, req)
			return
		}
		req.URL.Path = "/" + rest
		// Artifacts at a given key are overwritten between runs; keep the
		// client cache window short.
		w.Header().Set("Cache-Control", "public, max-age=300")
		fileServer.ServeHTTP(w, req)
	})
	return r
}
