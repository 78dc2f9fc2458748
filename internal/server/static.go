package server

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
)

// SPAHandler serves a built front-end from disk and falls back to index.html
// for extensionless paths that don't match a file, so client-side routes load.
type SPAHandler struct {
	fileServer http.Handler
	filesystem fs.FS
}

// NewSPAHandler serves the directory dir.
func NewSPAHandler(dir string) (*SPAHandler, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat static dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static dir %q is not a directory", dir)
	}
	fsys := os.DirFS(dir)
	return &SPAHandler{
		fileServer: http.FileServer(http.FS(fsys)),
		filesystem: fsys,
	}, nil
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path
	if urlPath == "/" {
		h.fileServer.ServeHTTP(w, r)
		return
	}

	if _, err := fs.Stat(h.filesystem, urlPath[1:]); err == nil {
		h.fileServer.ServeHTTP(w, r)
		return
	}

	// Missing files with an extension are real asset requests.
	if path.Ext(urlPath) != "" {
		http.NotFound(w, r)
		return
	}

	r2 := r.Clone(r.Context())
	r2.URL.Path = "/"
	h.fileServer.ServeHTTP(w, r2)
}
