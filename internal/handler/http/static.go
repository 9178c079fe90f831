package http

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

const indexFile = "index.html"

// StaticHandler serves the built frontend from a directory. Paths without a
// file extension that match no file are client-side routes and get
// index.html.
type StaticHandler struct {
	fsys  fs.FS
	files http.Handler
}

// NewStaticHandler serves the built frontend from dir.
func NewStaticHandler(dir string) *StaticHandler {
	return newStaticHandler(os.DirFS(dir))
}

func newStaticHandler(fsys fs.FS) *StaticHandler {
	return &StaticHandler{fsys: fsys, files: http.FileServerFS(fsys)}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = indexFile
	}

	if _, err := fs.Stat(h.fsys, name); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, h.fsys, indexFile)
		return
	}
	h.files.ServeHTTP(w, r)
}
