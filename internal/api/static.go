package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// spaHandler serves the built client and falls back to index.html so that
// client-side routes survive a reload.
type spaHandler struct {
	dir   string
	files http.Handler
}

// newSPAHandler returns nil when dir has no index.html.
func newSPAHandler(dir string) http.Handler {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		return nil
	}
	return &spaHandler{dir: dir, files: http.FileServer(http.Dir(dir))}
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if clean != "/" {
		info, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))))
		if err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
			return
		}
	}
	h.files.ServeHTTP(w, r)
}
