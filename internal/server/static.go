package server

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

//go:embed static
var embedded embed.FS

// staticHandler serves dir when it holds an index.html, otherwise the
// embedded page.
func staticHandler(dir string, logger *slog.Logger) http.Handler {
	fsys := pageFS(dir)
	if dir != "" {
		logger.Debug("static files", slog.String("dir", dir), slog.Bool("embedded", fsys == nil))
	}
	if fsys == nil {
		sub, err := fs.Sub(embedded, "static")
		if err != nil {
			panic(err)
		}
		fsys = sub
	}

	files := http.FileServerFS(fsys)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func pageFS(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(filepath.Join(dir, "index.html"))
	if err != nil || info.IsDir() {
		return nil
	}
	return os.DirFS(dir)
}
