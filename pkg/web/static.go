// Package web serves embedded static assets over HTTP.
package web

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/backofhouse/steward/pkg/routes"
)

// DistServer serves everything under subdir of the embedded filesystem,
// stripping urlPrefix from incoming paths. Panics when subdir does not
// exist, which is a build error rather than a runtime condition.
func DistServer(fsys embed.FS, subdir, urlPrefix string) http.HandlerFunc {
	sub, err := fs.Sub(fsys, subdir)
	if err != nil {
		panic("failed to create sub-filesystem: " + err.Error())
	}
	server := http.StripPrefix(urlPrefix, http.FileServer(http.FS(sub)))
	return server.ServeHTTP
}

// PublicFile serves one file from the embedded filesystem, answering 404
// when the file is absent.
func PublicFile(fsys embed.FS, subdir, filename string) http.HandlerFunc {
	path := subdir + "/" + filename
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fsys.ReadFile(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, filename, time.Time{}, bytes.NewReader(data))
	}
}

// PublicFileRoutes exposes each named file at a root-level GET route.
func PublicFileRoutes(fsys embed.FS, subdir string, files ...string) []routes.Route {
	rs := make([]routes.Route, 0, len(files))
	for _, file := range files {
		rs = append(rs, routes.Route{
			Method:  http.MethodGet,
			Pattern: "/" + file,
			Handler: PublicFile(fsys, subdir, file),
		})
	}
	return rs
}

// ServeEmbeddedFile serves raw bytes under a fixed content type.
func ServeEmbeddedFile(data []byte, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}
