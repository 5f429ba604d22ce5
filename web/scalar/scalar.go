// Package scalar serves the Scalar API reference UI.
package scalar

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/backofhouse/steward/pkg/module"
	"github.com/backofhouse/steward/pkg/openapi"
	"github.com/backofhouse/steward/pkg/routes"
	"github.com/backofhouse/steward/pkg/web"
)

//go:embed index.html static
var staticFS embed.FS

// NewModule creates a module that serves the Scalar API reference UI at
// basePath, along with the OpenAPI document it renders. The document is
// served here rather than inside the API module so the reference loads
// without credentials.
func NewModule(basePath string, spec []byte) *module.Module {
	router := buildRouter(basePath, spec)
	return module.New(basePath, router)
}

func buildRouter(basePath string, spec []byte) http.Handler {
	mux := http.NewServeMux()

	tmpl := template.Must(template.ParseFS(staticFS, "index.html"))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		tmpl.Execute(w, map[string]string{"BasePath": basePath})
	})

	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))

	routes.Register(mux, routes.Group{
		Routes: web.PublicFileRoutes(staticFS, "static", "scalar.js", "scalar.css"),
	})

	return mux
}
