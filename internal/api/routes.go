package api

import (
	"net/http"

	"github.com/backofhouse/steward/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Standards.Handler().Routes(),
		domain.Feedback.Handler().Routes(),
		domain.Signals.Handler().Routes(),
		domain.Events.Handler().Routes(),
		domain.Escalations.Handler().Routes(),
		domain.Inbox.Handler().Routes(),
	)
}
