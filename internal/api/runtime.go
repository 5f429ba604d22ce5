package api

import (
	"github.com/backofhouse/steward/internal/config"
	"github.com/backofhouse/steward/internal/infrastructure"
	"github.com/backofhouse/steward/pkg/pagination"
)

// Runtime is the Infrastructure as seen by the API module, with a scoped
// logger and the pagination settings shared by every listing endpoint.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime derives an API runtime from the shared infrastructure.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")
	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
	}
}
