// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"net/http"

	"github.com/backofhouse/steward/internal/config"
	"github.com/backofhouse/steward/internal/infrastructure"
	"github.com/backofhouse/steward/pkg/middleware"
	"github.com/backofhouse/steward/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The context is used for OIDC issuer discovery when auth runs in oidc mode.
func NewModule(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, err
	}

	auth, err := middleware.NewAuthenticator(ctx, &cfg.Auth, infra.Logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))
	m.Use(limitBody(cfg.API.MaxBodySizeBytes()))
	m.Use(auth.Middleware())

	return m, nil
}

func limitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, limit)
	}
}
