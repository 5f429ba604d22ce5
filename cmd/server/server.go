package main

import (
	"context"
	"fmt"
	"time"

	"github.com/backofhouse/steward/internal/config"
	"github.com/backofhouse/steward/internal/infrastructure"
)

type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	modules, err := NewModules(ctx, infra, cfg)
	if err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}

	router, err := buildRouter(infra)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go s.announceReady()
	return nil
}

// announceReady logs once every subsystem has reported startup, so
// operators can tell a listening server from a ready one.
func (s *Server) announceReady() {
	s.infra.Lifecycle.WaitForStartup()
	s.infra.Logger.Info("all subsystems ready")
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
