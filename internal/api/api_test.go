package api_test

import (
	"context"
	"testing"

	"github.com/backofhouse/steward/internal/api"
	"github.com/backofhouse/steward/internal/config"
	"github.com/backofhouse/steward/internal/infrastructure"
	"github.com/backofhouse/steward/pkg/database"
	"github.com/backofhouse/steward/pkg/middleware"
	"github.com/backofhouse/steward/pkg/pagination"
	"github.com/backofhouse/steward/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=stewardstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/stewardstore;"

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "1m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "steward",
			User:            "steward",
			Password:        "steward",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "briefings",
			ConnectionString: azuriteConnString,
		},
		API: config.APIConfig{
			BasePath:    "/api",
			MaxBodySize: "4MB",
			CORS: middleware.CORSConfig{
				Enabled: false,
			},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
		},
		Auth: middleware.AuthConfig{
			Mode:          middleware.AuthModeHeader,
			TenantHeader:  "X-Steward-Tenant",
			SubjectHeader: "X-Steward-Subject",
			RolesHeader:   "X-Steward-Roles",
		},
		Enforcement: config.EnforcementConfig{
			ConfidenceFloor:  0.5,
			SweepConcurrency: 4,
		},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)

	m, err := api.NewModule(context.Background(), cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Pagination.MaxPageSize != 100 {
		t.Errorf("pagination max page size: got %d, want 100", runtime.Pagination.MaxPageSize)
	}
	if runtime.Logger == nil {
		t.Error("runtime logger is nil")
	}
	if runtime.Database == nil {
		t.Error("runtime database is nil")
	}
	if runtime.Storage == nil {
		t.Error("runtime storage is nil")
	}
	if runtime.Lifecycle == nil {
		t.Error("runtime lifecycle is nil")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)
	runtime := api.NewRuntime(cfg, infra)

	domain, err := api.NewDomain(cfg, runtime)
	if err != nil {
		t.Fatalf("NewDomain() error = %v", err)
	}

	if domain.Standards == nil {
		t.Error("Standards is nil")
	}
	if domain.Events == nil {
		t.Error("Events is nil")
	}
	if domain.Feedback == nil {
		t.Error("Feedback is nil")
	}
	if domain.Signals == nil {
		t.Error("Signals is nil")
	}
	if domain.Escalations == nil {
		t.Error("Escalations is nil")
	}
	if domain.Inbox == nil {
		t.Error("Inbox is nil")
	}
}

func TestNewDomainBadPolicyPath(t *testing.T) {
	cfg := validConfig()
	cfg.Enforcement.PolicyPath = "/nonexistent/policy.yaml"
	infra := setupInfra(t)
	runtime := api.NewRuntime(cfg, infra)

	if _, err := api.NewDomain(cfg, runtime); err == nil {
		t.Fatal("expected error for missing policy pack")
	}
}

func TestBuildSpec(t *testing.T) {
	cfg := validConfig()
	cfg.API.OpenAPI.Title = "Steward API"
	cfg.API.OpenAPI.Description = "Enforcement API"

	spec := api.BuildSpec(cfg)

	if spec.Info.Title != "Steward API" {
		t.Errorf("title: got %s, want Steward API", spec.Info.Title)
	}
	if spec.Info.Version != "0.1.0" {
		t.Errorf("version: got %s, want 0.1.0", spec.Info.Version)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "/api" {
		t.Errorf("expected single /api server, got %+v", spec.Servers)
	}

	for _, pattern := range []string{
		"/signals",
		"/signals/{id}",
		"/feedback",
		"/feedback/{id}/audit",
		"/standards/resolve",
		"/standards/resolve-set",
		"/escalations/sweep",
		"/inbox",
		"/briefings",
		"/gate",
	} {
		if _, ok := spec.Paths[pattern]; !ok {
			t.Errorf("expected path %s in spec", pattern)
		}
	}

	for _, schema := range []string{"Signal", "FeedbackObject", "LedgerEvent", "GateDecision"} {
		if _, ok := spec.Components.Schemas[schema]; !ok {
			t.Errorf("expected schema %s in spec components", schema)
		}
	}
}
