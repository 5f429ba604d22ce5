package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"

	"github.com/backofhouse/steward/pkg/handlers"
)

// Principal errors surfaced as 401 responses.
var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidTenant      = errors.New("invalid tenant identifier")
	ErrMissingSubject     = errors.New("missing subject")
)

// Principal identifies the authenticated caller: the tenant it acts for,
// a stable subject identifier, and its granted roles.
type Principal struct {
	TenantID uuid.UUID
	Subject  string
	Roles    []string
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

type principalKey struct{}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extracts the principal from the context.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticator resolves the caller principal for each request, either
// from trusted gateway headers or from a verified OIDC bearer token.
type Authenticator struct {
	cfg      *AuthConfig
	logger   *slog.Logger
	verifier *oidc.IDTokenVerifier
}

// NewAuthenticator creates an Authenticator. In oidc mode it performs
// issuer discovery, so it requires a context and network access.
func NewAuthenticator(ctx context.Context, cfg *AuthConfig, logger *slog.Logger) (*Authenticator, error) {
	a := &Authenticator{
		cfg:    cfg,
		logger: logger.With("middleware", "principal"),
	}

	if cfg.Mode == AuthModeOIDC {
		provider, err := oidc.NewProvider(ctx, cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("discover oidc issuer: %w", err)
		}
		a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Audience})
	}

	return a, nil
}

// Middleware returns the principal resolution middleware. Requests without
// a resolvable principal are rejected with 401.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.resolve(r)
			if err != nil {
				handlers.RespondError(w, a.logger, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func (a *Authenticator) resolve(r *http.Request) (Principal, error) {
	if a.cfg.Mode == AuthModeOIDC {
		return a.fromToken(r)
	}
	return a.fromHeaders(r)
}

func (a *Authenticator) fromHeaders(r *http.Request) (Principal, error) {
	tenant := r.Header.Get(a.cfg.TenantHeader)
	if tenant == "" {
		return Principal{}, ErrMissingCredentials
	}

	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return Principal{}, ErrInvalidTenant
	}

	subject := r.Header.Get(a.cfg.SubjectHeader)
	if subject == "" {
		return Principal{}, ErrMissingSubject
	}

	return Principal{
		TenantID: tenantID,
		Subject:  subject,
		Roles:    splitList(r.Header.Get(a.cfg.RolesHeader)),
	}, nil
}

func (a *Authenticator) fromToken(r *http.Request) (Principal, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return Principal{}, ErrMissingCredentials
	}

	token, err := a.verifier.Verify(r.Context(), raw)
	if err != nil {
		return Principal{}, fmt.Errorf("verify token: %w", err)
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return Principal{}, fmt.Errorf("parse claims: %w", err)
	}

	tenant, _ := claims[a.cfg.TenantClaim].(string)
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return Principal{}, ErrInvalidTenant
	}

	if token.Subject == "" {
		return Principal{}, ErrMissingSubject
	}

	return Principal{
		TenantID: tenantID,
		Subject:  token.Subject,
		Roles:    rolesFromClaim(claims[a.cfg.RolesClaim]),
	}, nil
}

func rolesFromClaim(claim any) []string {
	switch v := claim.(type) {
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				roles = append(roles, s)
			}
		}
		return roles
	case string:
		return splitList(v)
	default:
		return nil
	}
}
