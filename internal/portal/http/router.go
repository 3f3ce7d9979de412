package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/metrics"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/service"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/store"
	"github.com/mothertree-labs/mothertree-oss/pkg/httpx"
	"github.com/mothertree-labs/mothertree-oss/pkg/setuptoken"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"

	_ "github.com/mothertree-labs/mothertree-oss/api/portal" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger       *slog.Logger
	validate     *validator.Validate
	buildVersion string
	startTime    time.Time

	tokens        *setuptoken.Codec
	tenantDomain  string
	internalToken string

	store     store.Store
	collector *metrics.Collector
	registry  *prometheus.Registry

	// NewLimiter builds the limiter behind a public endpoint class.
	// Defaults to the in-memory limiter; multi-instance deployments
	// inject a Redis-backed factory here.
	NewLimiter func(name string, config httpx.RateLimitConfig) httpx.Limiter

	SwapService       *service.SwapService
	RecoveryService   *service.RecoveryService
	InvitationService *service.InvitationService
	GuestService      *service.GuestService
	DirectoryService  *service.DirectoryService
}

func NewRouter(
	tokens *setuptoken.Codec,
	tenantDomain, internalToken, buildVersion string,
	st store.Store,
	collector *metrics.Collector,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		logger:        logger,
		validate:      validator.New(),
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		tokens:        tokens,
		tenantDomain:  tenantDomain,
		internalToken: internalToken,
		store:         st,
		collector:     collector,
		registry:      registry,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSetup()
	r.registerRecovery()
	r.registerGuests()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			MotherTree Account Portal API
//	@version		0.1.0
//	@description	Account lifecycle service for a passkey-only workspace: member invitations,
//	@description	guest self-registration, lost-passkey recovery and the email restoration gate
//	@description	that enrollment links route through.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	InternalAuth
//	@in							header
//	@name						X-Internal-Auth
//	@description				Shared secret for operator endpoints, injected by the internal ingress.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSetup() {
	// The gate does its own rate limiting so parameter validation can
	// run first and a malformed request never burns a limiter slot.
	r.Mux.Handle("GET /beginSetup", &BeginSetupHandler{
		SwapService:  r.SwapService,
		Tokens:       r.tokens,
		Limiter:      r.limiter("setup", httpx.SetupLimit),
		Metrics:      r.collector,
		TenantDomain: r.tenantDomain,
	})
}

func (r *Router) registerRecovery() {
	r.Mux.Handle("POST /api/recovery",
		httpx.Chain(&RecoveryHandler{
			RecoveryService: r.RecoveryService,
			Validate:        r.validate,
		},
			httpx.RateLimitWith(httpx.ModerateLimit, r.limiter("recovery", httpx.ModerateLimit), httpx.IPKeyExtractor),
		),
	)
}

func (r *Router) registerGuests() {
	r.Mux.Handle("POST /api/guests",
		httpx.Chain(&GuestHandler{
			GuestService: r.GuestService,
			Validate:     r.validate,
		},
			httpx.RateLimitWith(httpx.GuestLimit, r.limiter("guest", httpx.GuestLimit), httpx.IPKeyExtractor),
		),
	)
}

func (r *Router) registerUsers() {
	internal := httpx.RequireInternalAuth(r.internalToken)

	r.Mux.Handle("GET /api/users",
		httpx.Chain(&ListUsersHandler{DirectoryService: r.DirectoryService}, internal),
	)
	r.Mux.Handle("POST /api/users",
		httpx.Chain(&InviteHandler{
			InvitationService: r.InvitationService,
			Validate:          r.validate,
		}, internal),
	)
	r.Mux.Handle("POST /api/users/{id}/invite",
		httpx.Chain(&ResendInviteHandler{InvitationService: r.InvitationService}, internal),
	)
	r.Mux.Handle("DELETE /api/users/{id}",
		httpx.Chain(&DeleteUserHandler{DirectoryService: r.DirectoryService}, internal),
	)
	r.Mux.Handle("GET /api/audit",
		httpx.Chain(&AuditHandler{Audit: r.auditLog()}, internal),
	)
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.HandleFunc("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))

	if r.registry != nil {
		r.Mux.Handle("GET /metrics", metrics.Handler(r.registry))
	}
}

func (r *Router) limiter(name string, config httpx.RateLimitConfig) httpx.Limiter {
	if r.NewLimiter != nil {
		return r.NewLimiter(name, config)
	}
	return httpx.NewMemoryLimiter(config)
}

func (r *Router) auditLog() store.AuditLog {
	if r.store == nil {
		return store.NoopAudit{}
	}
	return r.store.Audit()
}
