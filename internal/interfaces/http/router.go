package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ipede/authz-server/internal/application"
	"github.com/ipede/authz-server/internal/domain"
	"github.com/ipede/authz-server/internal/infrastructure/database"
	"github.com/ipede/authz-server/internal/infrastructure/repository"
	"github.com/ipede/authz-server/internal/infrastructure/token"
	"github.com/ipede/authz-server/internal/interfaces/http/handlers"
	"go.uber.org/zap"
)

// Router wires the OAuth endpoints to the core services
type Router struct {
	router *chi.Mux
	db     *database.Postgres
}

// NewRouter builds the service graph and the chi route tree
func NewRouter(
	db *database.Postgres,
	sessions domain.SessionStore,
	registry *domain.AuthnRegistry,
	keys domain.SigningKeyProvider,
	logger *zap.Logger,
) *Router {
	clientRepo := repository.NewClientRepository(db, logger)
	tokenModelRepo := repository.NewTokenModelRepository(db, logger)
	generator := token.NewGenerator(keys, logger)
	flowService := application.NewFlowService(sessions, registry, logger)
	grantService := application.NewGrantService(sessions, generator, registry, logger)
	oauthHandler := handlers.NewOAuthHandler(clientRepo, tokenModelRepo, flowService, grantService, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// Health check endpoints
	router.Group(func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := db.Ping(); err != nil {
				logger.Error("Database health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("Database connection failed"))
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Ready"))
		})

		r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Alive"))
		})
	})

	router.Route("/oauth", func(r chi.Router) {
		r.Get("/authorize", oauthHandler.AuthorizeHandler)
		r.Get("/callback/{callbackID}", oauthHandler.CallbackHandler)
		r.Post("/callback/{callbackID}", oauthHandler.CallbackHandler)
		r.Post("/token", oauthHandler.TokenHandler)
	})

	return &Router{
		router: router,
		db:     db,
	}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
