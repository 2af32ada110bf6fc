package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"studyhub/internal/api/handler"
	customMiddleware "studyhub/internal/api/middleware"
	"studyhub/internal/config"
	"studyhub/internal/metrics"
	"studyhub/internal/repository/redis"
	"studyhub/internal/security"
	"studyhub/internal/service"
)

// Deps carries everything the router wires into handlers. Services are
// built in main so the responder worker and background jobs share them.
type Deps struct {
	Config     *config.Config
	Redis      *redis.Client
	Sessions   *service.SessionService
	Membership *service.MembershipService
	Presence   *service.PresenceService
	Chat       *service.ChatService
	Notes      *service.NotesService
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	verifier := security.NewTokenVerifier(cfg.Auth.JWTSecret)
	rateLimiter := redis.NewRateLimiter(
		deps.Redis,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(deps.Sessions)
	memberHandler := handler.NewMemberHandler(deps.Membership, deps.Presence)
	chatHandler := handler.NewChatHandler(deps.Chat)
	notesHandler := handler.NewNotesHandler(deps.Notes)
	eventsHandler := handler.NewEventsHandler(deps.Sessions, deps.Chat, deps.Notes)

	authMiddleware := customMiddleware.NewAuthMiddleware(verifier)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Redis))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Route("/sessions", func(r chi.Router) {
				r.With(middleware.Timeout(cfg.Server.MiddlewareTimeout)).Post("/", sessionHandler.Create)

				r.Route("/{sessionCode}", func(r chi.Router) {
					r.Use(customMiddleware.SessionContext)

					// The events stream outlives the request timeout;
					// everything else gets the usual deadline.
					r.Get("/events", eventsHandler.Stream)

					r.Group(func(r chi.Router) {
						r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

						r.Get("/", sessionHandler.Get)
						r.Post("/end", sessionHandler.End)
						r.Delete("/", sessionHandler.Delete)
						r.Get("/archive", sessionHandler.Archive)

						r.Post("/join", memberHandler.Join)
						r.Post("/leave", memberHandler.Leave)
						r.Get("/members", memberHandler.List)
						r.Post("/heartbeat", memberHandler.Heartbeat)

						r.Route("/messages", func(r chi.Router) {
							r.Get("/", chatHandler.History)
							r.Post("/", chatHandler.Post)
							r.Delete("/", chatHandler.Clear)
						})
						r.Post("/typing", chatHandler.Typing)

						r.Route("/notes", func(r chi.Router) {
							r.Get("/", notesHandler.List)
							r.Post("/", notesHandler.Create)

							r.Route("/{noteID}", func(r chi.Router) {
								r.Patch("/", notesHandler.Update)
								r.Post("/move", notesHandler.Move)
								r.Delete("/", notesHandler.Delete)
							})
						})
					})
				})
			})
		})
	})

	return r
}
