package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/photka-support-ai/internal/conversation"
	"github.com/wolfman30/photka-support-ai/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/photka-support-ai/internal/http/middleware"
	"github.com/wolfman30/photka-support-ai/internal/webchat"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	HealthHandler      *handlers.HealthHandler
	SupportChat        *conversation.Handler
	WebChat            *webchat.Handler
	Unread             *handlers.UnreadHandler
	MetricsHandler     http.Handler
	RateLimiter        *httpmiddleware.RateLimiter
	CORSAllowedOrigins []string
	AuthJWTSecret      string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		health := cfg.HealthHandler
		if health == nil {
			health = handlers.NewHealthHandler(nil)
		}
		public.Get("/health", health.Get)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// User routes (HMAC JWT issued by the photka app)
	r.Group(func(user chi.Router) {
		user.Use(httpmiddleware.UserJWT(cfg.AuthJWTSecret))
		if cfg.RateLimiter != nil {
			user.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}

		if cfg.SupportChat != nil {
			user.Route("/support/chat", func(chat chi.Router) {
				chat.Post("/", cfg.SupportChat.Open)
				chat.Get("/", cfg.SupportChat.Get)
				chat.Post("/messages", cfg.SupportChat.Submit)
				chat.Post("/actions", cfg.SupportChat.Action)
				if cfg.WebChat != nil {
					chat.Get("/ws", cfg.WebChat.HandleWebSocket)
				}
			})
		}
		if cfg.Unread != nil {
			user.Route("/me/unread", func(me chi.Router) {
				me.Get("/", cfg.Unread.Get)
				me.Post("/activity/seen", cfg.Unread.ActivitySeen)
				me.Post("/messages/read", cfg.Unread.MessagesRead)
			})
		}
	})

	return r
}
