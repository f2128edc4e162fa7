package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/talkvia/talkvia-be/internal/api/handlers"
	"github.com/talkvia/talkvia-be/internal/auth"
	"github.com/talkvia/talkvia-be/internal/config"
	"github.com/talkvia/talkvia-be/internal/services"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, authService services.AuthServiceProvider, eventService services.EventServiceProvider) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Session cookies need credentialed CORS for the SPA origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	secret := []byte(cfg.JWTSecret)
	cookies := auth.CookieConfig{
		Name:   cfg.CookieName,
		MaxAge: cfg.SessionTTL,
		Secure: cfg.IsProduction(),
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, secret, cfg.SessionTTL, cookies)
	eventHandler := handlers.NewEventHandler(eventService)

	requireSession := auth.Middleware(secret, cfg.CookieName)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)

			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Post("/onboard", authHandler.Onboard)
				r.Put("/onboard", authHandler.Onboard)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/events", eventHandler.GetRecent)
		})
	})

	return r
}
