package routes

import (
	"net/http"

	"github.com/brdc/darts-league/handlers"
	"github.com/brdc/darts-league/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Config struct {
	JWTSecret      string
	AllowedOrigins []string
	ResultLimiter  *middleware.RateLimiter
}

func SetupRoutes(
	router *chi.Mux,
	cfg Config,
	bracketHandler *handlers.BracketHandler,
	webSocketHandler *handlers.WebSocketHandler,
	healthHandler *handlers.HealthHandler,
	metricsHandler http.Handler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", healthHandler.Healthz)
	router.Handle("/metrics", metricsHandler)
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	organizerOnly := []func(http.Handler) http.Handler{
		middleware.Authenticate(cfg.JWTSecret),
		middleware.Authorize(middleware.RoleOrganizer, middleware.RoleAdmin),
	}

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		// Публичный просмотр сетки
		r.Get("/bracket", bracketHandler.GetBracket)

		// Защищенные маршруты только для организаторов
		r.Group(func(r chi.Router) {
			r.Use(organizerOnly...)

			r.Post("/bracket", bracketHandler.GenerateBracket)
			r.Post("/matches/{matchID}/start", bracketHandler.StartMatch)

			if cfg.ResultLimiter != nil {
				r.With(cfg.ResultLimiter.Middleware).Post("/matches/{matchID}/result", bracketHandler.SubmitResult)
			} else {
				r.Post("/matches/{matchID}/result", bracketHandler.SubmitResult)
			}
		})
	})
}
