package routes

import (
	"net/http"

	"github.com/Aitbek01/arena-gauntlet/handlers"
	"github.com/Aitbek01/arena-gauntlet/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes wires every handler into the router. Queue and duel
// creation require authentication; pipeline transitions are driven by
// the in-process ticker and exposed here for operators.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	queueHandler *handlers.QueueHandler,
	runHandler *handlers.RunHandler,
	schedulerHandler *handlers.SchedulerHandler,
	gauntletHandler *handlers.GauntletHandler,
	ratingHandler *handlers.RatingHandler,
	rewardHandler *handlers.RewardHandler,
	duelHandler *handlers.DuelHandler,
	webSocketHandler *handlers.WebSocketHandler,
	metricsHandler http.Handler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Route("/queue", func(r chi.Router) {
		r.Get("/", queueHandler.ListHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/join", queueHandler.JoinHandler)
			r.Post("/leave", queueHandler.LeaveHandler)
		})
	})

	router.Route("/runs", func(r chi.Router) {
		r.Get("/", runHandler.ListHandler)
		r.Get("/{runID}", runHandler.GetByIDHandler)
	})

	router.Route("/scheduler", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/commit", schedulerHandler.CommitHandler)
		r.Post("/select", schedulerHandler.SelectHandler)
		r.Post("/execute", schedulerHandler.ExecuteHandler)
		r.Post("/recover", schedulerHandler.RecoverHandler)
	})

	router.Route("/gauntlet", func(r chi.Router) {
		r.Get("/pending", gauntletHandler.PendingHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/trigger", gauntletHandler.TriggerHandler)
			r.Post("/{runID}/select", gauntletHandler.SelectHandler)
			r.Post("/{runID}/execute", gauntletHandler.ExecuteHandler)
			r.Post("/{runID}/recover", gauntletHandler.RecoverHandler)
		})
	})

	router.Route("/ratings", func(r chi.Router) {
		r.Get("/leaderboard", ratingHandler.LeaderboardHandler)
		r.Get("/{competitorID}", ratingHandler.CompetitorRatingHandler)
	})

	router.Route("/rewards", func(r chi.Router) {
		r.Get("/policies/{tier}", rewardHandler.GetPolicyHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Put("/policies/{tier}", rewardHandler.UpdatePolicyHandler)
		})
	})

	router.Route("/duels", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/", duelHandler.CreateHandler)
		r.Post("/{duelID}/resolve", duelHandler.ResolveHandler)
	})

	router.Get("/ws", webSocketHandler.ServeGlobal)
	router.Get("/ws/runs/{runID}", webSocketHandler.ServeRun)

	router.Handle("/metrics", metricsHandler)
}
