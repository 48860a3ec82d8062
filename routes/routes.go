package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markovtsev/ladder-system/handlers"
	"github.com/markovtsev/ladder-system/middleware"
)

// SetupRoutes mounts the full API surface on the router. Authentication is
// required for everything except signup, login, public season reads and the
// websocket endpoint.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	seasonHandler *handlers.SeasonHandler,
	ladderHandler *handlers.LadderHandler,
	challengeHandler *handlers.ChallengeHandler,
	matchHandler *handlers.MatchHandler,
	playoffHandler *handlers.PlayoffHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticator(jwtSecret)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Get("/ws/seasons/{seasonID}", webSocketHandler.ServeWs)

	router.Route("/seasons", func(r chi.Router) {
		r.Get("/active", seasonHandler.GetActive)
		r.Get("/{seasonID}", seasonHandler.GetByID)
		r.Get("/{seasonID}/ladder", ladderHandler.Standings)
		r.Get("/{seasonID}/ladder/{userID}", ladderHandler.GetPosition)
		r.Get("/{seasonID}/challenges", challengeHandler.ListBySeason)
		r.Get("/{seasonID}/matches", matchHandler.ListBySeason)
		r.Get("/{seasonID}/bracket", playoffHandler.GetBracket)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/{seasonID}/wildcards", challengeHandler.WildcardsRemaining)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireAdmin)
			r.Post("/", seasonHandler.Create)
			r.Post("/{seasonID}/activate", seasonHandler.Activate)
			r.Post("/{seasonID}/ladder", ladderHandler.InsertPlayer)
			r.Delete("/{seasonID}/ladder/{userID}", ladderHandler.RemovePlayer)
			r.Post("/{seasonID}/ladder/repair", ladderHandler.RepairPositions)
			r.Post("/{seasonID}/playoffs", playoffHandler.Start)
		})
	})

	router.Route("/challenges", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/", challengeHandler.Create)
		r.Get("/{challengeID}", challengeHandler.GetByID)
		r.Post("/{challengeID}/accept", challengeHandler.Accept)
		r.Post("/{challengeID}/decline", challengeHandler.Decline)
		r.Post("/{challengeID}/withdraw", challengeHandler.Withdraw)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{matchID}/score", matchHandler.SubmitScore)
			r.Post("/{matchID}/dispute", matchHandler.Dispute)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireAdmin)
			r.Post("/{matchID}/dispute/resolve", matchHandler.ResolveDispute)
		})
	})

	router.Route("/users", func(r chi.Router) {
		r.Get("/{userID}", userHandler.GetProfile)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", userHandler.GetMe)
			r.Post("/me/avatar", userHandler.UploadAvatar)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireAdmin)
			r.Put("/{userID}/role", userHandler.SetRole)
		})
	})
}
