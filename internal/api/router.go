package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(apiHandler *APIHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	// All API routes live under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.AuthMiddleware)

			r.Get("/users/me", apiHandler.GetCurrentUserHandler)

			// Journal routes
			r.Get("/logs", apiHandler.ListLogsHandler)
			r.Post("/logs", apiHandler.CreateThoughtHandler)

			// Chat routes
			r.Get("/chats", apiHandler.ListChatsHandler)
			r.Post("/chats", apiHandler.CreateChatHandler)
			r.Delete("/chats/{chatID}", apiHandler.DeleteChatHandler)
			r.Post("/chats/{chatID}/pin", apiHandler.TogglePinHandler)
			r.Get("/chats/{chatID}/messages", apiHandler.ListMessagesHandler)
			r.Post("/chats/{chatID}/messages", apiHandler.AppendMessageHandler)

			// Agent route
			r.Post("/agent/analyze", apiHandler.AnalyzeHandler)
		})
	})

	return r
}
