package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	callHandler "github.com/proptalk/backend/internal/handler/call"
	"github.com/proptalk/backend/internal/handler/webhook"
	middlewarePkg "github.com/proptalk/backend/internal/middleware"
	"github.com/proptalk/backend/internal/service/conversation"
	"github.com/proptalk/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(webhooks *webhook.Handler, callsH *callHandler.Handler, state *conversation.State) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		stats := state.Stats()
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":            "ok",
			"activeCalls":       stats.Total,
			"activeCallsByType": map[string]int{"inbound": stats.Inbound, "outbound": stats.Outbound},
		})
	})

	r.Route("/webhooks/twilio", func(wr chi.Router) {
		webhooks.RegisterRoutes(wr)
	})

	r.Route("/api", func(api chi.Router) {
		callsH.RegisterRoutes(api)
	})

	return r
}
