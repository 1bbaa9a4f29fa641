package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"lucky-agents/internal/broadcast"
	"lucky-agents/internal/executor"
	"lucky-agents/internal/registry"
	"lucky-agents/internal/store"
)

func newRouter(st *store.Store, reg *registry.Service, exec *executor.Executor, hub *broadcast.Hub, adminKey string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", healthHandler(st))
	r.Get("/ws", http.HandlerFunc(hub.HandleWS))

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())
		r.Use(bodyCaptureMiddleware(4096))

		r.Get("/round", roundHandler(exec))

		r.Post("/agents", createAgentHandler(reg))
		r.Route("/agents/{owner}", func(r chi.Router) {
			r.Get("/", getAgentHandler(reg))
			r.Post("/enable", enableAgentHandler(reg))
			r.Post("/disable", disableAgentHandler(reg))
			r.Patch("/config", updateConfigHandler(reg))
			r.Post("/deposit", depositHandler(reg))
			r.Post("/withdraw", withdrawHandler(reg, exec))
			r.Get("/history", historyHandler(reg))
		})

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(adminKey))
			r.Get("/admin/agents", listAgentsHandler(reg))
		})
	})

	return r
}
