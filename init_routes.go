// Package main: HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ı burada tanımlıdır:
//   - auth: bearer token doğrulaması + kullanıcı kaydı
package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/akinalp/relay/middleware"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Literal path'ler ("/api/groups/summaries", "/api/messages/starred") parametrik
// path'lerden daha spesifik olduğu için Go 1.22 router'ı onları önce eşler.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	svcs *Services,
	gatherer prometheus.Gatherer,
	log *zap.Logger,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(svcs.Auth, svcs.User, log)

	// ─── Middleware Chain Helpers ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}

	// ─── Public ───
	mux.HandleFunc("GET /api/health", h.Health.Check)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// WebSocket: tarayıcılar upgrade sırasında custom header gönderemez,
	// token ?token= query parametresiyle gelir ve WS handler kendisi doğrular.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)

	// ─── Conversations ───
	mux.Handle("GET /api/conversations", auth(h.Conversation.List))
	mux.Handle("GET /api/groups/summaries", auth(h.Conversation.GroupSummaries))

	// ─── Direct Messages ───
	mux.Handle("GET /api/users/{id}/messages", auth(h.DM.List))
	mux.Handle("POST /api/users/{id}/messages", auth(h.DM.Send))
	mux.Handle("POST /api/users/{id}/read", auth(h.DM.MarkRead))
	mux.Handle("POST /api/users/{id}/clear", auth(h.DM.ClearHistory))

	mux.Handle("GET /api/messages/starred", auth(h.DM.Starred))
	mux.Handle("GET /api/messages/{id}", auth(h.DM.Get))
	mux.Handle("PATCH /api/messages/{id}", auth(h.DM.Edit))
	mux.Handle("POST /api/messages/{id}/delete-for-me", auth(h.DM.DeleteForMe))
	mux.Handle("POST /api/messages/{id}/delete-for-everyone", auth(h.DM.DeleteForEveryone))
	mux.Handle("POST /api/messages/{id}/reactions", auth(h.DM.ToggleReaction))
	mux.Handle("POST /api/messages/{id}/star", auth(h.DM.ToggleStar))

	// ─── Groups ───
	mux.Handle("GET /api/groups", auth(h.Group.List))
	mux.Handle("POST /api/groups", auth(h.Group.Create))
	mux.Handle("GET /api/groups/{id}", auth(h.Group.Get))
	mux.Handle("PATCH /api/groups/{id}", auth(h.Group.Update))
	mux.Handle("DELETE /api/groups/{id}", auth(h.Group.Delete))
	mux.Handle("POST /api/groups/{id}/members", auth(h.Group.AddMembers))
	mux.Handle("DELETE /api/groups/{id}/members/{userId}", auth(h.Group.RemoveMember))
	mux.Handle("POST /api/groups/{id}/admins/{userId}", auth(h.Group.PromoteAdmin))
	mux.Handle("DELETE /api/groups/{id}/admins/{userId}", auth(h.Group.DemoteAdmin))
	mux.Handle("POST /api/groups/{id}/leave", auth(h.Group.Leave))

	// ─── Group Messages ───
	mux.Handle("GET /api/groups/{id}/messages", auth(h.GroupMessage.List))
	mux.Handle("POST /api/groups/{id}/messages", auth(h.GroupMessage.Send))
	mux.Handle("POST /api/groups/{id}/read", auth(h.GroupMessage.MarkRead))
	mux.Handle("POST /api/groups/{id}/clear", auth(h.GroupMessage.ClearHistory))

	mux.Handle("GET /api/group-messages/{id}", auth(h.GroupMessage.Get))
	mux.Handle("PATCH /api/group-messages/{id}", auth(h.GroupMessage.Edit))
	mux.Handle("POST /api/group-messages/{id}/delete-for-me", auth(h.GroupMessage.DeleteForMe))
	mux.Handle("POST /api/group-messages/{id}/delete-for-everyone", auth(h.GroupMessage.DeleteForEveryone))
	mux.Handle("POST /api/group-messages/{id}/reactions", auth(h.GroupMessage.ToggleReaction))
	mux.Handle("POST /api/group-messages/{id}/star", auth(h.GroupMessage.ToggleStar))

	// ─── Relations ───
	mux.Handle("GET /api/relations", auth(h.Relation.List))
	mux.Handle("POST /api/relations/{kind}/{userId}", auth(h.Relation.Toggle))
}
