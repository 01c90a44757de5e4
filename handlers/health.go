package handlers

import (
	"net/http"

	"github.com/akinalp/relay/pkg"
)

// onlineCounter, Hub'ın health için gereken kısmı.
type onlineCounter interface {
	OnlineUserIDs() []string
}

// HealthHandler, liveness endpoint'i.
type HealthHandler struct {
	hub onlineCounter
}

// NewHealthHandler, constructor.
func NewHealthHandler(hub onlineCounter) *HealthHandler {
	return &HealthHandler{hub: hub}
}

type healthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	OnlineUsers int    `json:"online_users"`
}

// Check godoc
// GET /api/health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Service:     "relay",
		OnlineUsers: len(h.hub.OnlineUserIDs()),
	})
}
