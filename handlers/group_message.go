package handlers

import (
	"net/http"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/pkg/metrics"
	"github.com/akinalp/relay/services"
)

// GroupMessageHandler, grup mesajı endpoint'leri.
// Gönderim limiti direct mesajlarla aynı limiter'ı paylaşır.
type GroupMessageHandler struct {
	groupMsgService services.GroupMessageService
	limiter         sendLimiter
	rejector
}

// NewGroupMessageHandler, constructor. limiter nil olabilir.
func NewGroupMessageHandler(groupMsgService services.GroupMessageService, limiter sendLimiter, m *metrics.Metrics) *GroupMessageHandler {
	return &GroupMessageHandler{
		groupMsgService: groupMsgService,
		limiter:         limiter,
		rejector:        rejector{metrics: m},
	}
}

// List godoc
// GET /api/groups/{id}/messages?before=&limit=
func (h *GroupMessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	page, err := h.groupMsgService.List(r.Context(), user.ID, r.PathValue("id"), pageQuery(r))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, page)
}

// Send godoc
// POST /api/groups/{id}/messages
func (h *GroupMessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if !h.allowSend(w, h.limiter, user.ID) {
		return
	}

	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.groupMsgService.Send(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, msg)
}

// Get godoc
// GET /api/group-messages/{id}
func (h *GroupMessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.groupMsgService.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// Edit godoc
// PATCH /api/group-messages/{id}
func (h *GroupMessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.EditMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.groupMsgService.Edit(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// DeleteForMe godoc
// POST /api/group-messages/{id}/delete-for-me
func (h *GroupMessageHandler) DeleteForMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.groupMsgService.DeleteForMe(r.Context(), user.ID, r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "message hidden"})
}

// DeleteForEveryone godoc
// POST /api/group-messages/{id}/delete-for-everyone
// Gönderen pencere içinde, grup admini ise başkasının mesajını her zaman silebilir.
func (h *GroupMessageHandler) DeleteForEveryone(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.groupMsgService.DeleteForEveryone(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// ToggleReaction godoc
// POST /api/group-messages/{id}/reactions
func (h *GroupMessageHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ToggleReactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.groupMsgService.ToggleReaction(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// ToggleStar godoc
// POST /api/group-messages/{id}/star
func (h *GroupMessageHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.groupMsgService.ToggleStar(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// MarkRead godoc
// POST /api/groups/{id}/read
func (h *GroupMessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.groupMsgService.MarkRead(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// ClearHistory godoc
// POST /api/groups/{id}/clear
func (h *GroupMessageHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ClearHistoryRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.groupMsgService.ClearHistory(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}
