package handlers

import (
	"net/http"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/pkg/metrics"
	"github.com/akinalp/relay/services"
)

// DirectMessageHandler, iki kullanıcı arasındaki mesaj endpoint'leri.
//
// groupMsgService sadece GET /api/messages/starred için tutulur: yıldızlı
// liste direct ve grup mesajlarını birlikte döner.
type DirectMessageHandler struct {
	dmService       services.DirectMessageService
	groupMsgService services.GroupMessageService
	limiter         sendLimiter
	rejector
}

// NewDirectMessageHandler, constructor. limiter nil olabilir.
func NewDirectMessageHandler(
	dmService services.DirectMessageService,
	groupMsgService services.GroupMessageService,
	limiter sendLimiter,
	m *metrics.Metrics,
) *DirectMessageHandler {
	return &DirectMessageHandler{
		dmService:       dmService,
		groupMsgService: groupMsgService,
		limiter:         limiter,
		rejector:        rejector{metrics: m},
	}
}

// starredResponse, GET /api/messages/starred yanıtı.
type starredResponse struct {
	Direct []models.Message      `json:"direct"`
	Group  []models.GroupMessage `json:"group"`
}

// List godoc
// GET /api/users/{id}/messages?before=&limit=
// Karşı tarafla olan konuşmayı yeniden eskiye döner. Gizlenen mesajlar dahil edilmez.
func (h *DirectMessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	page, err := h.dmService.List(r.Context(), user.ID, r.PathValue("id"), pageQuery(r))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, page)
}

// Send godoc
// POST /api/users/{id}/messages
// Body: { "type": "text", "content": "...", "reply_to_id": "..." }
func (h *DirectMessageHandler) Send(w http.ResponseWriter, r *http.Request) {
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

	msg, err := h.dmService.Send(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, msg)
}

// Get godoc
// GET /api/messages/{id}
func (h *DirectMessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.dmService.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// Starred godoc
// GET /api/messages/starred
// Kullanıcının yıldızladığı direct ve grup mesajları.
func (h *DirectMessageHandler) Starred(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	direct, err := h.dmService.ListStarred(r.Context(), user.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	group, err := h.groupMsgService.ListStarred(r.Context(), user.ID)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, starredResponse{Direct: direct, Group: group})
}

// Edit godoc
// PATCH /api/messages/{id}
// Body: { "content": "..." }
func (h *DirectMessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.EditMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.dmService.Edit(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// DeleteForMe godoc
// POST /api/messages/{id}/delete-for-me
func (h *DirectMessageHandler) DeleteForMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.dmService.DeleteForMe(r.Context(), user.ID, r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "message hidden"})
}

// DeleteForEveryone godoc
// POST /api/messages/{id}/delete-for-everyone
func (h *DirectMessageHandler) DeleteForEveryone(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.dmService.DeleteForEveryone(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// ToggleReaction godoc
// POST /api/messages/{id}/reactions
// Body: { "emoji": "👍" } veya moderasyon için { "target_user_id": "..." }
func (h *DirectMessageHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ToggleReactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.dmService.ToggleReaction(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// ToggleStar godoc
// POST /api/messages/{id}/star
func (h *DirectMessageHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	msg, err := h.dmService.ToggleStar(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// MarkRead godoc
// POST /api/users/{id}/read
// Karşı taraftan gelen okunmamış mesajları okundu işaretler.
func (h *DirectMessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.dmService.MarkRead(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// ClearHistory godoc
// POST /api/users/{id}/clear
// Body (opsiyonel): { "keep_starred": true }
func (h *DirectMessageHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.ClearHistoryRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.dmService.ClearHistory(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}
