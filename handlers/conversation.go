package handlers

import (
	"net/http"

	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/pkg/metrics"
	"github.com/akinalp/relay/services"
)

// ConversationHandler, konuşma ve grup özet listeleri.
type ConversationHandler struct {
	conversationService services.ConversationService
	rejector
}

// NewConversationHandler, constructor.
func NewConversationHandler(conversationService services.ConversationService, m *metrics.Metrics) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		rejector:            rejector{metrics: m},
	}
}

// List godoc
// GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	conversations, err := h.conversationService.ListConversations(r.Context(), user.ID)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, conversations)
}

// GroupSummaries godoc
// GET /api/groups/summaries
func (h *ConversationHandler) GroupSummaries(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	summaries, err := h.conversationService.ListGroupSummaries(r.Context(), user.ID)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, summaries)
}
