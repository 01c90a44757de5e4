package handlers

import (
	"fmt"
	"net/http"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/pkg/metrics"
	"github.com/akinalp/relay/services"
)

// RelationHandler, block/mute/favorite listeleri.
type RelationHandler struct {
	userService services.UserService
	rejector
}

// NewRelationHandler, constructor.
func NewRelationHandler(userService services.UserService, m *metrics.Metrics) *RelationHandler {
	return &RelationHandler{
		userService: userService,
		rejector:    rejector{metrics: m},
	}
}

// List godoc
// GET /api/relations
func (h *RelationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	relations, err := h.userService.GetRelations(r.Context(), user.ID)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, relations)
}

// Toggle godoc
// POST /api/relations/{kind}/{userId}
// kind: block | mute | favorite. Aynı istek tekrar gönderilirse ilişki kaldırılır.
func (h *RelationHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	kind, err := models.ParseRelationKind(r.PathValue("kind"))
	if err != nil {
		h.fail(w, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err))
		return
	}

	result, err := h.userService.ToggleRelation(r.Context(), user.ID, kind, r.PathValue("userId"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}
