package handlers

import (
	"net/http"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/pkg/metrics"
	"github.com/akinalp/relay/services"
)

// GroupHandler, grup yönetimi endpoint'leri: oluşturma, bilgi güncelleme,
// üyelik ve admin işlemleri. Yetki kontrolleri GroupService'tedir.
type GroupHandler struct {
	groupService services.GroupService
	rejector
}

// NewGroupHandler, constructor.
func NewGroupHandler(groupService services.GroupService, m *metrics.Metrics) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		rejector:     rejector{metrics: m},
	}
}

// List godoc
// GET /api/groups
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	groups, err := h.groupService.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, groups)
}

// Create godoc
// POST /api/groups
// Body: { "name": "...", "description": "...", "members": ["id", ...] }
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.Create(r.Context(), user.ID, &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, group)
}

// Get godoc
// GET /api/groups/{id}
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	group, err := h.groupService.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, group)
}

// Update godoc
// PATCH /api/groups/{id}
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.Update(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, group)
}

// Delete godoc
// DELETE /api/groups/{id}
// Sadece grubu oluşturan silebilir; mesajlar da silinir.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.groupService.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "group deleted"})
}

// AddMembers godoc
// POST /api/groups/{id}/members
// Body: { "user_ids": ["id", ...] }
func (h *GroupHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.AddMembersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.AddMembers(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, group)
}

// RemoveMember godoc
// DELETE /api/groups/{id}/members/{userId}
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	group, err := h.groupService.RemoveMember(r.Context(), user.ID, r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, group)
}

// PromoteAdmin godoc
// POST /api/groups/{id}/admins/{userId}
func (h *GroupHandler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, true)
}

// DemoteAdmin godoc
// DELETE /api/groups/{id}/admins/{userId}
func (h *GroupHandler) DemoteAdmin(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, false)
}

func (h *GroupHandler) setAdmin(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	group, err := h.groupService.SetAdmin(r.Context(), user.ID, r.PathValue("id"), r.PathValue("userId"), isAdmin)
	if err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, group)
}

// Leave godoc
// POST /api/groups/{id}/leave
func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.groupService.Leave(r.Context(), user.ID, r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "left group"})
}
