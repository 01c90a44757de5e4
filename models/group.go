package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Group, bir sohbet grubu. Creator her zaman admin ve üyedir;
// Admins, Members'ın alt kümesidir.
type Group struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatorID      string    `json:"creator_id"`
	Members        []string  `json:"members"`
	Admins         []string  `json:"admins"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

func (g *Group) IsMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}

func (g *Group) IsAdmin(userID string) bool {
	return slices.Contains(g.Admins, userID)
}

// GroupMessage, bir gruba gönderilmiş mesaj.
// ReadBy her kullanıcı için en fazla bir kayıt içerir ve kayıtlar silinmez.
type GroupMessage struct {
	MessageBase
	GroupID string        `json:"group_id"`
	ReadBy  []ReadReceipt `json:"read_by"`
}

// ReadReceipt, bir grup mesajının bir kullanıcı tarafından okunma zamanı.
type ReadReceipt struct {
	UserID string    `json:"user_id"`
	ReadAt time.Time `json:"read_at"`
}

// IsReadBy, userID'nin okundu kaydı olup olmadığı.
func (m *GroupMessage) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// GroupMessagePage, grup mesajı sayfası (yeniden eskiye).
type GroupMessagePage struct {
	Messages []GroupMessage `json:"messages"`
	HasMore  bool           `json:"has_more"`
}

// CreateGroupRequest, grup oluşturma isteği. Members creator dışındaki ilk üyelerdir.
type CreateGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

// Validate, CreateGroupRequest'in geçerli olup olmadığını kontrol eder.
func (r *CreateGroupRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)

	if err := validateGroupName(r.Name); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Description) > 500 {
		return fmt.Errorf("group description must be at most 500 characters")
	}
	r.Members = normalizeIDs(r.Members)
	return nil
}

// UpdateGroupRequest, grup bilgisi güncelleme isteği. nil alanlar değişmez.
type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Validate, UpdateGroupRequest'in geçerli olup olmadığını kontrol eder.
func (r *UpdateGroupRequest) Validate() error {
	if r.Name == nil && r.Description == nil {
		return fmt.Errorf("nothing to update")
	}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if err := validateGroupName(name); err != nil {
			return err
		}
		r.Name = &name
	}
	if r.Description != nil {
		desc := strings.TrimSpace(*r.Description)
		if utf8.RuneCountInString(desc) > 500 {
			return fmt.Errorf("group description must be at most 500 characters")
		}
		r.Description = &desc
	}
	return nil
}

// AddMembersRequest, gruba üye ekleme isteği.
type AddMembersRequest struct {
	UserIDs []string `json:"user_ids"`
}

// Validate, AddMembersRequest'in geçerli olup olmadığını kontrol eder.
func (r *AddMembersRequest) Validate() error {
	r.UserIDs = normalizeIDs(r.UserIDs)
	if len(r.UserIDs) == 0 {
		return fmt.Errorf("at least one user id is required")
	}
	return nil
}

func validateGroupName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > 100 {
		return fmt.Errorf("group name must be between 1 and 100 characters")
	}
	return nil
}

// normalizeIDs, boşlukları kırpar, boşları ve tekrarları atar; sırayı korur.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
