package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
	"github.com/akinalp/relay/pkg/emoji"
	"github.com/akinalp/relay/pkg/keylock"
)

// Rules, mesaj yaşam döngüsü zaman pencereleri.
type Rules struct {
	EditWindow   time.Duration
	DeleteWindow time.Duration
	LockTimeout  time.Duration
}

// DefaultRules: düzenleme 15 dk, herkesten silme 1 saat.
func DefaultRules() Rules {
	return Rules{
		EditWindow:   15 * time.Minute,
		DeleteWindow: time.Hour,
		LockTimeout:  5 * time.Second,
	}
}

// Lifecycle, direct ve grup mesaj servislerinin paylaştığı kural motoru.
//
// State machine: Active → Edited → DeletedForEveryone (terminal).
// deleted_for kümesi bundan bağımsız, her durumda uygulanabilen kullanıcı
// bazlı görünürlük katmanıdır.
//
// Aynı mesaja dokunan tüm mutasyonlar mesaj ID'si üzerindeki kilitle sıraya
// sokulur; farklı mesajlar birbirini beklemez.
type Lifecycle struct {
	rules Rules
	locks *keylock.Locker
	now   func() time.Time
}

// NewLifecycle, yeni bir kural motoru oluşturur.
func NewLifecycle(rules Rules) *Lifecycle {
	if rules.LockTimeout <= 0 {
		rules.LockTimeout = DefaultRules().LockTimeout
	}
	return &Lifecycle{
		rules: rules,
		locks: keylock.New(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock, zaman kaynağını değiştirir (testler için).
func (l *Lifecycle) SetClock(now func() time.Time) {
	l.now = now
}

// Now, motorun saatine göre şu an.
func (l *Lifecycle) Now() time.Time {
	return l.now()
}

// Lock, key için kilidi alır. LockTimeout içinde alınamazsa ErrConflict döner.
func (l *Lifecycle) Lock(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.rules.LockTimeout)
	defer cancel()
	return l.locks.Lock(ctx, key)
}

// CheckEdit, actor'ün mesajı düzenleyip düzenleyemeyeceğini kontrol eder.
func (l *Lifecycle) CheckEdit(m *models.MessageBase, actorID string) error {
	if m.SenderID != actorID {
		return fmt.Errorf("%w: only the sender can edit a message", pkg.ErrForbidden)
	}
	if m.DeletedForEveryone {
		return fmt.Errorf("%w: message was deleted", pkg.ErrInvalidState)
	}
	if m.Type != models.MessageTypeText {
		return fmt.Errorf("%w: only text messages can be edited", pkg.ErrInvalidState)
	}
	if l.now().Sub(m.CreatedAt) >= l.rules.EditWindow {
		return fmt.Errorf("%w: edit window of %s has passed", pkg.ErrWindowExpired, l.rules.EditWindow)
	}
	return nil
}

// ApplyEdit, içeriği değiştirir ve edit işaretini koyar.
func (l *Lifecycle) ApplyEdit(m *models.MessageBase, content string) {
	now := l.now()
	m.Content = content
	m.IsEdited = true
	m.EditedAt = &now
}

// CheckDeleteForEveryone, herkesten silme iznini kontrol eder.
//
// Gönderici pencere içinde silebilir. actorIsAdmin sadece grup mesajlarında
// anlamlıdır: admin başka bir üyenin mesajını süre sınırı olmadan siler.
// Admin kendi mesajını silerken pencere yine uygulanır.
func (l *Lifecycle) CheckDeleteForEveryone(m *models.MessageBase, actorID string, actorIsAdmin bool) error {
	if m.DeletedForEveryone {
		return fmt.Errorf("%w: message already deleted", pkg.ErrInvalidState)
	}
	if m.SenderID != actorID {
		if actorIsAdmin {
			return nil
		}
		return fmt.Errorf("%w: only the sender or a group admin can delete this message", pkg.ErrForbidden)
	}
	if l.now().Sub(m.CreatedAt) >= l.rules.DeleteWindow {
		return fmt.Errorf("%w: delete window of %s has passed", pkg.ErrWindowExpired, l.rules.DeleteWindow)
	}
	return nil
}

// ApplyDeleteForEveryone, içeriği ve medyayı geri dönüşsüz temizler.
func (l *Lifecycle) ApplyDeleteForEveryone(m *models.MessageBase) {
	now := l.now()
	m.Content = ""
	m.MediaURL = nil
	m.DeletedForEveryone = true
	m.DeletedAt = &now
}

// ApplyReaction, toggle kuralını uygular ve reaction listesinin değişip
// değişmediğini döner.
//
//   - Aynı emoji tekrar → kaldırılır.
//   - Farklı emoji → mevcut kayıt yerinde değiştirilir.
//   - Moderasyon (TargetUserID != actor) → sadece mesajın göndericisi,
//     hedefin tepkisini emoji'ye bakmadan kaldırır; tepki yoksa no-op.
func (l *Lifecycle) ApplyReaction(m *models.MessageBase, actorID string, req models.ToggleReactionRequest) (bool, error) {
	if m.DeletedForEveryone {
		return false, fmt.Errorf("%w: cannot react to a deleted message", pkg.ErrInvalidState)
	}

	if req.IsModeration(actorID) {
		if m.SenderID != actorID {
			return false, fmt.Errorf("%w: only the sender can remove other users' reactions", pkg.ErrForbidden)
		}
		idx := reactionIndex(m.Reactions, req.TargetUserID)
		if idx < 0 {
			return false, nil
		}
		m.Reactions = slices.Delete(m.Reactions, idx, idx+1)
		return true, nil
	}

	if err := emoji.Validate(req.Emoji); err != nil {
		return false, fmt.Errorf("%w: %v", pkg.ErrInvalidState, err)
	}

	idx := reactionIndex(m.Reactions, actorID)
	switch {
	case idx < 0:
		m.Reactions = append(m.Reactions, models.Reaction{UserID: actorID, Emoji: req.Emoji, CreatedAt: l.now()})
	case m.Reactions[idx].Emoji == req.Emoji:
		m.Reactions = slices.Delete(m.Reactions, idx, idx+1)
	default:
		m.Reactions[idx].Emoji = req.Emoji
		m.Reactions[idx].CreatedAt = l.now()
	}
	return true, nil
}

// ToggleStar, actor'ü starred_by kümesine ekler veya çıkarır; yeni durumu döner.
func (l *Lifecycle) ToggleStar(m *models.MessageBase, actorID string) (bool, error) {
	if m.DeletedForEveryone {
		return false, fmt.Errorf("%w: cannot star a deleted message", pkg.ErrInvalidState)
	}
	if idx := slices.Index(m.StarredBy, actorID); idx >= 0 {
		m.StarredBy = slices.Delete(m.StarredBy, idx, idx+1)
		return false, nil
	}
	m.StarredBy = append(m.StarredBy, actorID)
	return true, nil
}

func reactionIndex(reactions []models.Reaction, userID string) int {
	return slices.IndexFunc(reactions, func(r models.Reaction) bool { return r.UserID == userID })
}
