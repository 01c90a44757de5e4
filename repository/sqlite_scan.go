package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akinalp/relay/models"
)

// rowScanner, hem *sql.Row hem *sql.Rows tarafından karşılanır.
type rowScanner interface {
	Scan(dest ...any) error
}

// Zamanlar unix milisaniye olarak saklanır.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

// dbReaction ve dbReceipt, JSON kolonlarındaki kayıt şekilleri.
// Zaman alanı milisaniye olarak tutulur ki SQL tarafında json_object ile yazılabilsin.
type dbReaction struct {
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	CreatedAt int64  `json:"created_at"`
}

type dbReceipt struct {
	UserID string `json:"user_id"`
	ReadAt int64  `json:"read_at"`
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode id set: %w", err)
	}
	return string(b), nil
}

func decodeIDs(raw string) ([]string, error) {
	ids := []string{}
	if raw == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode id set: %w", err)
	}
	return ids, nil
}

func encodeReactions(rs []models.Reaction) (string, error) {
	out := make([]dbReaction, 0, len(rs))
	for _, r := range rs {
		out = append(out, dbReaction{UserID: r.UserID, Emoji: r.Emoji, CreatedAt: toMillis(r.CreatedAt)})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode reactions: %w", err)
	}
	return string(b), nil
}

func decodeReactions(raw string) ([]models.Reaction, error) {
	var in []dbReaction
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			return nil, fmt.Errorf("failed to decode reactions: %w", err)
		}
	}
	out := make([]models.Reaction, 0, len(in))
	for _, r := range in {
		out = append(out, models.Reaction{UserID: r.UserID, Emoji: r.Emoji, CreatedAt: fromMillis(r.CreatedAt)})
	}
	return out, nil
}

func encodeReceipts(rs []models.ReadReceipt) (string, error) {
	out := make([]dbReceipt, 0, len(rs))
	for _, r := range rs {
		out = append(out, dbReceipt{UserID: r.UserID, ReadAt: toMillis(r.ReadAt)})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode read receipts: %w", err)
	}
	return string(b), nil
}

func decodeReceipts(raw string) ([]models.ReadReceipt, error) {
	var in []dbReceipt
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			return nil, fmt.Errorf("failed to decode read receipts: %w", err)
		}
	}
	out := make([]models.ReadReceipt, 0, len(in))
	for _, r := range in {
		out = append(out, models.ReadReceipt{UserID: r.UserID, ReadAt: fromMillis(r.ReadAt)})
	}
	return out, nil
}

// baseRow, messages ve group_messages tablolarında ortak olan kolonların ham değerleri.
type baseRow struct {
	mediaURL, replyTo              sql.NullString
	createdAt                      int64
	isEdited, deletedForEveryone   bool
	editedAt, deletedAt            sql.NullInt64
	deletedFor, reactions, starred string
}

func (b *baseRow) apply(m *models.MessageBase) error {
	var err error
	m.MediaURL = stringPtr(b.mediaURL)
	m.ReplyToID = stringPtr(b.replyTo)
	m.CreatedAt = fromMillis(b.createdAt)
	m.IsEdited = b.isEdited
	m.EditedAt = timePtr(b.editedAt)
	m.DeletedForEveryone = b.deletedForEveryone
	m.DeletedAt = timePtr(b.deletedAt)
	if m.DeletedFor, err = decodeIDs(b.deletedFor); err != nil {
		return err
	}
	if m.StarredBy, err = decodeIDs(b.starred); err != nil {
		return err
	}
	if m.Reactions, err = decodeReactions(b.reactions); err != nil {
		return err
	}
	return nil
}

// mutableArgs, Update sırasında yazılan ortak kolonların değerleri.
// Okundu bilgisi ve deleted_for burada yoktur; onlar atomik SQL ile güncellenir.
func mutableArgs(m *models.MessageBase) ([]any, error) {
	reactions, err := encodeReactions(m.Reactions)
	if err != nil {
		return nil, err
	}
	starred, err := encodeIDs(m.StarredBy)
	if err != nil {
		return nil, err
	}
	return []any{
		m.Content, nullString(m.MediaURL), m.IsEdited, nullMillis(m.EditedAt),
		m.DeletedForEveryone, nullMillis(m.DeletedAt), reactions, starred,
	}, nil
}

// hiddenFilter, mesajın verilen kullanıcı için gizli olmadığı koşulu.
// Tablo alias'ı "m" olmalıdır.
const hiddenFilter = `NOT EXISTS (SELECT 1 FROM json_each(m.deleted_for) WHERE json_each.value = ?)`

// starredFilter, mesajın verilen kullanıcı tarafından yıldızlandığı koşulu.
const starredFilter = `EXISTS (SELECT 1 FROM json_each(m.starred_by) WHERE json_each.value = ?)`
