package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/relay/database"
	"github.com/akinalp/relay/models"
	"github.com/akinalp/relay/pkg"
)

type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo, constructor, interface döner.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

const messageColumns = `m.id, m.sender_id, m.receiver_id, m.type, m.content, m.media_url, m.reply_to_id,
	m.created_at, m.is_edited, m.edited_at, m.is_read, m.read_at,
	m.deleted_for, m.deleted_for_everyone, m.deleted_at, m.reactions, m.starred_by`

func scanMessage(s rowScanner) (*models.Message, error) {
	var (
		msg    models.Message
		b      baseRow
		readAt sql.NullInt64
	)
	if err := s.Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Type, &msg.Content, &b.mediaURL, &b.replyTo,
		&b.createdAt, &b.isEdited, &b.editedAt, &msg.IsRead, &readAt,
		&b.deletedFor, &b.deletedForEveryone, &b.deletedAt, &b.reactions, &b.starred,
	); err != nil {
		return nil, err
	}
	if err := b.apply(&msg.MessageBase); err != nil {
		return nil, err
	}
	msg.ReadAt = timePtr(readAt)
	return &msg, nil
}

func (r *sqliteMessageRepo) scanAll(rows *sql.Rows) ([]models.Message, error) {
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

func (r *sqliteMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	deletedFor, err := encodeIDs(msg.DeletedFor)
	if err != nil {
		return err
	}
	args, err := mutableArgs(&msg.MessageBase)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, type, reply_to_id, created_at,
			is_read, read_at, deleted_for,
			content, media_url, is_edited, edited_at, deleted_for_everyone, deleted_at, reactions, starred_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{
			msg.ID, msg.SenderID, msg.ReceiverID, msg.Type, nullString(msg.ReplyToID), toMillis(msg.CreatedAt),
			msg.IsRead, nullMillis(msg.ReadAt), deletedFor,
		}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := scanMessage(r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages m WHERE m.id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

func (r *sqliteMessageRepo) Update(ctx context.Context, msg *models.Message) error {
	args, err := mutableArgs(&msg.MessageBase)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE messages SET content = ?, media_url = ?, is_edited = ?, edited_at = ?,
			deleted_for_everyone = ?, deleted_at = ?, reactions = ?, starred_by = ?
		WHERE id = ?`,
		append(args, msg.ID)...,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteMessageRepo) HideFor(ctx context.Context, id, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages AS m SET deleted_for = json_insert(m.deleted_for, '$[#]', ?)
		WHERE m.id = ? AND `+hiddenFilter,
		userID, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to hide message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) HideAll(ctx context.Context, userID, peerID string, keepStarred bool) (int, error) {
	query := `
		UPDATE messages AS m SET deleted_for = json_insert(m.deleted_for, '$[#]', ?)
		WHERE ((m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?))
			AND ` + hiddenFilter
	args := []any{userID, userID, peerID, peerID, userID, userID}
	if keepStarred {
		query += ` AND NOT ` + starredFilter
		args = append(args, userID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *sqliteMessageRepo) MarkRead(ctx context.Context, receiverID, senderID string, at time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE messages SET is_read = 1, read_at = ?
		WHERE receiver_id = ? AND sender_id = ? AND is_read = 0
		RETURNING id`,
		toMillis(at), receiverID, senderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return collectIDs(rows)
}

func (r *sqliteMessageRepo) ListConversation(ctx context.Context, viewerID, peerID string, page models.PageQuery) ([]models.Message, bool, error) {
	page.Normalize()

	query := `SELECT ` + messageColumns + ` FROM messages m
		WHERE ((m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?))
			AND ` + hiddenFilter
	args := []any{viewerID, peerID, peerID, viewerID, viewerID}

	if page.Before != "" {
		query += ` AND (m.created_at, m.id) < (SELECT created_at, id FROM messages WHERE id = ?)`
		args = append(args, page.Before)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT ?`
	args = append(args, page.Limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list messages: %w", err)
	}
	messages, err := r.scanAll(rows)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(messages) > page.Limit
	if hasMore {
		messages = messages[:page.Limit]
	}
	return messages, hasMore, nil
}

func (r *sqliteMessageRepo) ListStarred(ctx context.Context, userID string) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages m
		WHERE (m.sender_id = ? OR m.receiver_id = ?)
			AND `+starredFilter+` AND `+hiddenFilter+`
		ORDER BY m.created_at DESC, m.id DESC`,
		userID, userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list starred messages: %w", err)
	}
	return r.scanAll(rows)
}

func (r *sqliteMessageRepo) PeerStats(ctx context.Context, userID string) ([]PeerStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT CASE WHEN m.sender_id = ?1 THEN m.receiver_id ELSE m.sender_id END AS peer,
			MAX(m.created_at),
			SUM(CASE WHEN m.receiver_id = ?1 AND m.is_read = 0 THEN 1 ELSE 0 END)
		FROM messages m
		WHERE (m.sender_id = ?1 OR m.receiver_id = ?1)
			AND NOT EXISTS (SELECT 1 FROM json_each(m.deleted_for) WHERE json_each.value = ?1)
		GROUP BY peer`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate conversations: %w", err)
	}
	defer rows.Close()

	var stats []PeerStat
	for rows.Next() {
		var (
			s    PeerStat
			last int64
		)
		if err := rows.Scan(&s.PeerID, &last, &s.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation stat: %w", err)
		}
		s.LastActivityAt = fromMillis(last)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation stats: %w", err)
	}
	return stats, nil
}

// collectIDs, RETURNING id sorgularının sonucunu okur.
func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return ids, nil
}
