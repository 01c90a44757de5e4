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

type sqliteGroupMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteGroupMessageRepo, constructor, interface döner.
func NewSQLiteGroupMessageRepo(db database.TxQuerier) GroupMessageRepository {
	return &sqliteGroupMessageRepo{db: db}
}

const groupMessageColumns = `m.id, m.group_id, m.sender_id, m.type, m.content, m.media_url, m.reply_to_id,
	m.created_at, m.is_edited, m.edited_at,
	m.deleted_for, m.deleted_for_everyone, m.deleted_at, m.reactions, m.starred_by, m.read_by`

// readByFilter, userID'nin okundu kaydının olmadığı koşulu.
const readByFilter = `NOT EXISTS (SELECT 1 FROM json_each(m.read_by) WHERE json_extract(json_each.value, '$.user_id') = ?)`

func scanGroupMessage(s rowScanner) (*models.GroupMessage, error) {
	var (
		msg    models.GroupMessage
		b      baseRow
		readBy string
	)
	if err := s.Scan(
		&msg.ID, &msg.GroupID, &msg.SenderID, &msg.Type, &msg.Content, &b.mediaURL, &b.replyTo,
		&b.createdAt, &b.isEdited, &b.editedAt,
		&b.deletedFor, &b.deletedForEveryone, &b.deletedAt, &b.reactions, &b.starred, &readBy,
	); err != nil {
		return nil, err
	}
	if err := b.apply(&msg.MessageBase); err != nil {
		return nil, err
	}
	receipts, err := decodeReceipts(readBy)
	if err != nil {
		return nil, err
	}
	msg.ReadBy = receipts
	return &msg, nil
}

func (r *sqliteGroupMessageRepo) scanAll(rows *sql.Rows) ([]models.GroupMessage, error) {
	defer rows.Close()

	messages := []models.GroupMessage{}
	for rows.Next() {
		msg, err := scanGroupMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group messages: %w", err)
	}
	return messages, nil
}

func (r *sqliteGroupMessageRepo) Create(ctx context.Context, msg *models.GroupMessage) error {
	deletedFor, err := encodeIDs(msg.DeletedFor)
	if err != nil {
		return err
	}
	readBy, err := encodeReceipts(msg.ReadBy)
	if err != nil {
		return err
	}
	args, err := mutableArgs(&msg.MessageBase)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO group_messages (id, group_id, sender_id, type, reply_to_id, created_at,
			deleted_for, read_by,
			content, media_url, is_edited, edited_at, deleted_for_everyone, deleted_at, reactions, starred_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{
			msg.ID, msg.GroupID, msg.SenderID, msg.Type, nullString(msg.ReplyToID), toMillis(msg.CreatedAt),
			deletedFor, readBy,
		}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("failed to create group message: %w", err)
	}
	return nil
}

func (r *sqliteGroupMessageRepo) GetByID(ctx context.Context, id string) (*models.GroupMessage, error) {
	msg, err := scanGroupMessage(r.db.QueryRowContext(ctx,
		`SELECT `+groupMessageColumns+` FROM group_messages m WHERE m.id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: group message not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group message: %w", err)
	}
	return msg, nil
}

func (r *sqliteGroupMessageRepo) Update(ctx context.Context, msg *models.GroupMessage) error {
	args, err := mutableArgs(&msg.MessageBase)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE group_messages SET content = ?, media_url = ?, is_edited = ?, edited_at = ?,
			deleted_for_everyone = ?, deleted_at = ?, reactions = ?, starred_by = ?
		WHERE id = ?`,
		append(args, msg.ID)...,
	)
	if err != nil {
		return fmt.Errorf("failed to update group message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: group message not found", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteGroupMessageRepo) HideFor(ctx context.Context, id, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE group_messages AS m SET deleted_for = json_insert(m.deleted_for, '$[#]', ?)
		WHERE m.id = ? AND `+hiddenFilter,
		userID, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to hide group message: %w", err)
	}
	return nil
}

func (r *sqliteGroupMessageRepo) HideAll(ctx context.Context, userID, groupID string, keepStarred bool) (int, error) {
	query := `
		UPDATE group_messages AS m SET deleted_for = json_insert(m.deleted_for, '$[#]', ?)
		WHERE m.group_id = ? AND ` + hiddenFilter
	args := []any{userID, groupID, userID}
	if keepStarred {
		query += ` AND NOT ` + starredFilter
		args = append(args, userID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear group history: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *sqliteGroupMessageRepo) MarkRead(ctx context.Context, groupID, userID string, at time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE group_messages AS m
		SET read_by = json_insert(m.read_by, '$[#]', json_object('user_id', ?, 'read_at', ?))
		WHERE m.group_id = ? AND m.sender_id != ? AND `+readByFilter+`
		RETURNING id`,
		userID, toMillis(at), groupID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark group messages read: %w", err)
	}
	return collectIDs(rows)
}

func (r *sqliteGroupMessageRepo) ListByGroup(ctx context.Context, groupID, viewerID string, page models.PageQuery) ([]models.GroupMessage, bool, error) {
	page.Normalize()

	query := `SELECT ` + groupMessageColumns + ` FROM group_messages m
		WHERE m.group_id = ? AND ` + hiddenFilter
	args := []any{groupID, viewerID}

	if page.Before != "" {
		query += ` AND (m.created_at, m.id) < (SELECT created_at, id FROM group_messages WHERE id = ?)`
		args = append(args, page.Before)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT ?`
	args = append(args, page.Limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list group messages: %w", err)
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

func (r *sqliteGroupMessageRepo) ListStarred(ctx context.Context, userID string) ([]models.GroupMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+groupMessageColumns+` FROM group_messages m
		JOIN group_members gm ON gm.group_id = m.group_id AND gm.user_id = ?
		WHERE `+starredFilter+` AND `+hiddenFilter+`
		ORDER BY m.created_at DESC, m.id DESC`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list starred group messages: %w", err)
	}
	return r.scanAll(rows)
}

func (r *sqliteGroupMessageRepo) Latest(ctx context.Context, groupID, viewerID string) (*models.GroupMessage, error) {
	msg, err := scanGroupMessage(r.db.QueryRowContext(ctx, `SELECT `+groupMessageColumns+` FROM group_messages m
		WHERE m.group_id = ? AND `+hiddenFilter+`
		ORDER BY m.created_at DESC, m.id DESC LIMIT 1`,
		groupID, viewerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest group message: %w", err)
	}
	return msg, nil
}

func (r *sqliteGroupMessageRepo) CountUnread(ctx context.Context, groupID, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_messages m
		WHERE m.group_id = ? AND m.sender_id != ? AND `+hiddenFilter+` AND `+readByFilter,
		groupID, userID, userID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread group messages: %w", err)
	}
	return n, nil
}

func (r *sqliteGroupMessageRepo) DeleteByGroup(ctx context.Context, groupID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM group_messages WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("failed to delete group messages: %w", err)
	}
	return nil
}
