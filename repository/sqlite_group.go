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

type sqliteGroupRepo struct {
	db database.TxQuerier
}

// NewSQLiteGroupRepo, constructor, interface döner.
func NewSQLiteGroupRepo(db database.TxQuerier) GroupRepository {
	return &sqliteGroupRepo{db: db}
}

func (r *sqliteGroupRepo) Create(ctx context.Context, group *models.Group) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO groups (id, name, description, creator_id, created_at, last_activity_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.CreatorID,
		toMillis(group.CreatedAt), toMillis(group.LastActivityAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	for _, userID := range group.Members {
		if err := r.AddMember(ctx, group.ID, userID, group.IsAdmin(userID), group.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqliteGroupRepo) GetByID(ctx context.Context, id string) (*models.Group, error) {
	var (
		g                   models.Group
		createdAt, activity int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, creator_id, created_at, last_activity_at FROM groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.CreatorID, &createdAt, &activity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: group not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	g.CreatedAt = fromMillis(createdAt)
	g.LastActivityAt = fromMillis(activity)

	if err := r.loadMembers(ctx, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// loadMembers, Members ve Admins alanlarını katılım sırasına göre doldurur.
func (r *sqliteGroupRepo) loadMembers(ctx context.Context, g *models.Group) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, is_admin FROM group_members WHERE group_id = ? ORDER BY joined_at, user_id`, g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load group members: %w", err)
	}
	defer rows.Close()

	g.Members = []string{}
	g.Admins = []string{}
	for rows.Next() {
		var (
			userID  string
			isAdmin bool
		)
		if err := rows.Scan(&userID, &isAdmin); err != nil {
			return fmt.Errorf("failed to scan group member: %w", err)
		}
		g.Members = append(g.Members, userID)
		if isAdmin {
			g.Admins = append(g.Admins, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating group members: %w", err)
	}
	return nil
}

func (r *sqliteGroupRepo) UpdateInfo(ctx context.Context, id, name, description string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE groups SET name = ?, description = ? WHERE id = ?`, name, description, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return requireAffected(result, "group not found")
}

func (r *sqliteGroupRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return requireAffected(result, "group not found")
}

func (r *sqliteGroupRepo) TouchActivity(ctx context.Context, id string, at time.Time) error {
	// Saat geri gitse bile last_activity_at geriye alınmaz.
	_, err := r.db.ExecContext(ctx,
		`UPDATE groups SET last_activity_at = MAX(last_activity_at, ?) WHERE id = ?`, toMillis(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to bump group activity: %w", err)
	}
	return nil
}

func (r *sqliteGroupRepo) AddMember(ctx context.Context, groupID, userID string, isAdmin bool, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO group_members (group_id, user_id, is_admin, joined_at) VALUES (?, ?, ?, ?)`,
		groupID, userID, isAdmin, toMillis(at),
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

func (r *sqliteGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	return requireAffected(result, "group member not found")
}

func (r *sqliteGroupRepo) SetAdmin(ctx context.Context, groupID, userID string, isAdmin bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE group_members SET is_admin = ? WHERE group_id = ? AND user_id = ?`, isAdmin, groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group admin: %w", err)
	}
	return requireAffected(result, "group member not found")
}

func (r *sqliteGroupRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)`, groupID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return exists, nil
}

func (r *sqliteGroupRepo) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY joined_at, user_id`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	return collectIDs(rows)
}

func (r *sqliteGroupRepo) ListByUser(ctx context.Context, userID string) ([]models.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.last_activity_at DESC, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(ids))
	for _, id := range ids {
		g, err := r.GetByID(ctx, id)
		if err != nil {
			// Sorgular arasında silinmiş olabilir.
			if errors.Is(err, pkg.ErrNotFound) {
				continue
			}
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, nil
}

func requireAffected(result sql.Result, notFound string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", pkg.ErrNotFound, notFound)
	}
	return nil
}
