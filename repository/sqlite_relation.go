package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/akinalp/relay/database"
	"github.com/akinalp/relay/models"
)

type sqliteRelationRepo struct {
	db database.TxQuerier
}

// NewSQLiteRelationRepo, constructor, interface döner.
func NewSQLiteRelationRepo(db database.TxQuerier) RelationRepository {
	return &sqliteRelationRepo{db: db}
}

func (r *sqliteRelationRepo) Add(ctx context.Context, userID, targetID string, kind models.RelationKind) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_relations (user_id, target_id, kind, created_at) VALUES (?, ?, ?, ?)`,
		userID, targetID, kind, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to add %s relation: %w", kind, err)
	}
	return nil
}

func (r *sqliteRelationRepo) Remove(ctx context.Context, userID, targetID string, kind models.RelationKind) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_relations WHERE user_id = ? AND target_id = ? AND kind = ?`,
		userID, targetID, kind,
	)
	if err != nil {
		return fmt.Errorf("failed to remove %s relation: %w", kind, err)
	}
	return nil
}

func (r *sqliteRelationRepo) Has(ctx context.Context, userID, targetID string, kind models.RelationKind) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM user_relations WHERE user_id = ? AND target_id = ? AND kind = ?)`,
		userID, targetID, kind,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check %s relation: %w", kind, err)
	}
	return exists, nil
}

func (r *sqliteRelationRepo) IsBlockedEither(ctx context.Context, a, b string) (bool, error) {
	var blocked bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_relations
			WHERE kind = 'block' AND ((user_id = ? AND target_id = ?) OR (user_id = ? AND target_id = ?))
		)`,
		a, b, b, a,
	).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return blocked, nil
}

func (r *sqliteRelationRepo) List(ctx context.Context, userID string) (*models.Relations, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT target_id, kind FROM user_relations WHERE user_id = ? ORDER BY created_at, target_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	defer rows.Close()

	rel := &models.Relations{
		Blocked:   []string{},
		Muted:     []string{},
		Favorites: []string{},
		Contacts:  []string{},
	}
	for rows.Next() {
		var (
			target string
			kind   models.RelationKind
		)
		if err := rows.Scan(&target, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		switch kind {
		case models.RelationBlock:
			rel.Blocked = append(rel.Blocked, target)
		case models.RelationMute:
			rel.Muted = append(rel.Muted, target)
		case models.RelationFavorite:
			rel.Favorites = append(rel.Favorites, target)
		case models.RelationContact:
			rel.Contacts = append(rel.Contacts, target)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relations: %w", err)
	}
	return rel, nil
}
