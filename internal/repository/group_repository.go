package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/model"
)

type GroupRepository struct {
	DB *sql.DB
}

const groupColumns = `id, type, name, email, token, status, allowed_domains, last_used_at, created_at, updated_at`

func scanGroup(row rowScanner) (*model.Group, error) {
	var g model.Group
	err := row.Scan(&g.ID, &g.Type, &g.Name, &g.Email, &g.Token, &g.Status, &g.AllowedDomains,
		&g.LastUsedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if g.AllowedDomains == nil {
		g.AllowedDomains = []string{}
	}
	return &g, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]*model.Group, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []*model.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (*model.Group, error) {
	return r.getOne(ctx, `SELECT `+groupColumns+` FROM groups WHERE id=$1`, id)
}

func (r *GroupRepository) GetByToken(ctx context.Context, token string) (*model.Group, error) {
	return r.getOne(ctx, `SELECT `+groupColumns+` FROM groups WHERE token=$1`, token)
}

func (r *GroupRepository) getOne(ctx context.Context, query, arg string) (*model.Group, error) {
	g, err := scanGroup(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return g, nil
}

func (r *GroupRepository) Create(ctx context.Context, g *model.Group) error {
	now := time.Now().UTC()
	g.ID = uuid.NewString()
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.AllowedDomains == nil {
		g.AllowedDomains = []string{}
	}

	query := `
        INSERT INTO groups (id, type, name, email, token, status, allowed_domains, last_used_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.DB.ExecContext(ctx, query, g.ID, g.Type, g.Name, g.Email, g.Token, g.Status,
		g.AllowedDomains, g.LastUsedAt, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.ErrDuplicateToken
		}
		return err
	}
	return nil
}

func (r *GroupRepository) Update(ctx context.Context, id string, upd model.GroupUpdate) (*model.Group, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := scanGroup(tx.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	upd.Apply(g)
	g.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE groups
        SET type=$1, name=$2, email=$3, status=$4, allowed_domains=$5, updated_at=$6
        WHERE id=$7
    `
	if _, err := tx.ExecContext(ctx, query, g.Type, g.Name, g.Email, g.Status, g.AllowedDomains, g.UpdatedAt, g.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit group update: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) SetToken(ctx context.Context, id, token string) (*model.Group, error) {
	query := `UPDATE groups SET token=$1, last_used_at=NULL, updated_at=$2 WHERE id=$3 RETURNING ` + groupColumns
	g, err := scanGroup(r.DB.QueryRowContext(ctx, query, token, time.Now().UTC(), id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, appErrors.ErrDuplicateToken
		}
		return nil, err
	}
	return g, nil
}

func (r *GroupRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE groups SET last_used_at=$1 WHERE id=$2`, at.UTC(), id)
	return err
}

func (r *GroupRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM groups WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ GroupRepositoryInterface = (*GroupRepository)(nil)
