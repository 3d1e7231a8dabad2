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

type PlanRepository struct {
	DB *sql.DB
}

const planColumns = `id, name, slug, status, contract_body_html, checklist_items,
	email_subject_template, email_body_template, survey_due_months, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*model.Plan, error) {
	var p model.Plan
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Status, &p.ContractBodyHTML, &p.ChecklistItems,
		&p.EmailSubjectTemplate, &p.EmailBodyTemplate, &p.SurveyDueMonths, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]*model.Plan, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []*model.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*model.Plan, error) {
	return r.getOne(ctx, `SELECT `+planColumns+` FROM plans WHERE id=$1`, id)
}

func (r *PlanRepository) GetBySlug(ctx context.Context, slug string) (*model.Plan, error) {
	return r.getOne(ctx, `SELECT `+planColumns+` FROM plans WHERE slug=$1`, slug)
}

func (r *PlanRepository) getOne(ctx context.Context, query string, arg string) (*model.Plan, error) {
	p, err := scanPlan(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PlanRepository) Create(ctx context.Context, p *model.Plan) error {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.ChecklistItems == nil {
		p.ChecklistItems = model.ChecklistItems{}
	}

	query := `
        INSERT INTO plans (id, name, slug, status, contract_body_html, checklist_items,
            email_subject_template, email_body_template, survey_due_months, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := r.DB.ExecContext(ctx, query, p.ID, p.Name, p.Slug, p.Status, p.ContractBodyHTML, p.ChecklistItems,
		p.EmailSubjectTemplate, p.EmailBodyTemplate, p.SurveyDueMonths, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.ErrDuplicateSlug
		}
		return err
	}
	return nil
}

// Update locks the row, applies the partial update and writes it back in one transaction.
func (r *PlanRepository) Update(ctx context.Context, id string, upd model.PlanUpdate) (*model.Plan, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := scanPlan(tx.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	upd.Apply(p)
	p.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE plans
        SET name=$1, slug=$2, status=$3, contract_body_html=$4, checklist_items=$5,
            email_subject_template=$6, email_body_template=$7, survey_due_months=$8, updated_at=$9
        WHERE id=$10
    `
	_, err = tx.ExecContext(ctx, query, p.Name, p.Slug, p.Status, p.ContractBodyHTML, p.ChecklistItems,
		p.EmailSubjectTemplate, p.EmailBodyTemplate, p.SurveyDueMonths, p.UpdatedAt, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.ErrDuplicateSlug
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit plan update: %w", err)
	}
	return p, nil
}

func (r *PlanRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM plans WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ PlanRepositoryInterface = (*PlanRepository)(nil)
