package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/aspform-backend/internal/model"
)

type SubmissionRepository struct {
	DB *sql.DB
}

const submissionColumns = `id, plan_id, group_id, customer_name, customer_email, customer_phone,
	contract_start_date, computed_dates, rendered_contract_body, rendered_email_subject,
	rendered_email_body, contract_fingerprint, generated_at, user_agent, created_at`

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var s model.Submission
	err := row.Scan(&s.ID, &s.PlanID, &s.GroupID, &s.CustomerName, &s.CustomerEmail, &s.CustomerPhone,
		&s.ContractStartDate, &s.ComputedDates, &s.RenderedContractBody, &s.RenderedEmailSubject,
		&s.RenderedEmailBody, &s.ContractFingerprint, &s.GeneratedAt, &s.UserAgent, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create is a single-row insert; submissions are never updated afterwards.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO submissions (id, plan_id, group_id, customer_name, customer_email, customer_phone,
            contract_start_date, computed_dates, rendered_contract_body, rendered_email_subject,
            rendered_email_body, contract_fingerprint, generated_at, user_agent, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `
	_, err := r.DB.ExecContext(ctx, query, s.ID, s.PlanID, s.GroupID, s.CustomerName, s.CustomerEmail,
		s.CustomerPhone, s.ContractStartDate, s.ComputedDates, s.RenderedContractBody, s.RenderedEmailSubject,
		s.RenderedEmailBody, s.ContractFingerprint, s.GeneratedAt, s.UserAgent, s.CreatedAt)
	return err
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	s, err := scanSubmission(r.DB.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *SubmissionRepository) List(ctx context.Context, offset, limit int, filter model.SubmissionFilter) ([]*model.Submission, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.PlanID != "" {
		where += fmt.Sprintf(" AND plan_id=$%d", argPos)
		args = append(args, filter.PlanID)
		argPos++
	}
	if filter.GroupID != "" {
		where += fmt.Sprintf(" AND group_id=$%d", argPos)
		args = append(args, filter.GroupID)
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	submissions := []*model.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

func (r *SubmissionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n)
	return n, err
}

var _ SubmissionRepositoryInterface = (*SubmissionRepository)(nil)
