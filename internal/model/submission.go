// internal/model/submission.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type ComputedDates struct {
	SurveyDueDate string `json:"survey_due_date"`
}

func (d ComputedDates) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *ComputedDates) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ComputedDates{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	}
	return fmt.Errorf("computed_dates: unsupported type %T", src)
}

// Submission is the audit record of one completed consent flow.
// It is written once and never updated or deleted.
type Submission struct {
	ID                   string        `db:"id" json:"id"`
	PlanID               string        `db:"plan_id" json:"plan_id"`
	GroupID              string        `db:"group_id" json:"group_id"`
	CustomerName         string        `db:"customer_name" json:"customer_name"`
	CustomerEmail        string        `db:"customer_email" json:"customer_email"`
	CustomerPhone        *string       `db:"customer_phone" json:"customer_phone"`
	ContractStartDate    string        `db:"contract_start_date" json:"contract_start_date"`
	ComputedDates        ComputedDates `db:"computed_dates" json:"computed_dates"`
	RenderedContractBody string        `db:"rendered_contract_body" json:"rendered_contract_body"`
	RenderedEmailSubject string        `db:"rendered_email_subject" json:"rendered_email_subject"`
	RenderedEmailBody    string        `db:"rendered_email_body" json:"rendered_email_body"`
	ContractFingerprint  string        `db:"contract_fingerprint" json:"contract_fingerprint"`
	GeneratedAt          string        `db:"generated_at" json:"generated_at"`
	UserAgent            *string       `db:"user_agent" json:"user_agent"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
}

// SubmissionFilter narrows submission listings. Empty fields match everything.
type SubmissionFilter struct {
	PlanID  string
	GroupID string
}
