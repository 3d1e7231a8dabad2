// internal/model/plan.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ChecklistItem is one compliance statement the customer must acknowledge.
// Text may contain template placeholders.
type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChecklistItems is stored as a jsonb column.
type ChecklistItems []ChecklistItem

func (c ChecklistItems) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *ChecklistItems) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = ChecklistItems{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("checklist_items: unsupported type %T", src)
	}
	items := ChecklistItems{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("checklist_items: %w", err)
	}
	*c = items
	return nil
}

// DuplicateID returns the first checklist id that appears more than once.
func (c ChecklistItems) DuplicateID() (string, bool) {
	seen := make(map[string]struct{}, len(c))
	for _, item := range c {
		if _, ok := seen[item.ID]; ok {
			return item.ID, true
		}
		seen[item.ID] = struct{}{}
	}
	return "", false
}

type Plan struct {
	ID                   string         `db:"id" json:"id"`
	Name                 string         `db:"name" json:"name"`
	Slug                 string         `db:"slug" json:"slug"`
	Status               bool           `db:"status" json:"status"`
	ContractBodyHTML     string         `db:"contract_body_html" json:"contract_body_html"`
	ChecklistItems       ChecklistItems `db:"checklist_items" json:"checklist_items"`
	EmailSubjectTemplate string         `db:"email_subject_template" json:"email_subject_template"`
	EmailBodyTemplate    string         `db:"email_body_template" json:"email_body_template"`
	SurveyDueMonths      int            `db:"survey_due_months" json:"survey_due_months"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// PlanUpdate carries a partial update; nil fields are left untouched.
type PlanUpdate struct {
	Name                 *string         `json:"name"`
	Slug                 *string         `json:"slug"`
	Status               *bool           `json:"status"`
	ContractBodyHTML     *string         `json:"contract_body_html"`
	ChecklistItems       *ChecklistItems `json:"checklist_items"`
	EmailSubjectTemplate *string         `json:"email_subject_template"`
	EmailBodyTemplate    *string         `json:"email_body_template"`
	SurveyDueMonths      *int            `json:"survey_due_months"`
}

// Apply copies the set fields of u onto p.
func (u PlanUpdate) Apply(p *Plan) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Slug != nil {
		p.Slug = *u.Slug
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.ContractBodyHTML != nil {
		p.ContractBodyHTML = *u.ContractBodyHTML
	}
	if u.ChecklistItems != nil {
		p.ChecklistItems = *u.ChecklistItems
	}
	if u.EmailSubjectTemplate != nil {
		p.EmailSubjectTemplate = *u.EmailSubjectTemplate
	}
	if u.EmailBodyTemplate != nil {
		p.EmailBodyTemplate = *u.EmailBodyTemplate
	}
	if u.SurveyDueMonths != nil {
		p.SurveyDueMonths = *u.SurveyDueMonths
	}
}
