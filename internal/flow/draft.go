// Package flow models the customer's half-finished consent form. The server
// never stores it: it lives in a signed cookie and is checked against the
// slug and token of the page before it is reused.
package flow

import (
	"errors"
	"strings"

	"github.com/unclebandit/aspform-backend/internal/model"
	"github.com/unclebandit/aspform-backend/internal/service"
)

type Step string

const (
	StepInput      Step = "input"
	StepConfirm    Step = "confirm"
	StepCheckpoint Step = "checkpoint"
	StepComplete   Step = "complete"
)

var stepOrder = map[Step]int{
	StepInput:      0,
	StepConfirm:    1,
	StepCheckpoint: 2,
	StepComplete:   3,
}

func (s Step) Valid() bool {
	_, ok := stepOrder[s]
	return ok
}

var (
	ErrUnknownStep         = errors.New("unknown step")
	ErrSkippedStep         = errors.New("steps must be completed in order")
	ErrMissingCustomer     = errors.New("customer name, email and contract start date are required")
	ErrInvalidStartDate    = errors.New("contract start date is not a valid date")
	ErrChecklistIncomplete = errors.New("every checklist item must be checked")
)

type Draft struct {
	Slug              string   `json:"slug"`
	Token             string   `json:"token"`
	Step              Step     `json:"step"`
	CustomerName      string   `json:"customer_name"`
	CustomerEmail     string   `json:"customer_email"`
	CustomerPhone     string   `json:"customer_phone,omitempty"`
	ContractStartDate string   `json:"contract_start_date"`
	CheckedItems      []string `json:"checked_items,omitempty"`
}

func NewDraft(slug, token string) *Draft {
	return &Draft{Slug: slug, Token: token, Step: StepInput}
}

// Matches reports whether the draft was started for this plan and token.
func (d *Draft) Matches(slug, token string) bool {
	return d != nil && d.Slug == slug && d.Token == token
}

// Advance moves the draft to next, forward one step at a time or back any
// number of steps. A draft left at confirm or later must carry valid customer
// data, and one left at complete must have every checklist item checked.
func (d *Draft) Advance(next Step, checklist model.ChecklistItems) error {
	if !next.Valid() {
		return ErrUnknownStep
	}
	from := stepOrder[d.Step]
	to := stepOrder[next]
	if to > from+1 {
		return ErrSkippedStep
	}

	if to >= stepOrder[StepConfirm] {
		if err := d.validateCustomer(); err != nil {
			return err
		}
	}
	if next == StepComplete && !d.allChecked(checklist) {
		return ErrChecklistIncomplete
	}
	d.Step = next
	return nil
}

func (d *Draft) validateCustomer() error {
	if strings.TrimSpace(d.CustomerName) == "" || strings.TrimSpace(d.CustomerEmail) == "" ||
		strings.TrimSpace(d.ContractStartDate) == "" {
		return ErrMissingCustomer
	}
	if _, err := service.ParseCivilDate(d.ContractStartDate); err != nil {
		return ErrInvalidStartDate
	}
	return nil
}

func (d *Draft) allChecked(checklist model.ChecklistItems) bool {
	checked := make(map[string]struct{}, len(d.CheckedItems))
	for _, id := range d.CheckedItems {
		checked[id] = struct{}{}
	}
	for _, item := range checklist {
		if _, ok := checked[item.ID]; !ok {
			return false
		}
	}
	return true
}

// SubmitRequest is the payload sent when the customer confirms the
// checkpoint page.
func (d *Draft) SubmitRequest() service.SubmitRequest {
	req := service.SubmitRequest{
		Token:             d.Token,
		CustomerName:      d.CustomerName,
		CustomerEmail:     d.CustomerEmail,
		ContractStartDate: d.ContractStartDate,
		AgreeChecked:      true,
	}
	if d.CustomerPhone != "" {
		phone := d.CustomerPhone
		req.CustomerPhone = &phone
	}
	return req
}
