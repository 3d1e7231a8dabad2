// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error code returned by the customer flow.
type Code string

const (
	CodeAgreeRequired  Code = "AGREE_REQUIRED"
	CodeMissingToken   Code = "MISSING_TOKEN"
	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodePlanInactive   Code = "PLAN_INACTIVE"
	CodeInvalidToken   Code = "INVALID_TOKEN"
	CodeTokenExpired   Code = "TOKEN_EXPIRED"
)

var messages = map[Code]string{
	CodeMissingToken:   "URLにトークンが含まれていません。正しいURLからアクセスしてください。",
	CodeInvalidToken:   "トークンが無効です。URLを確認してください。",
	CodeTokenExpired:   "トークンの有効期限が切れています。担当者にお問い合わせください。",
	CodePlanInactive:   "このプランは現在無効です。担当者にお問い合わせください。",
	CodeInvalidRequest: "リクエストが無効です。もう一度お試しください。",
	CodeAgreeRequired:  "同意チェックが必要です。",
}

// Message returns the customer-facing text for a code.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "エラーが発生しました。もう一度お試しください。"
}

// FlowError is returned by the consent pipeline. Err, when set, is the
// internal cause and is only ever logged.
type FlowError struct {
	Code   Code
	Status int
	Err    error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// NewFlowError builds a client-facing (400) flow error.
func NewFlowError(code Code) error {
	return &FlowError{Code: code, Status: http.StatusBadRequest}
}

// Internal collapses an unexpected failure into INVALID_REQUEST/500.
func Internal(err error) error {
	return &FlowError{Code: CodeInvalidRequest, Status: http.StatusInternalServerError, Err: err}
}

// AsFlowError extracts a FlowError from err.
func AsFlowError(err error) (*FlowError, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ErrNotFound is a typed not-found error for any stored entity.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// Helper constructor
func NewNotFound(entity, key string) error {
	return &ErrNotFound{Entity: entity, Key: key}
}

// IsNotFound reports whether err is (or wraps) an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

var (
	ErrDuplicateSlug  = errors.New("a plan with this slug already exists")
	ErrDuplicateToken = errors.New("a group with this token already exists")
)

// ValidationError is an admin input error; Message is shown to the operator.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidation(message string) error {
	return &ValidationError{Message: message}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
