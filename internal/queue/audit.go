package queue

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SubmissionAuditor re-checks a stored submission. Returning an error asks
// the queue to retry; a fingerprint mismatch is not an error.
type SubmissionAuditor interface {
	AuditSubmission(ctx context.Context, ev SubmissionEvent) error
}

const auditTimeout = 10 * time.Second

// SubmissionAuditHandler adapts an auditor to a queue handler.
func SubmissionAuditHandler(auditor SubmissionAuditor, log *zap.Logger) func(payload any) error {
	return func(payload any) error {
		ev, err := DecodeSubmissionEvent(payload)
		if err != nil {
			log.Warn("dropping malformed submission event", zap.Error(err))
			return nil // no retry
		}
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		return auditor.AuditSubmission(ctx, ev)
	}
}

func StartSubmissionAuditSubscriber(q Queue, auditor SubmissionAuditor, log *zap.Logger) error {
	return q.Subscribe(TopicSubmissionCreated, SubmissionAuditHandler(auditor, log))
}
