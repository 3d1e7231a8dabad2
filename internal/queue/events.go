package queue

import (
	"encoding/json"
	"fmt"
)

// TopicSubmissionCreated is published after a submission has been stored.
const TopicSubmissionCreated = "submission_created"

type SubmissionEvent struct {
	SubmissionID string `json:"submission_id"`
	PlanID       string `json:"plan_id"`
	GroupID      string `json:"group_id"`
	Fingerprint  string `json:"fingerprint"`
}

// DecodeSubmissionEvent accepts the event as published in-process or as the
// JSON body delivered by the broker.
func DecodeSubmissionEvent(payload any) (SubmissionEvent, error) {
	switch v := payload.(type) {
	case SubmissionEvent:
		return v, nil
	case *SubmissionEvent:
		if v == nil {
			return SubmissionEvent{}, fmt.Errorf("nil submission event")
		}
		return *v, nil
	case []byte:
		var ev SubmissionEvent
		if err := json.Unmarshal(v, &ev); err != nil {
			return SubmissionEvent{}, fmt.Errorf("decode submission event: %w", err)
		}
		return ev, nil
	}
	return SubmissionEvent{}, fmt.Errorf("unexpected payload type %T", payload)
}
