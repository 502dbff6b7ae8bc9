package model

import (
	"time"

	"github.com/google/uuid"
)

type ActionKind string

const (
	ActionAckReminder   ActionKind = "ack_reminder"
	ActionStartReminder ActionKind = "start_reminder"
)

// Service request lifecycle states the reminder scheduler cares about.
const (
	StatePendingAck   = "pending_ack"
	StateAcknowledged = "acknowledged"
	StateInProgress   = "in_progress"
	StateCompleted    = "completed"
	StateCancelled    = "cancelled"
	StateDeleted      = "deleted"
)

// ActionableStates are the states in which a scheduled reminder may still fire.
var ActionableStates = []string{StatePendingAck, StateAcknowledged}

// WorkflowState tracks one service request's pending reminder. At most one
// action is scheduled at a time.
type WorkflowState struct {
	ServiceRequestID   uuid.UUID   `json:"service_request_id" db:"service_request_id"`
	State              string      `json:"state" db:"state"`
	NextAction         *ActionKind `json:"next_action,omitempty" db:"next_action"`
	NextActionAt       *time.Time  `json:"next_action_at,omitempty" db:"next_action_at"`
	AckReminderCount   int         `json:"ack_reminder_count" db:"ack_reminder_count"`
	StartReminderCount int         `json:"start_reminder_count" db:"start_reminder_count"`
	PolicyID           *uuid.UUID  `json:"policy_id,omitempty" db:"policy_id"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// RetryCount returns the counter belonging to kind.
func (w *WorkflowState) RetryCount(kind ActionKind) int {
	if kind == ActionStartReminder {
		return w.StartReminderCount
	}
	return w.AckReminderCount
}

// ReminderCeilings holds per-policy overrides; nil means use the default.
type ReminderCeilings struct {
	AckReminder   *int `json:"ack_reminder,omitempty" db:"ack_reminder_ceiling"`
	StartReminder *int `json:"start_reminder,omitempty" db:"start_reminder_ceiling"`
}

// For returns the override for kind, if any.
func (c ReminderCeilings) For(kind ActionKind) *int {
	if kind == ActionStartReminder {
		return c.StartReminder
	}
	return c.AckReminder
}
