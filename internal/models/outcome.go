package models

import "time"

// MessageState is a step of the per-message pipeline.
type MessageState string

const (
	StateReceived     MessageState = "received"
	StateNormalized   MessageState = "normalized"
	StateBlocked      MessageState = "blocked"
	StateAdmitted     MessageState = "admitted"
	StateReplied      MessageState = "replied"
	StateReplyPending MessageState = "reply_pending"
	// StateFailed means the message could not even be fetched.
	StateFailed MessageState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s MessageState) Terminal() bool {
	switch s {
	case StateBlocked, StateReplied, StateReplyPending, StateFailed:
		return true
	}
	return false
}

// AdmissionDecision is the result of the sender admission policy.
type AdmissionDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ReplyEnvelope is an outbound reply before wire encoding.
type ReplyEnvelope struct {
	From       string
	To         string
	Subject    string
	Body       string
	MessageID  string
	InReplyTo  string
	References string
	Date       time.Time
}

// Outcome is the reported result for one processed message.
type Outcome struct {
	MessageID   string       `json:"message_id"`
	ThreadID    string       `json:"thread_id"`
	SenderEmail string       `json:"sender_email"`
	Subject     string       `json:"subject"`
	State       MessageState `json:"state"`
	Reason      string       `json:"reason,omitempty"`
	SentID      string       `json:"sent_id,omitempty"`
	RecordedAt  time.Time    `json:"recorded_at"`
}

// Student is a sender whose details were extracted from their messages.
type Student struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	AdmissionNumber string    `json:"admission_number"`
	Course          string    `json:"course"`
	Year            string    `json:"year"`
	Semester        string    `json:"semester"`
	Group           string    `json:"group"`
	Summary         string    `json:"summary"`
	UpdatedAt       time.Time `json:"updated_at"`
}
