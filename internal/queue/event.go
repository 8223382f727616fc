// Package queue carries session lifecycle events over RabbitMQ: the
// publisher used by the session service and the consumer that appends them
// to the audit log.
package queue

import "time"

// SessionQueueName is the durable queue session events are routed to.
const SessionQueueName = "session.events"

// Session event types.
const (
    EventIssued           = "session.issued"
    EventRotated          = "session.rotated"
    EventRevoked          = "session.revoked"
    EventRevokedAll       = "session.revoked_all"
    EventRotationRejected = "session.rotation_rejected"
)

// SessionEvent describes one change to the session ledger.  It carries enough
// context for the audit log without a database lookup; token material is
// never included.
type SessionEvent struct {
    Type       string    `json:"type"`
    Audience   string    `json:"audience"`
    SubjectID  string    `json:"subject_id,omitempty"`
    SessionID  string    `json:"session_id,omitempty"`
    PreviousID string    `json:"previous_session_id,omitempty"`
    Count      int64     `json:"count,omitempty"` // rows touched by revoked_all
    IP         string    `json:"ip,omitempty"`
    UserAgent  string    `json:"user_agent,omitempty"`
    At         time.Time `json:"at"`
}
