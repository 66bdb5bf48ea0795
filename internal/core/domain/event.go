package domain

import "time"

// AuthEventKind identifies the operation an audit event describes.
type AuthEventKind string

const (
	EventRegister AuthEventKind = "register"
	EventLogin    AuthEventKind = "login"
	EventRefresh  AuthEventKind = "refresh"
	EventLogout   AuthEventKind = "logout"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthEvent is an entry of the authentication audit trail.
type AuthEvent struct {
	Kind       AuthEventKind
	Outcome    string
	UserID     int64  // zero when the user is unknown
	Subject    string // email or username the request was made for
	Reason     string // internal failure kind, never sent to clients
	OccurredAt time.Time
}
