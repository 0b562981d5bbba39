package arenadto

// Result is the discriminated outcome of a mutating session operation:
// either a committed snapshot, or a named failure reason. Infrastructure
// errors are returned separately and never encoded here.
type Result struct {
	OK       bool      `json:"ok"`
	Code     string    `json:"code,omitempty"`
	Message  string    `json:"message,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

func Success(s *Snapshot) *Result { return &Result{OK: true, Snapshot: s} }

func Failure(code, message string) *Result {
	return &Result{OK: false, Code: code, Message: message}
}

// QueueResult is returned from a matchmaking join: either the caller was
// paired into a new session, or queued waiting for an opponent.
type QueueResult struct {
	Paired    bool      `json:"paired"`
	SessionID string    `json:"session_id,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
}
