package constants

// SessionStatus is the canonical status for rows in ocr_sessions.
type SessionStatus string

// Stable values (store these exact strings in the DB).
const (
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)
