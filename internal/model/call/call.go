package call

import "time"

// Direction distinguishes who initiated the call leg.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ParseDirection maps the raw Twilio Direction field ("inbound",
// "outbound-api", "outbound-dial") onto the two directions we care about.
func ParseDirection(raw string) Direction {
	if len(raw) >= 8 && raw[:8] == "outbound" {
		return DirectionOutbound
	}
	return DirectionInbound
}

// IsOutbound reports whether the system placed the call.
func (d Direction) IsOutbound() bool { return d == DirectionOutbound }

// Turn is one utterance in a conversation. Immutable once appended.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Record mirrors the calls row owned by the CRUD datastore. The
// orchestrator reads a handful of fields and writes status, recording
// and transcript fields; everything else belongs to the dashboard.
type Record struct {
	ID                string
	TwilioCallSid     string
	VoiceAgentID      string
	RealEstateAgentID string
	ContactID         string
	FromNumber        string
	ToNumber          string
	Status            string
	Direction         Direction
	DurationSeconds   int
	RecordingURL      string
	RecordingSid      string
	Transcript        string
	TranscriptJSON    string
	UserPovSummary    string
	StartedAt         time.Time
	AnsweredAt        time.Time
	EndedAt           time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Call statuses as reported by the telephony provider.
const (
	StatusInitiated  = "initiated"
	StatusRinging    = "ringing"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusBusy       = "busy"
	StatusNoAnswer   = "no-answer"
	StatusCanceled   = "canceled"
)

// TerminalStatus reports whether a provider status ends the call.
func TerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer, StatusCanceled:
		return true
	}
	return false
}
