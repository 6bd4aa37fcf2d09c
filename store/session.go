package store

// SessionStatus is the lifecycle state of an interview session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// UserProfile holds the caller-supplied identity fields collected at login.
// Beyond the non-empty checks at the HTTP boundary they are unvalidated.
type UserProfile struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Tenure     string `json:"tenure"`
}

// InterviewSession represents one authenticated interview run.
//
// The current phase is intentionally not a field: it is always derived from
// ExchangeCount (interview.DeriveStage), so replaying a message log
// reproduces the same phase sequence.
type InterviewSession struct {
	ID            string
	User          UserProfile
	Status        SessionStatus
	ExchangeCount int
	Summary       *Summary
	CreatedTs     int64
}

// Message is a single turn within a session. Immutable once appended.
type Message struct {
	SessionID string
	Index     int
	Role      string // "user" | "assistant"
	Content   string
	CreatedTs int64
}

// FindSession filters for GetSession/ListSessions.
type FindSession struct {
	ID     *string
	Status *SessionStatus
}

// ProcessStep is one step of the extracted booking-process map.
type ProcessStep struct {
	Step        string   `json:"step"`
	DurationMin int      `json:"duration_min"`
	Tools       []string `json:"tools"`
	Manual      bool     `json:"manual"`
}

// PainPoint is one extracted frustration.
type PainPoint struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`  // high | medium | low
	Frequency   string `json:"frequency"` // daily | weekly | monthly
}

// ToolUse is one tool the interviewee reported using.
type ToolUse struct {
	Name         string `json:"name"`
	Purpose      string `json:"purpose"`
	Satisfaction string `json:"satisfaction"` // high | medium | low
}

// AutomationOpportunity is one candidate task for automation.
type AutomationOpportunity struct {
	Task                  string `json:"task"`
	EstimatedTimeSavedMin int    `json:"estimated_time_saved_min"`
	Complexity            string `json:"complexity"` // easy | medium | hard
}

// Summary is the structured extraction produced once per session. When the
// model output fails to parse as this shape, Raw carries the unparsed text
// and the structured fields stay empty.
type Summary struct {
	ProcessMap              []ProcessStep           `json:"process_map,omitempty"`
	PainPoints              []PainPoint             `json:"pain_points,omitempty"`
	ToolsUsed               []ToolUse               `json:"tools_used,omitempty"`
	AutomationOpportunities []AutomationOpportunity `json:"automation_opportunities,omitempty"`
	KeyQuotes               []string                `json:"key_quotes,omitempty"`
	InteractionStyle        string                  `json:"interaction_style,omitempty"`
	OverallSummary          string                  `json:"overall_summary,omitempty"`
	Raw                     string                  `json:"raw,omitempty"`
}
