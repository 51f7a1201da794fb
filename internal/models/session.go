package models

import "time"

type Phase string

const (
	PhaseCollectingProfile Phase = "collecting-profile"
	PhaseInProgress        Phase = "in-progress"
	PhasePaused            Phase = "paused"
	PhaseFinalizing        Phase = "finalizing"
	PhaseFinalized         Phase = "finalized" // terminal
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Question struct {
	ID          string     `json:"id"`
	Difficulty  Difficulty `json:"difficulty"`
	DurationSec int        `json:"duration_sec"`

	// Text stays empty until populated by the completion collaborator.
	Text string `json:"text"`

	// Answer is nil until the question is answered; answers are write-once.
	Answer    *string `json:"answer,omitempty"`
	Score     *int    `json:"score,omitempty"` // 0-10
	Reasoning string  `json:"reasoning,omitempty"`

	// Absolute timestamps so remaining time survives serialization and
	// process restarts.
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndAt     *time.Time `json:"end_at,omitempty"`
}

func (q *Question) Answered() bool { return q.Answer != nil }

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// MessageKind tags chat entries for rendering only; logic never reads it.
type MessageKind string

const (
	KindQuestion MessageKind = "question"
	KindAnswer   MessageKind = "answer"
	KindFeedback MessageKind = "feedback"
	KindInfo     MessageKind = "info"
)

type ChatMessage struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      MessageKind `json:"kind,omitempty"`
}

type Session struct {
	ID          string     `json:"id"`
	Phase       Phase      `json:"phase"`
	Questions   []Question `json:"questions"`
	ActiveIndex int        `json:"active_index"`

	// Append-only; insertion order is the display order.
	Chat []ChatMessage `json:"chat"`

	FinalScore *int   `json:"final_score,omitempty"` // 0-100, set once
	Summary    string `json:"summary,omitempty"`

	// Guards the "please provide your X" prompt so each field is asked
	// at most once per session.
	MissingFieldsAsked map[ProfileField]bool `json:"missing_fields_asked"`

	// Draft holds the partial answer buffered for the active question;
	// auto-submit uses it when the countdown expires.
	Draft string `json:"draft,omitempty"`

	// Remaining time captured on pause, re-applied as end_at = now +
	// remaining on resume so a pause round-trip never shrinks the window.
	PausedRemainingMS int64 `json:"paused_remaining_ms,omitempty"`
}

func (s *Session) ActiveQuestion() *Question {
	if s == nil || s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.ActiveIndex]
}
