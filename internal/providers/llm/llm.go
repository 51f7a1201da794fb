package llm

import (
	"context"

	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
)

// PreviousQA summarizes an earlier question for the next-question prompt.
type PreviousQA struct {
	Difficulty models.Difficulty `json:"difficulty"`
	Question   string            `json:"question"`
	Score      *int              `json:"score"`
}

// Judgment is the per-answer verdict: a 0-10 score plus reasoning text.
type Judgment struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// QuestionResult carries one answered question into finalization.
type QuestionResult struct {
	Difficulty models.Difficulty `json:"difficulty"`
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	Score      int               `json:"score"`
}

// Profile is the candidate contact info handed to finalization prompts.
type Profile struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// FinalReport is the aggregate outcome: 0-100 score and narrative summary.
type FinalReport struct {
	FinalScore int    `json:"finalScore"`
	Summary    string `json:"summary"`
}

// Collaborator produces question text, judgments, and final summaries.
// Implementations may fail; callers degrade to the deterministic Fallback.
type Collaborator interface {
	NextQuestion(ctx context.Context, role string, difficulty models.Difficulty, previous []PreviousQA) (string, error)
	Judge(ctx context.Context, role string, difficulty models.Difficulty, question, answer string) (Judgment, error)
	Finalize(ctx context.Context, profile Profile, results []QuestionResult) (FinalReport, error)
}
