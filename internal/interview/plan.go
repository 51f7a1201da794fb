package interview

import (
	"github.com/google/uuid"

	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
)

// Every interview runs the same fixed plan: two easy, two medium, two hard,
// in that order. The shape is a system-wide constant, not per-session config.
var planDifficulties = []models.Difficulty{
	models.DifficultyEasy,
	models.DifficultyEasy,
	models.DifficultyMedium,
	models.DifficultyMedium,
	models.DifficultyHard,
	models.DifficultyHard,
}

var durationSecByDifficulty = map[models.Difficulty]int{
	models.DifficultyEasy:   20,
	models.DifficultyMedium: 60,
	models.DifficultyHard:   120,
}

// DurationSec returns the countdown length for a difficulty.
func DurationSec(d models.Difficulty) int { return durationSecByDifficulty[d] }

// BuildQuestionPlan allocates the six question slots. Text stays empty until
// the completion collaborator fills it in.
func BuildQuestionPlan() []models.Question {
	qs := make([]models.Question, 0, len(planDifficulties))
	for _, d := range planDifficulties {
		qs = append(qs, models.Question{
			ID:          uuid.NewString(),
			Difficulty:  d,
			DurationSec: durationSecByDifficulty[d],
		})
	}
	return qs
}
