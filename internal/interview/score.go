package interview

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
	"github.com/Devansh978/AI-Interview-Assistant/internal/providers/llm"
)

// Aggregator fronts the completion collaborator and owns the degrade path:
// any collaborator failure is replaced by the deterministic local fallback
// and reported as degraded mode, never as an error.
type Aggregator struct {
	primary  llm.Collaborator
	fallback *llm.Fallback
	log      *logrus.Logger
}

// NewAggregator wires the hosted collaborator; primary may be nil to run
// fully local.
func NewAggregator(primary llm.Collaborator, log *logrus.Logger) *Aggregator {
	if log == nil {
		log = logrus.New()
	}
	return &Aggregator{
		primary:  primary,
		fallback: llm.NewFallback(),
		log:      log,
	}
}

func (a *Aggregator) NextQuestion(ctx context.Context, role string, difficulty models.Difficulty, previous []llm.PreviousQA) (string, bool) {
	if a.primary != nil {
		text, err := a.primary.NextQuestion(ctx, role, difficulty, previous)
		if err == nil {
			return text, false
		}
		a.log.WithError(err).Warn("collaborator next-question failed; using fallback")
	}
	text, _ := a.fallback.NextQuestion(ctx, role, difficulty, previous)
	return text, true
}

func (a *Aggregator) Judge(ctx context.Context, role string, difficulty models.Difficulty, question, answer string) (llm.Judgment, bool) {
	if a.primary != nil {
		j, err := a.primary.Judge(ctx, role, difficulty, question, answer)
		if err == nil {
			return j, false
		}
		a.log.WithError(err).Warn("collaborator judge failed; using fallback")
	}
	j, _ := a.fallback.Judge(ctx, role, difficulty, question, answer)
	return j, true
}

func (a *Aggregator) Finalize(ctx context.Context, profile llm.Profile, results []llm.QuestionResult) (llm.FinalReport, bool) {
	if a.primary != nil {
		r, err := a.primary.Finalize(ctx, profile, results)
		if err == nil {
			return r, false
		}
		a.log.WithError(err).Warn("collaborator finalize failed; using fallback")
	}
	r, _ := a.fallback.Finalize(ctx, profile, results)
	return r, true
}
