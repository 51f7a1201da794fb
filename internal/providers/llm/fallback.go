package llm

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
)

var questionPools = map[models.Difficulty][]string{
	models.DifficultyEasy: {
		"Explain the difference between var, let, and const in JavaScript, and when to use each.",
		"What is the Virtual DOM in React and how does it improve performance?",
		"How do you handle component state in React? Give a simple example.",
	},
	models.DifficultyMedium: {
		"Describe how you would implement server-side rendering with Next.js for SEO-sensitive pages.",
		"How do you design a REST API in Node.js/Express for a posts resource, including validation and error handling?",
		"Explain how React hooks like useMemo and useCallback help with performance. Provide examples.",
	},
	models.DifficultyHard: {
		"Design a robust authentication/authorization flow for a full-stack app (React frontend, Node backend) including token refresh and protected routes.",
		"How would you scale a real-time feature (e.g., notifications) across multiple Node instances? Discuss architecture and tradeoffs.",
		"Given a slow React list rendering thousands of items, outline a plan to optimize it end-to-end (rendering, data-fetching, memoization).",
	},
}

var judgeKeywords = []string{
	"react", "state", "props", "node", "express", "api", "performance",
	"memo", "usememo", "usecallback", "next.js", "ssr", "csr", "auth",
	"token", "jwt", "cache", "scal", "optimiz", "virtual dom",
}

var difficultyWeights = map[models.Difficulty]float64{
	models.DifficultyEasy:   1.0,
	models.DifficultyMedium: 1.1,
	models.DifficultyHard:   1.3,
}

const heuristicReasoning = "Heuristic grading applied locally: based on answer length, presence of relevant technical keywords, and difficulty bonus. This is a non-AI fallback."

// Fallback is the deterministic local collaborator used whenever the hosted
// model is unavailable or errors. It never fails.
type Fallback struct{}

func NewFallback() *Fallback { return &Fallback{} }

func (f *Fallback) NextQuestion(_ context.Context, _ string, difficulty models.Difficulty, _ []PreviousQA) (string, error) {
	pool, ok := questionPools[difficulty]
	if !ok {
		pool = questionPools[models.DifficultyEasy]
	}
	return pool[rand.Intn(len(pool))], nil
}

func (f *Fallback) Judge(_ context.Context, _ string, difficulty models.Difficulty, question, answer string) (Judgment, error) {
	return HeuristicJudge(question, answer, difficulty), nil
}

func (f *Fallback) Finalize(_ context.Context, profile Profile, results []QuestionResult) (FinalReport, error) {
	return WeightedFinalize(profile, results), nil
}

// HeuristicJudge scores an answer by length, technical keyword hits (capped
// at 3), and a difficulty bonus of 0/1/2, clamped to 0-10.
func HeuristicJudge(_ string, answer string, difficulty models.Difficulty) Judgment {
	base := len(strings.TrimSpace(answer)) / 50
	if base > 10 {
		base = 10
	}

	lower := strings.ToLower(answer)
	bonus := 0
	for _, k := range judgeKeywords {
		if strings.Contains(lower, k) {
			bonus++
		}
	}
	if bonus > 3 {
		bonus = 3
	}

	boost := 0
	switch difficulty {
	case models.DifficultyMedium:
		boost = 1
	case models.DifficultyHard:
		boost = 2
	}

	return Judgment{
		Score:     clamp(base+bonus+boost, 0, 10),
		Reasoning: heuristicReasoning,
	}
}

// WeightedFinalize combines per-question scores with difficulty weights
// (1.0/1.1/1.3) into a 0-100 percentage plus a template summary. The
// denominator is floored so an empty result list cannot divide by zero.
func WeightedFinalize(profile Profile, results []QuestionResult) FinalReport {
	var total, weightSum float64
	for _, r := range results {
		w := difficultyWeights[r.Difficulty]
		if w == 0 {
			w = 1.0
		}
		total += float64(r.Score) * w
		weightSum += 10 * w
	}
	if weightSum == 0 {
		weightSum = 60
	}
	pct := int(total/weightSum*100 + 0.5)

	name := profile.Name
	if name == "" {
		name = "Candidate"
	}
	summary := fmt.Sprintf(
		"%s completed a full-stack interview using a local evaluation fallback. "+
			"Strengths observed include familiarity with React and Node fundamentals. "+
			"Areas for improvement may include deeper discussion of tradeoffs, architectural "+
			"patterns, and performance measurement with concrete metrics.", name)

	return FinalReport{FinalScore: clamp(pct, 0, 100), Summary: summary}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
