package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
)

type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	return &VertexGemini{client: c, model: m}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) NextQuestion(ctx context.Context, role string, difficulty models.Difficulty, previous []PreviousQA) (string, error) {
	prevJSON, _ := json.Marshal(previous)
	prompt := fmt.Sprintf(
		"You are an expert interviewer for a %s role.\n"+
			"Generate ONE %s difficulty technical interview question focused on practical skills.\n"+
			"Avoid multiple questions; be concise but clear. Do not include answers.\n"+
			"Previous questions and scores: %s.",
		role, difficulty, prevJSON)

	text, err := v.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("vertex: empty question response")
	}
	return text, nil
}

func (v *VertexGemini) Judge(ctx context.Context, role string, difficulty models.Difficulty, question, answer string) (Judgment, error) {
	prompt := fmt.Sprintf(
		"You are a strict but fair technical interviewer. Score the answer from 0 to 10 "+
			"based on correctness, completeness, clarity, and relevance.\n"+
			"Role: %s\nDifficulty: %s\nQuestion: %s\nCandidate Answer: %s\n"+
			`Respond with JSON only: {"score": <number 0-10>, "reasoning": "<string>"}`,
		role, difficulty, question, answer)

	text, err := v.generate(ctx, prompt)
	if err != nil {
		return Judgment{}, err
	}

	var parsed struct {
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &parsed); err != nil {
		return Judgment{}, fmt.Errorf("vertex: parse judgment: %w", err)
	}
	return Judgment{
		Score:     clamp(int(parsed.Score+0.5), 0, 10),
		Reasoning: parsed.Reasoning,
	}, nil
}

func (v *VertexGemini) Finalize(ctx context.Context, profile Profile, results []QuestionResult) (FinalReport, error) {
	profileJSON, _ := json.Marshal(profile)
	resultsJSON, _ := json.Marshal(results)
	prompt := fmt.Sprintf(
		"Create a brief, professional candidate summary and an overall score 0-100 based "+
			"on per-question scores and difficulty. Weigh harder questions slightly more. "+
			"Keep the summary under 120 words and mention strengths and areas to improve.\n"+
			"Profile: %s\nQuestions/Answers/Scores: %s\n"+
			`Respond with JSON only: {"finalScore": <number 0-100>, "summary": "<string>"}`,
		profileJSON, resultsJSON)

	text, err := v.generate(ctx, prompt)
	if err != nil {
		return FinalReport{}, err
	}

	var parsed struct {
		FinalScore float64 `json:"finalScore"`
		Summary    string  `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &parsed); err != nil {
		return FinalReport{}, fmt.Errorf("vertex: parse final report: %w", err)
	}
	return FinalReport{
		FinalScore: clamp(int(parsed.FinalScore+0.5), 0, 100),
		Summary:    parsed.Summary,
	}, nil
}

// generate streams a completion and accumulates the text parts.
func (v *VertexGemini) generate(ctx context.Context, prompt string) (string, error) {
	it := v.model.GenerateContentStream(ctx, vertexgenai.Text(prompt))

	var sb strings.Builder
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok && string(t) != "" {
					sb.WriteString(string(t))
				}
			}
		}
	}
}

// stripCodeFence unwraps ```json ... ``` blocks some model responses carry.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
