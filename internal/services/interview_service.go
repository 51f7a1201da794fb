package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Devansh978/AI-Interview-Assistant/internal/extractor"
	"github.com/Devansh978/AI-Interview-Assistant/internal/interview"
	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
	"github.com/Devansh978/AI-Interview-Assistant/internal/providers/llm"
	"github.com/Devansh978/AI-Interview-Assistant/internal/resume"
	"github.com/Devansh978/AI-Interview-Assistant/internal/storage"
	"github.com/Devansh978/AI-Interview-Assistant/internal/utils"
)

const greetingText = "Welcome! Please upload your resume (PDF/DOCX). I will extract your details and collect any missing info before we begin."

const allSetText = "Great, all set! We will start a timed interview of 6 questions: 2 Easy (20s), 2 Medium (60s), 2 Hard (120s). Please answer concisely."

var missingFieldPrompts = map[models.ProfileField]string{
	models.FieldName:  "Could you please provide your full name?",
	models.FieldEmail: "I could not find your email. Please provide it.",
	models.FieldPhone: "Please share your phone number, including country code if applicable.",
}

type InterviewService interface {
	StartCandidate(ctx context.Context) (*models.Candidate, error)
	Current(ctx context.Context) (*models.Candidate, error)
	Get(ctx context.Context, candidateID string) (*models.Candidate, error)
	List(ctx context.Context) ([]*models.Candidate, error)
	UploadResume(ctx context.Context, candidateID, fileName string, data []byte, mimeType string) (*models.Candidate, error)
	ProvideField(ctx context.Context, candidateID string, field models.ProfileField, value string) (*models.Candidate, error)
	SubmitAnswer(ctx context.Context, candidateID, answer string) (*models.Candidate, error)
	SetDraft(ctx context.Context, candidateID, draft string) error
	Pause(ctx context.Context, candidateID string) error
	Resume(ctx context.Context, candidateID string) (*models.Candidate, error)
	Restart(ctx context.Context) (*models.Candidate, error)
	Tick(now time.Time)
}

type interviewService struct {
	repo      *interview.Repository
	agg       *interview.Aggregator
	extractor extractor.Extractor
	uploader  storage.Uploader // optional; nil disables archiving
	role      string
	log       *logrus.Logger

	// candidates with an auto-submit already in flight, so repeated ticks
	// past expiry cannot fan out duplicate judging calls
	autoMu     sync.Mutex
	autoActive map[string]bool
}

func NewInterviewService(repo *interview.Repository, agg *interview.Aggregator, ex extractor.Extractor, up storage.Uploader, role string, log *logrus.Logger) InterviewService {
	if role == "" {
		role = "Full Stack (React/Node)"
	}
	if log == nil {
		log = logrus.New()
	}
	return &interviewService{
		repo:       repo,
		agg:        agg,
		extractor:  ex,
		uploader:   up,
		role:       role,
		log:        log,
		autoActive: make(map[string]bool),
	}
}

func (s *interviewService) StartCandidate(_ context.Context) (*models.Candidate, error) {
	const op = "InterviewService.StartCandidate"

	c := s.repo.CreateCandidate()
	if err := s.appendAssistant(c.ID, greetingText, models.KindInfo); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to seed chat", err)
	}
	return s.repo.Get(c.ID)
}

func (s *interviewService) Current(_ context.Context) (*models.Candidate, error) {
	const op = "InterviewService.Current"

	c, ok := s.repo.Current()
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "no current candidate", nil)
	}
	return c, nil
}

func (s *interviewService) Get(_ context.Context, candidateID string) (*models.Candidate, error) {
	return s.repo.Get(candidateID)
}

// List returns all candidates, finalized ones first ordered by score
// descending, then the rest newest-first.
func (s *interviewService) List(_ context.Context) ([]*models.Candidate, error) {
	out := s.repo.List()
	sort.Slice(out, func(i, j int) bool {
		si, sj := finalScoreOf(out[i]), finalScoreOf(out[j])
		if (si == nil) != (sj == nil) {
			return si != nil
		}
		if si != nil && sj != nil && *si != *sj {
			return *si > *sj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func finalScoreOf(c *models.Candidate) *int {
	if c.Session == nil {
		return nil
	}
	return c.Session.FinalScore
}

// UploadResume validates the document, extracts text, parses contact fields
// into the profile, and kicks off missing-field collection or the first
// question. A wrong file type is rejected before any state mutation.
func (s *interviewService) UploadResume(ctx context.Context, candidateID, fileName string, data []byte, mimeType string) (*models.Candidate, error) {
	const op = "InterviewService.UploadResume"

	if !allowedResumeType(mimeType) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unsupported file type (use PDF, DOCX, image, or plain text)", nil)
	}
	if _, err := s.repo.Get(candidateID); err != nil {
		return nil, err
	}

	text, err := s.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		// empty text is the defined "could not extract" result
		s.log.WithError(err).Warn("resume text extraction failed")
		text = ""
	}

	var fields resume.ParsedFields
	if text != "" {
		fields = resume.ParseFields(text)
	}

	if err := s.repo.SetResumeFileName(candidateID, fileName); err != nil {
		return nil, err
	}
	if err := s.repo.MergeProfile(candidateID, fields.Name, fields.Email, fields.Phone); err != nil {
		return nil, err
	}

	s.archiveResume(candidateID, fileName, mimeType, data)

	if err := s.afterProfileChange(ctx, candidateID, false); err != nil {
		return nil, err
	}
	return s.repo.Get(candidateID)
}

func allowedResumeType(mimeType string) bool {
	return mimeType == extractor.MimePDF ||
		mimeType == extractor.MimeDOCX ||
		mimeType == "text/plain" ||
		strings.HasPrefix(mimeType, "image/")
}

// archiveResume stores the raw upload in object storage, best effort.
func (s *interviewService) archiveResume(candidateID, fileName, mimeType string, data []byte) {
	if s.uploader == nil {
		return
	}
	objectName := "resumes/" + candidateID + "/" + uuid.NewString() + "-" + fileName
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.uploader.Upload(ctx, objectName, mimeType, bytes.NewReader(data)); err != nil {
			s.log.WithError(err).WithField("object", objectName).Warn("resume archive upload failed")
		}
	}()
}

// ProvideField stores one profile field supplied in chat.
func (s *interviewService) ProvideField(ctx context.Context, candidateID string, field models.ProfileField, value string) (*models.Candidate, error) {
	const op = "InterviewService.ProvideField"

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "value is required", nil)
	}

	c, err := s.repo.Get(candidateID)
	if err != nil {
		return nil, err
	}
	if c.Session != nil && c.Session.Phase == models.PhaseFinalized {
		return nil, utils.E(utils.CodeConflict, op, "interview already finalized", nil)
	}

	if err := s.repo.AppendChat(candidateID, models.ChatMessage{
		Role: models.RoleUser,
		Text: value,
		Kind: models.KindAnswer,
	}); err != nil {
		return nil, err
	}

	var name, email, phone string
	switch field {
	case models.FieldName:
		name = value
	case models.FieldEmail:
		email = value
	case models.FieldPhone:
		if p, ok := resume.NormalizePhone(value); ok {
			phone = p
		} else {
			phone = value
		}
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown profile field", nil)
	}
	wasComplete := c.ProfileComplete()
	if err := s.repo.MergeProfile(candidateID, name, email, phone); err != nil {
		return nil, err
	}

	if err := s.afterProfileChange(ctx, candidateID, wasComplete); err != nil {
		return nil, err
	}
	return s.repo.Get(candidateID)
}

// afterProfileChange prompts for the next missing field, or announces the
// start and generates the first question once the profile just completed.
func (s *interviewService) afterProfileChange(ctx context.Context, candidateID string, wasComplete bool) error {
	c, err := s.repo.Get(candidateID)
	if err != nil {
		return err
	}

	if !c.ProfileComplete() {
		return s.promptNextMissingField(candidateID, c)
	}
	if !wasComplete {
		if err := s.appendAssistant(candidateID, allSetText, models.KindInfo); err != nil {
			return err
		}
	}
	s.ensureQuestion(ctx, candidateID)
	return nil
}

// promptNextMissingField asks for the first unfilled, not-yet-asked field in
// fixed order. Each field is asked at most once per session.
func (s *interviewService) promptNextMissingField(candidateID string, c *models.Candidate) error {
	for _, f := range models.ProfileFieldOrder {
		if c.FieldValue(f) != "" {
			continue
		}
		asked, err := s.repo.MarkFieldAsked(candidateID, f)
		if err != nil {
			return err
		}
		if !asked {
			continue
		}
		return s.appendAssistant(candidateID, missingFieldPrompts[f], models.KindInfo)
	}
	return nil
}

// ensureQuestion populates and starts the active question when the profile
// is complete and the slot is still empty. Collaborator failures degrade to
// the local generator inside the aggregator, so the interview always moves.
func (s *interviewService) ensureQuestion(ctx context.Context, candidateID string) {
	c, err := s.repo.Get(candidateID)
	if err != nil {
		s.log.WithError(err).Warn("ensure question: candidate vanished")
		return
	}
	sess := c.Session
	if sess == nil || !c.ProfileComplete() {
		return
	}
	switch sess.Phase {
	case models.PhaseFinalizing, models.PhaseFinalized, models.PhasePaused:
		return
	}
	q := sess.ActiveQuestion()
	if q == nil {
		return
	}

	if q.Text == "" {
		previous := make([]llm.PreviousQA, 0, sess.ActiveIndex)
		for _, pq := range sess.Questions[:sess.ActiveIndex] {
			previous = append(previous, llm.PreviousQA{
				Difficulty: pq.Difficulty,
				Question:   pq.Text,
				Score:      pq.Score,
			})
		}

		text, degraded := s.agg.NextQuestion(ctx, s.role, q.Difficulty, previous)
		if ctx.Err() != nil {
			// request went stale mid-flight; do not apply the result
			return
		}
		if degraded {
			s.log.WithField("candidate_id", candidateID).Info("question generated by local fallback")
		}

		if err := s.repo.SetQuestionText(candidateID, sess.ActiveIndex, text); err != nil {
			s.log.WithError(err).Warn("set question text on stale session")
			return
		}
		if err := s.appendAssistant(candidateID, text, models.KindQuestion); err != nil {
			s.log.WithError(err).Warn("append question chat")
		}
	}

	if err := s.repo.StartQuestionTimer(candidateID, sess.ActiveIndex); err != nil {
		s.log.WithError(err).Warn("start question timer")
	}
}

// SubmitAnswer handles both manual submissions and timer-driven auto
// submissions; the two are indistinguishable past this point. A question
// that already has an answer ignores the second submission.
func (s *interviewService) SubmitAnswer(ctx context.Context, candidateID, answer string) (*models.Candidate, error) {
	return s.submit(ctx, candidateID, answer, false)
}

func (s *interviewService) submit(ctx context.Context, candidateID, answer string, auto bool) (*models.Candidate, error) {
	const op = "InterviewService.SubmitAnswer"

	c, err := s.repo.Get(candidateID)
	if err != nil {
		return nil, err
	}
	sess := c.Session
	q := sess.ActiveQuestion()
	if sess == nil || q == nil || q.Text == "" {
		return nil, utils.E(utils.CodeConflict, op, "no active question to answer", nil)
	}
	if q.Answered() {
		return c, nil
	}

	content := strings.TrimSpace(answer)
	if auto && content == "" {
		content = interview.AutoSubmitText(sess)
	}
	if content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "answer is required", nil)
	}

	if !auto {
		if err := s.repo.AppendChat(candidateID, models.ChatMessage{
			Role: models.RoleUser,
			Text: content,
			Kind: models.KindAnswer,
		}); err != nil {
			return nil, err
		}
	}

	judgment, degraded := s.agg.Judge(ctx, s.role, q.Difficulty, q.Text, content)
	if degraded {
		s.log.WithField("candidate_id", candidateID).Info("answer judged by local fallback")
	}

	recorded, err := s.repo.RecordAnswer(candidateID, content, judgment.Score, judgment.Reasoning)
	if err != nil {
		return nil, err
	}
	if !recorded {
		// lost the race against a concurrent submission; first write stands
		return s.repo.Get(candidateID)
	}

	feedback := fmt.Sprintf("Score: %d/10\nReasoning: %s", judgment.Score, judgment.Reasoning)
	if err := s.appendAssistant(candidateID, feedback, models.KindFeedback); err != nil {
		return nil, err
	}

	finalizing, err := s.repo.AdvanceOrFinalize(candidateID)
	if err != nil {
		return nil, err
	}
	if finalizing {
		s.finalize(ctx, candidateID)
	} else {
		s.ensureQuestion(ctx, candidateID)
	}
	return s.repo.Get(candidateID)
}

// finalize asks the collaborator for the overall verdict and records it
// exactly once.
func (s *interviewService) finalize(ctx context.Context, candidateID string) {
	c, err := s.repo.Get(candidateID)
	if err != nil || c.Session == nil {
		return
	}

	results := make([]llm.QuestionResult, 0, len(c.Session.Questions))
	for _, q := range c.Session.Questions {
		r := llm.QuestionResult{Difficulty: q.Difficulty, Question: q.Text}
		if q.Answer != nil {
			r.Answer = *q.Answer
		}
		if q.Score != nil {
			r.Score = *q.Score
		}
		results = append(results, r)
	}

	report, degraded := s.agg.Finalize(ctx, llm.Profile{
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
	}, results)
	if degraded {
		s.log.WithField("candidate_id", candidateID).Info("final report produced by local fallback")
	}

	if err := s.repo.SetFinalSummary(candidateID, report.FinalScore, report.Summary); err != nil {
		s.log.WithError(err).Warn("set final summary on stale session")
		return
	}
	final := fmt.Sprintf("Interview complete. Final score: %d/100\nSummary: %s", report.FinalScore, report.Summary)
	if err := s.appendAssistant(candidateID, final, models.KindInfo); err != nil {
		s.log.WithError(err).Warn("append final chat")
	}
}

func (s *interviewService) SetDraft(_ context.Context, candidateID, draft string) error {
	return s.repo.SetDraft(candidateID, draft)
}

func (s *interviewService) Pause(_ context.Context, candidateID string) error {
	return s.repo.Pause(candidateID)
}

// Resume returns a paused or reloaded session to in-progress without
// resetting timer state, and regenerates the active question if its text
// was never populated.
func (s *interviewService) Resume(ctx context.Context, candidateID string) (*models.Candidate, error) {
	if err := s.repo.Resume(candidateID); err != nil {
		return nil, err
	}
	if err := s.repo.SetCurrent(candidateID); err != nil {
		return nil, err
	}
	c, err := s.repo.Get(candidateID)
	if err != nil {
		return nil, err
	}
	if c.ProfileComplete() {
		s.ensureQuestion(ctx, candidateID)
	} else if err := s.promptNextMissingField(candidateID, c); err != nil {
		return nil, err
	}
	return s.repo.Get(candidateID)
}

// Restart abandons the current candidate and allocates a fresh one.
func (s *interviewService) Restart(ctx context.Context) (*models.Candidate, error) {
	return s.StartCandidate(ctx)
}

// Tick is the cooperative timer callback. It only inspects state and spawns
// the auto-submission asynchronously; it never blocks on network I/O.
// Repeated ticks past expiry cannot double-submit: the in-flight set stops
// fan-out here and the write-once answer guard settles any remaining race.
func (s *interviewService) Tick(now time.Time) {
	for _, c := range s.repo.List() {
		if c.Completed || c.Session == nil {
			continue
		}
		if !interview.ShouldAutoSubmit(c.Session, now) {
			continue
		}

		s.autoMu.Lock()
		if s.autoActive[c.ID] {
			s.autoMu.Unlock()
			continue
		}
		s.autoActive[c.ID] = true
		s.autoMu.Unlock()

		go func(candidateID string) {
			defer func() {
				s.autoMu.Lock()
				delete(s.autoActive, candidateID)
				s.autoMu.Unlock()
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := s.submit(ctx, candidateID, "", true); err != nil {
				s.log.WithError(err).WithField("candidate_id", candidateID).Warn("auto submit failed")
			}
		}(c.ID)
	}
}

func (s *interviewService) appendAssistant(candidateID, text string, kind models.MessageKind) error {
	return s.repo.AppendChat(candidateID, models.ChatMessage{
		Role: models.RoleAssistant,
		Text: text,
		Kind: kind,
	})
}
