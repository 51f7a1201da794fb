package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Devansh978/AI-Interview-Assistant/internal/interview"
	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
	"github.com/Devansh978/AI-Interview-Assistant/internal/providers/llm"
	"github.com/Devansh978/AI-Interview-Assistant/internal/utils"
)

const fullResume = "John Smith\nSoftware Engineer\njohn@example.com\n+91 98765 43210\n"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// scriptedLLM is a Collaborator that numbers its questions and returns a
// fixed judgment and report, recording every judge call.
type scriptedLLM struct {
	mu         sync.Mutex
	questionN  int
	judged     []string
	err        error
	judgeScore int
	judgeGate  chan struct{} // when set, Judge blocks until closed
}

func (f *scriptedLLM) NextQuestion(_ context.Context, _ string, d models.Difficulty, _ []llm.PreviousQA) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.questionN++
	return fmt.Sprintf("Scripted %s question #%d?", d, f.questionN), nil
}

func (f *scriptedLLM) Judge(_ context.Context, _ string, _ models.Difficulty, _, answer string) (llm.Judgment, error) {
	if f.judgeGate != nil {
		<-f.judgeGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return llm.Judgment{}, f.err
	}
	f.judged = append(f.judged, answer)
	return llm.Judgment{Score: f.judgeScore, Reasoning: "scripted reasoning"}, nil
}

func (f *scriptedLLM) Finalize(_ context.Context, _ llm.Profile, _ []llm.QuestionResult) (llm.FinalReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return llm.FinalReport{}, f.err
	}
	return llm.FinalReport{FinalScore: 85, Summary: "Strong fundamentals."}, nil
}

func (f *scriptedLLM) judgedAnswers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.judged...)
}

// passthroughExtractor treats any upload as UTF-8 text.
type passthroughExtractor struct{}

func (passthroughExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	return string(data), nil
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, []byte, string) (string, error) {
	return "", errors.New("unreadable document")
}

type recordingUploader struct {
	mu      sync.Mutex
	objects []string
}

func (u *recordingUploader) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects = append(u.objects, objectName)
	return objectName, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type fixture struct {
	svc   InterviewService
	repo  *interview.Repository
	llm   *scriptedLLM
	clock *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	repo := interview.NewRepositoryWithClock(clock.now)
	coll := &scriptedLLM{judgeScore: 8}
	svc := NewInterviewService(repo, interview.NewAggregator(coll, quietLogger()), passthroughExtractor{}, nil, "", quietLogger())
	return &fixture{svc: svc, repo: repo, llm: coll, clock: clock}
}

func lastChat(t *testing.T, c *models.Candidate) models.ChatMessage {
	t.Helper()
	if c.Session == nil || len(c.Session.Chat) == 0 {
		t.Fatal("no chat messages")
	}
	return c.Session.Chat[len(c.Session.Chat)-1]
}

func TestStartCandidateSeedsGreeting(t *testing.T) {
	fx := newFixture(t)

	c, err := fx.svc.StartCandidate(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if c.Session == nil || c.Session.Phase != models.PhaseCollectingProfile {
		t.Fatalf("session = %+v, want collecting-profile", c.Session)
	}
	if got := lastChat(t, c); got.Role != models.RoleAssistant || !strings.Contains(got.Text, "upload your resume") {
		t.Errorf("greeting = %+v", got)
	}

	cur, err := fx.svc.Current(context.Background())
	if err != nil || cur.ID != c.ID {
		t.Errorf("Current = %v, %v; want the new candidate", cur, err)
	}
}

func TestCurrentWithoutCandidate(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.svc.Current(context.Background()); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestUploadCompleteResumeStartsInterview(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, _ := fx.svc.StartCandidate(ctx)
	c, err := fx.svc.UploadResume(ctx, c.ID, "resume.txt", []byte(fullResume), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if c.Name != "John Smith" || c.Email != "john@example.com" || c.Phone != "+919876543210" {
		t.Errorf("profile = %q %q %q", c.Name, c.Email, c.Phone)
	}
	if c.ResumeFileName != "resume.txt" {
		t.Errorf("resume file name = %q", c.ResumeFileName)
	}
	if c.Session.Phase != models.PhaseInProgress {
		t.Fatalf("phase = %s, want in-progress", c.Session.Phase)
	}
	q := c.Session.ActiveQuestion()
	if q == nil || q.Text == "" || q.StartedAt == nil || q.EndAt == nil {
		t.Fatalf("first question not started: %+v", q)
	}
	if got := lastChat(t, c); got.Kind != models.KindQuestion || got.Text != q.Text {
		t.Errorf("question chat = %+v", got)
	}
	// the "all set" announcement precedes the question
	announced := false
	for _, m := range c.Session.Chat {
		if strings.Contains(m.Text, "all set") {
			announced = true
		}
	}
	if !announced {
		t.Error("missing start announcement")
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, _ := fx.svc.StartCandidate(ctx)
	_, err := fx.svc.UploadResume(ctx, c.ID, "resume.exe", []byte("MZ"), "application/octet-stream")
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("err = %v, want INVALID_ARGUMENT", err)
	}

	got, _ := fx.svc.Get(ctx, c.ID)
	if got.ResumeFileName != "" {
		t.Error("rejected upload must not mutate state")
	}
}

func TestUploadUnreadableResumeStillPrompts(t *testing.T) {
	clock := newFakeClock()
	repo := interview.NewRepositoryWithClock(clock.now)
	coll := &scriptedLLM{judgeScore: 5}
	svc := NewInterviewService(repo, interview.NewAggregator(coll, quietLogger()), failingExtractor{}, nil, "", quietLogger())
	ctx := context.Background()

	c, _ := svc.StartCandidate(ctx)
	c, err := svc.UploadResume(ctx, c.ID, "resume.pdf", []byte("%PDF-garbage"), "application/pdf")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if c.Session.Phase != models.PhaseCollectingProfile {
		t.Errorf("phase = %s, want collecting-profile", c.Session.Phase)
	}
	if got := lastChat(t, c); !strings.Contains(got.Text, "full name") {
		t.Errorf("expected name prompt first, got %q", got.Text)
	}
}

func TestMissingFieldCollectionInOrder(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, _ := fx.svc.StartCandidate(ctx)
	// resume with email only
	c, err := fx.svc.UploadResume(ctx, c.ID, "resume.txt", []byte("contact: jane@example.com\n"), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got := lastChat(t, c); !strings.Contains(got.Text, "full name") {
		t.Fatalf("first prompt = %q, want name", got.Text)
	}

	c, err = fx.svc.ProvideField(ctx, c.ID, models.FieldName, "Jane Roe")
	if err != nil {
		t.Fatalf("provide name: %v", err)
	}
	if got := lastChat(t, c); !strings.Contains(got.Text, "phone") {
		t.Fatalf("second prompt = %q, want phone", got.Text)
	}

	c, err = fx.svc.ProvideField(ctx, c.ID, models.FieldPhone, "98765 43210")
	if err != nil {
		t.Fatalf("provide phone: %v", err)
	}
	if c.Phone != "+919876543210" {
		t.Errorf("phone = %q, want normalized", c.Phone)
	}
	if c.Session.Phase != models.PhaseInProgress {
		t.Errorf("phase = %s, want in-progress after profile completes", c.Session.Phase)
	}
}

func TestProvideFieldValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, _ := fx.svc.StartCandidate(ctx)
	if _, err := fx.svc.ProvideField(ctx, c.ID, models.FieldName, "   "); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("blank value err = %v, want INVALID_ARGUMENT", err)
	}
	if _, err := fx.svc.ProvideField(ctx, c.ID, models.ProfileField("shoe_size"), "42"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("unknown field err = %v, want INVALID_ARGUMENT", err)
	}
}

func TestFullInterviewFlow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, _ := fx.svc.StartCandidate(ctx)
	c, err := fx.svc.UploadResume(ctx, c.ID, "resume.txt", []byte(fullResume), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	for i := 0; i < 6; i++ {
		if c.Session.ActiveIndex != i {
			t.Fatalf("round %d: active index = %d", i, c.Session.ActiveIndex)
		}
		c, err = fx.svc.SubmitAnswer(ctx, c.ID, fmt.Sprintf("my answer %d", i))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if c.Session.Phase != models.PhaseFinalized {
		t.Fatalf("phase = %s, want finalized", c.Session.Phase)
	}
	if c.Session.FinalScore == nil || *c.Session.FinalScore != 85 {
		t.Fatalf("final score = %v, want 85", c.Session.FinalScore)
	}
	if !c.Completed {
		t.Error("candidate should be completed")
	}
	for i, q := range c.Session.Questions {
		if !q.Answered() || *q.Score != 8 {
			t.Errorf("question %d not judged: %+v", i, q)
		}
	}
	if got := lastChat(t, c); !strings.Contains(got.Text, "Final score: 85/100") {
		t.Errorf("final chat = %q", got.Text)
	}
	// per-answer feedback lines made it into the transcript
	feedback := 0
	for _, m := range c.Session.Chat {
		if m.Kind == models.KindFeedback && strings.HasPrefix(m.Text, "Score: 8/10") {
			feedback++
		}
	}
	if feedback != 6 {
		t.Errorf("feedback messages = %d, want 6", feedback)
	}

	// submitting after the end is a conflict
	if _, err := fx.svc.SubmitAnswer(ctx, c.ID, "late"); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("late submit err = %v, want CONFLICT", err)
	}
	if _, err := fx.svc.ProvideField(ctx, c.ID, models.FieldName, "New Name"); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("field after finalize err = %v, want CONFLICT", err)
	}
}

func TestSubmitBeforeQuestionExists(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, _ := fx.svc.StartCandidate(ctx)
	if _, err := fx.svc.SubmitAnswer(ctx, c.ID, "eager"); !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("err = %v, want CONFLICT", err)
	}
}

func TestCollaboratorFailureDegradesToFallback(t *testing.T) {
	clock := newFakeClock()
	repo := interview.NewRepositoryWithClock(clock.now)
	coll := &scriptedLLM{err: errors.New("model unavailable")}
	svc := NewInterviewService(repo, interview.NewAggregator(coll, quietLogger()), passthroughExtractor{}, nil, "", quietLogger())
	ctx := context.Background()

	c, _ := svc.StartCandidate(ctx)
	c, err := svc.UploadResume(ctx, c.ID, "resume.txt", []byte(fullResume), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	q := c.Session.ActiveQuestion()
	if q == nil || q.Text == "" {
		t.Fatal("fallback did not produce a question")
	}

	c, err = svc.SubmitAnswer(ctx, c.ID, "react state and props everywhere")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	first := c.Session.Questions[0]
	if !first.Answered() || first.Score == nil {
		t.Fatal("fallback did not judge the answer")
	}
	if first.Reasoning == "" || !strings.Contains(first.Reasoning, "Heuristic") {
		t.Errorf("reasoning = %q, want heuristic note", first.Reasoning)
	}
}

func TestAutoSubmitExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	repo := interview.NewRepositoryWithClock(clock.now)
	gate := make(chan struct{})
	coll := &scriptedLLM{judgeScore: 3, judgeGate: gate}
	svc := NewInterviewService(repo, interview.NewAggregator(coll, quietLogger()), passthroughExtractor{}, nil, "", quietLogger())
	ctx := context.Background()

	c, _ := svc.StartCandidate(ctx)
	c, err := svc.UploadResume(ctx, c.ID, "resume.txt", []byte(fullResume), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.SetDraft(ctx, c.ID, "half-typed thought"); err != nil {
		t.Fatalf("draft: %v", err)
	}

	// expire the 20s easy question, then tick repeatedly while judging is
	// still in flight
	clock.advance(21 * time.Second)
	for i := 0; i < 5; i++ {
		svc.Tick(clock.now())
	}
	close(gate)

	deadline := time.Now().Add(2 * time.Second)
	var got *models.Candidate
	for time.Now().Before(deadline) {
		got, _ = svc.Get(ctx, c.ID)
		if got.Session.Questions[0].Answered() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	first := got.Session.Questions[0]
	if !first.Answered() {
		t.Fatal("auto submit never landed")
	}
	if *first.Answer != "half-typed thought" {
		t.Errorf("auto answer = %q, want the buffered draft", *first.Answer)
	}
	if judged := coll.judgedAnswers(); len(judged) != 1 {
		t.Errorf("judge calls = %d, want exactly 1", len(judged))
	}
	if got.Session.ActiveIndex != 1 {
		t.Errorf("active index = %d, want advanced to 1", got.Session.ActiveIndex)
	}
}

func TestAutoSubmitEmptyDraftUsesSentinel(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, _ := fx.svc.StartCandidate(ctx)
	c, err := fx.svc.UploadResume(ctx, c.ID, "resume.txt", []byte(fullResume), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	fx.clock.advance(21 * time.Second)
	fx.svc.Tick(fx.clock.now())

	deadline := time.Now().Add(2 * time.Second)
	var got *models.Candidate
	for time.Now().Before(deadline) {
		got, _ = fx.svc.Get(ctx, c.ID)
		if got.Session.Questions[0].Answered() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !got.Session.Questions[0].Answered() {
		t.Fatal("auto submit never landed")
	}
	if *got.Session.Questions[0].Answer != interview.NoAnswerSentinel {
		t.Errorf("answer = %q, want sentinel", *got.Session.Questions[0].Answer)
	}
}

func TestPauseFreezesCountdownAndTicks(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, _ := fx.svc.StartCandidate(ctx)
	c, err := fx.svc.UploadResume(ctx, c.ID, "resume.txt", []byte(fullResume), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	fx.clock.advance(5 * time.Second)
	if err := fx.svc.Pause(ctx, c.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// expire well past the original window; paused sessions never auto-submit
	fx.clock.advance(time.Hour)
	fx.svc.Tick(fx.clock.now())
	time.Sleep(50 * time.Millisecond)

	got, _ := fx.svc.Get(ctx, c.ID)
	if got.Session.Questions[0].Answered() {
		t.Fatal("paused session auto-submitted")
	}

	got, err = fx.svc.Resume(ctx, c.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	left, started := interview.RemainingSec(got.Session.ActiveQuestion(), fx.clock.now())
	if !started || left != 15 {
		t.Errorf("remaining after resume = %d, want 15", left)
	}
}

func TestRestartAbandonsCurrentCandidate(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first, _ := fx.svc.StartCandidate(ctx)
	fresh, err := fx.svc.Restart(ctx)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if fresh.ID == first.ID {
		t.Fatal("restart must allocate a new candidate")
	}
	cur, err := fx.svc.Current(ctx)
	if err != nil || cur.ID != fresh.ID {
		t.Errorf("current = %v, %v; want the fresh candidate", cur, err)
	}
	// the abandoned candidate is still readable for the dashboard
	if _, err := fx.svc.Get(ctx, first.ID); err != nil {
		t.Errorf("abandoned candidate lost: %v", err)
	}
}

func TestListOrdersFinalizedByScoreThenNewest(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	finish := func(score int) string {
		c, _ := fx.svc.StartCandidate(ctx)
		if _, err := fx.svc.UploadResume(ctx, c.ID, "r.txt", []byte(fullResume), "text/plain"); err != nil {
			t.Fatalf("upload: %v", err)
		}
		// bypass the scripted 85 by writing the summary directly
		for i := 0; i < 5; i++ {
			if _, err := fx.repo.AdvanceOrFinalize(c.ID); err != nil {
				t.Fatalf("advance: %v", err)
			}
		}
		if _, err := fx.repo.AdvanceOrFinalize(c.ID); err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if err := fx.repo.SetFinalSummary(c.ID, score, "done"); err != nil {
			t.Fatalf("set final: %v", err)
		}
		return c.ID
	}

	low := finish(40)
	high := finish(90)
	pending, _ := fx.svc.StartCandidate(ctx)

	out, err := fx.svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[0].ID != high || out[1].ID != low || out[2].ID != pending.ID {
		t.Errorf("order = %s %s %s, want high, low, pending", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestUploadArchivesToObjectStorage(t *testing.T) {
	clock := newFakeClock()
	repo := interview.NewRepositoryWithClock(clock.now)
	up := &recordingUploader{}
	coll := &scriptedLLM{judgeScore: 5}
	svc := NewInterviewService(repo, interview.NewAggregator(coll, quietLogger()), passthroughExtractor{}, up, "", quietLogger())
	ctx := context.Background()

	c, _ := svc.StartCandidate(ctx)
	if _, err := svc.UploadResume(ctx, c.ID, "resume.txt", []byte(fullResume), "text/plain"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		up.mu.Lock()
		n := len(up.objects)
		up.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if len(up.objects) != 1 {
		t.Fatalf("archived objects = %d, want 1", len(up.objects))
	}
	if !strings.HasPrefix(up.objects[0], "resumes/"+c.ID+"/") || !strings.HasSuffix(up.objects[0], "-resume.txt") {
		t.Errorf("object key = %q", up.objects[0])
	}
}
