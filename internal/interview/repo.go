package interview

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
	"github.com/Devansh978/AI-Interview-Assistant/internal/utils"
)

// Repository holds every candidate and the current-candidate pointer, and is
// the single mutation surface for session state. Each operation locks around
// its whole read-modify-write so no partial update is ever observable.
//
// Mutations addressed to a missing candidate or session return an explicit
// NOT_FOUND error rather than silently no-opping; the orchestration layer
// decides whether to surface or swallow it.
type Repository struct {
	mu         sync.Mutex
	candidates map[string]*models.Candidate
	currentID  string
	now        func() time.Time
	onChange   func()
}

func NewRepository() *Repository {
	return NewRepositoryWithClock(time.Now)
}

// NewRepositoryWithClock injects the time source so timer semantics are
// testable without a real clock.
func NewRepositoryWithClock(now func() time.Time) *Repository {
	return &Repository{
		candidates: make(map[string]*models.Candidate),
		now:        now,
	}
}

// SetOnChange registers a callback fired after every successful mutation.
// The persistence bridge uses it to arm its debounced flush.
func (r *Repository) SetOnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Repository) notify() {
	if r.onChange != nil {
		r.onChange()
	}
}

// CreateCandidate allocates a fresh candidate and makes it current.
func (r *Repository) CreateCandidate() *models.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &models.Candidate{
		ID:        uuid.NewString(),
		CreatedAt: r.now().UTC(),
	}
	r.candidates[c.ID] = c
	r.currentID = c.ID
	r.notify()
	return cloneCandidate(c)
}

func (r *Repository) SetCurrent(candidateID string) error {
	const op = "Repository.SetCurrent"
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.candidates[candidateID]; !ok {
		return utils.E(utils.CodeNotFound, op, "candidate not found", nil)
	}
	r.currentID = candidateID
	r.notify()
	return nil
}

// Current returns a copy of the current candidate, if one exists.
func (r *Repository) Current() (*models.Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[r.currentID]
	if !ok {
		return nil, false
	}
	return cloneCandidate(c), true
}

func (r *Repository) Get(candidateID string) (*models.Candidate, error) {
	const op = "Repository.Get"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "candidate not found", nil)
	}
	return cloneCandidate(c), nil
}

// List returns copies of all candidates in no particular order.
func (r *Repository) List() []*models.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Candidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		out = append(out, cloneCandidate(c))
	}
	return out
}

func (r *Repository) SetResumeFileName(candidateID, fileName string) error {
	const op = "Repository.SetResumeFileName"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok {
		return utils.E(utils.CodeNotFound, op, "candidate not found", nil)
	}
	c.ResumeFileName = fileName
	r.notify()
	return nil
}

// MergeProfile fills in profile fields, never overwriting a known value with
// an empty one, and ensures the candidate has a session once collection has
// begun.
func (r *Repository) MergeProfile(candidateID, name, email, phone string) error {
	const op = "Repository.MergeProfile"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok {
		return utils.E(utils.CodeNotFound, op, "candidate not found", nil)
	}
	if name != "" {
		c.Name = name
	}
	if email != "" {
		c.Email = email
	}
	if phone != "" {
		c.Phone = phone
	}
	ensureSession(c)
	r.notify()
	return nil
}

// AppendChat adds a message to the session transcript, assigning an id and
// timestamp when the caller left them zero.
func (r *Repository) AppendChat(candidateID string, msg models.ChatMessage) error {
	const op = "Repository.AppendChat"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok {
		return utils.E(utils.CodeNotFound, op, "candidate not found", nil)
	}
	ensureSession(c)
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = r.now().UTC()
	}
	c.Session.Chat = append(c.Session.Chat, msg)
	r.notify()
	return nil
}

// MarkFieldAsked records that a missing profile field has been prompted for.
// Returns true the first time; asking again is a no-op.
func (r *Repository) MarkFieldAsked(candidateID string, field models.ProfileField) (bool, error) {
	const op = "Repository.MarkFieldAsked"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok || c.Session == nil {
		return false, utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	if c.Session.MissingFieldsAsked == nil {
		c.Session.MissingFieldsAsked = make(map[models.ProfileField]bool, 3)
	}
	if c.Session.MissingFieldsAsked[field] {
		return false, nil
	}
	c.Session.MissingFieldsAsked[field] = true
	r.notify()
	return true, nil
}

func (r *Repository) SetQuestionText(candidateID string, index int, text string) error {
	const op = "Repository.SetQuestionText"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok || c.Session == nil {
		return utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	if index < 0 || index >= len(c.Session.Questions) {
		return utils.E(utils.CodeNotFound, op, "question index out of range", nil)
	}
	c.Session.Questions[index].Text = text
	r.notify()
	return nil
}

// StartQuestionTimer stamps the question's absolute start/end times and
// forces the phase to in-progress. Starting an already started question is a
// no-op so the window can only ever grow, never shrink.
func (r *Repository) StartQuestionTimer(candidateID string, index int) error {
	const op = "Repository.StartQuestionTimer"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok || c.Session == nil {
		return utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	if index < 0 || index >= len(c.Session.Questions) {
		return utils.E(utils.CodeNotFound, op, "question index out of range", nil)
	}
	q := &c.Session.Questions[index]
	if q.StartedAt == nil {
		now := r.now().UTC()
		end := now.Add(time.Duration(q.DurationSec) * time.Second)
		q.StartedAt = &now
		q.EndAt = &end
	}
	c.Session.Phase = models.PhaseInProgress
	c.Session.PausedRemainingMS = 0
	r.notify()
	return nil
}

// SetDraft buffers the partial answer for the active question.
func (r *Repository) SetDraft(candidateID, draft string) error {
	const op = "Repository.SetDraft"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok || c.Session == nil {
		return utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	c.Session.Draft = draft
	r.notify()
	return nil
}

// RecordAnswer stores answer, score and reasoning on the active question.
// Answers are write-once: a second call reports recorded=false and leaves
// the first answer intact.
func (r *Repository) RecordAnswer(candidateID, answer string, score int, reasoning string) (bool, error) {
	const op = "Repository.RecordAnswer"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok || c.Session == nil {
		return false, utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	q := c.Session.ActiveQuestion()
	if q == nil {
		return false, utils.E(utils.CodeNotFound, op, "no active question", nil)
	}
	if q.Answered() {
		return false, nil
	}
	q.Answer = &answer
	q.Score = &score
	q.Reasoning = reasoning
	c.Session.Draft = ""
	r.notify()
	return true, nil
}

// AdvanceOrFinalize moves the cursor to the next question, or flips the
// session to finalizing when the last question has just been answered.
func (r *Repository) AdvanceOrFinalize(candidateID string) (finalizing bool, err error) {
	const op = "Repository.AdvanceOrFinalize"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok || c.Session == nil {
		return false, utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	s := c.Session
	if s.ActiveIndex < len(s.Questions)-1 {
		s.ActiveIndex++
		r.notify()
		return false, nil
	}
	s.Phase = models.PhaseFinalizing
	r.notify()
	return true, nil
}

// SetFinalSummary records the final score and summary exactly once and moves
// the session to its terminal state.
func (r *Repository) SetFinalSummary(candidateID string, finalScore int, summary string) error {
	const op = "Repository.SetFinalSummary"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok || c.Session == nil {
		return utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	if c.Session.FinalScore != nil {
		return nil
	}
	c.Session.FinalScore = &finalScore
	c.Session.Summary = summary
	c.Session.Phase = models.PhaseFinalized
	c.Completed = true
	r.notify()
	return nil
}

// Pause freezes an in-progress session, capturing the remaining time on the
// active question so a pause round-trip never costs the candidate time.
func (r *Repository) Pause(candidateID string) error {
	const op = "Repository.Pause"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok || c.Session == nil {
		return utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	s := c.Session
	if s.Phase != models.PhaseInProgress {
		return nil
	}
	if q := s.ActiveQuestion(); q != nil && q.EndAt != nil {
		remaining := q.EndAt.Sub(r.now())
		if remaining < 0 {
			remaining = 0
		}
		s.PausedRemainingMS = remaining.Milliseconds()
	}
	s.Phase = models.PhasePaused
	r.notify()
	return nil
}

// Resume returns a paused session to in-progress, re-deriving the active
// question's end time from the preserved remaining duration. end_at only
// ever moves forward since wall-clock time passed while paused.
func (r *Repository) Resume(candidateID string) error {
	const op = "Repository.Resume"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.candidates[candidateID]
	if !ok || c.Session == nil {
		return utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	s := c.Session
	if s.Phase == models.PhaseFinalized || s.Phase == models.PhaseFinalizing {
		return nil
	}
	if s.Phase == models.PhasePaused && s.PausedRemainingMS > 0 {
		if q := s.ActiveQuestion(); q != nil && q.EndAt != nil {
			end := r.now().UTC().Add(time.Duration(s.PausedRemainingMS) * time.Millisecond)
			if end.After(*q.EndAt) {
				q.EndAt = &end
			}
		}
		s.PausedRemainingMS = 0
	}
	if s.Phase == models.PhasePaused || s.Phase == models.PhaseInProgress {
		s.Phase = models.PhaseInProgress
	}
	r.notify()
	return nil
}

// Snapshot returns a deep copy of the whole candidate set for persistence.
func (r *Repository) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		CurrentCandidateID: r.currentID,
		Candidates:         make(map[string]*models.Candidate, len(r.candidates)),
	}
	for id, c := range r.candidates {
		out.Candidates[id] = cloneCandidate(c)
	}
	return out
}

// Restore replaces the in-memory state wholesale with a loaded snapshot.
func (r *Repository) Restore(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.candidates = make(map[string]*models.Candidate, len(s.Candidates))
	for id, c := range s.Candidates {
		if c == nil {
			continue
		}
		r.candidates[id] = cloneCandidate(c)
	}
	r.currentID = s.CurrentCandidateID
}

// Snapshot is the persisted form of the full interview state: every
// candidate plus the current-candidate pointer, written wholesale.
type Snapshot struct {
	CurrentCandidateID string                       `json:"current_candidate_id,omitempty"`
	Candidates         map[string]*models.Candidate `json:"candidates"`
}

func ensureSession(c *models.Candidate) {
	if c.Session != nil {
		return
	}
	c.Session = &models.Session{
		ID:        uuid.NewString(),
		Phase:     models.PhaseCollectingProfile,
		Questions: BuildQuestionPlan(),
		MissingFieldsAsked: map[models.ProfileField]bool{
			models.FieldName:  false,
			models.FieldEmail: false,
			models.FieldPhone: false,
		},
	}
}

func cloneCandidate(c *models.Candidate) *models.Candidate {
	cp := *c
	if c.Session != nil {
		s := *c.Session
		s.Questions = append([]models.Question(nil), c.Session.Questions...)
		for i := range s.Questions {
			s.Questions[i].Answer = clonePtr(s.Questions[i].Answer)
			s.Questions[i].Score = clonePtr(s.Questions[i].Score)
			s.Questions[i].StartedAt = clonePtr(s.Questions[i].StartedAt)
			s.Questions[i].EndAt = clonePtr(s.Questions[i].EndAt)
		}
		s.Chat = append([]models.ChatMessage(nil), c.Session.Chat...)
		s.FinalScore = clonePtr(s.FinalScore)
		s.MissingFieldsAsked = make(map[models.ProfileField]bool, len(c.Session.MissingFieldsAsked))
		for k, v := range c.Session.MissingFieldsAsked {
			s.MissingFieldsAsked[k] = v
		}
		cp.Session = &s
	}
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
