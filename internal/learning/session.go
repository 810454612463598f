package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Phase is the state of a learning session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseLoading    Phase = "loading"
	PhasePresenting Phase = "presenting"
	PhaseRevealed   Phase = "revealed"
	PhaseError      Phase = "error"
	PhaseNoContent  Phase = "no_content"
	PhaseClosed     Phase = "closed"
)

const noSelection = -1

// FetchToken identifies one outstanding request to the Question Service.
// The caller performs the request and hands the outcome back to Complete.
type FetchToken struct {
	epoch   uint64
	Request NextSetRequest
}

// Valid reports whether the token refers to an issued fetch.
func (t FetchToken) Valid() bool { return t.epoch != 0 }

// Failure is the last fetch failure recorded by the session.
type Failure struct {
	Kind FailureKind
	Err  error
}

// Session is the client side of the adaptive question loop for one learner and
// one course. It is not safe for concurrent use; callers serialize access.
type Session struct {
	learner   Learner
	phase     Phase
	questions []Question
	position  int
	selected  int
	batch     []AnswerRecord
	score     float64
	hasScore  bool
	pending   *NextSetRequest
	initial   bool
	epoch     uint64
	failure   *Failure
}

// Option configures a Session.
type Option func(*Session)

// WithTeacherID attaches the learner's teacher so the service can track who to notify.
func WithTeacherID(id string) Option {
	return func(s *Session) { s.learner.TeacherID = id }
}

// NewSession returns an idle session waiting for RequestInitialSet.
func NewSession(opts ...Option) *Session {
	s := &Session{phase: PhaseIdle, selected: noSelection}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// Learner returns the learner the session was started for.
func (s *Session) Learner() Learner { return s.learner }

// Score returns the latest score received from the Question Service.
func (s *Session) Score() (float64, bool) { return s.score, s.hasScore }

// Failure returns the failure that put the session into PhaseError.
func (s *Session) Failure() *Failure { return s.failure }

// RequestInitialSet starts the session with an empty answer batch. After a
// failed initial fetch it may be called again with the same arguments.
func (s *Session) RequestInitialSet(learnerID, grade, subject string) (FetchToken, error) {
	learner := Learner{
		ID:        strings.TrimSpace(learnerID),
		TeacherID: s.learner.TeacherID,
		Grade:     strings.TrimSpace(grade),
		Subject:   strings.ToLower(strings.TrimSpace(subject)),
	}
	if learner.ID == "" || learner.Grade == "" || learner.Subject == "" {
		return FetchToken{}, fmt.Errorf("%w: learner id, grade and subject are required", ErrInvalidInput)
	}

	switch s.phase {
	case PhaseIdle:
	case PhaseError:
		if !s.initial || s.learner != learner {
			return FetchToken{}, ErrAlreadyStarted
		}
	case PhaseLoading:
		return FetchToken{}, ErrFetchInFlight
	case PhaseClosed:
		return FetchToken{}, ErrSessionClosed
	default:
		return FetchToken{}, ErrAlreadyStarted
	}

	s.learner = learner
	s.initial = true
	return s.beginFetch(s.request(nil)), nil
}

// Select marks an option as the learner's current choice. Only allowed while a
// question is presented and before the answer is submitted.
func (s *Session) Select(option int) bool {
	if s.phase != PhasePresenting || !s.validOption(option) {
		return false
	}
	s.selected = option
	return true
}

// SubmitAnswer records the learner's answer to the current question and reveals
// the result. Calls outside PhasePresenting or with an out-of-range option are
// ignored, which makes a repeated submit before Advance a no-op.
func (s *Session) SubmitAnswer(option int) (AnswerRecord, bool) {
	if s.phase != PhasePresenting || !s.validOption(option) {
		return AnswerRecord{}, false
	}
	q := s.questions[s.position]
	rec := AnswerRecord{
		QuestionID: q.ID,
		Difficulty: q.Difficulty,
		Correct:    option == q.CorrectOption,
	}
	s.selected = option
	s.batch = append(s.batch, rec)
	s.phase = PhaseRevealed
	return rec, true
}

// SubmitSelection submits the currently selected option, if any.
func (s *Session) SubmitSelection() (AnswerRecord, bool) {
	if s.selected == noSelection {
		return AnswerRecord{}, false
	}
	return s.SubmitAnswer(s.selected)
}

// Advance moves past a revealed question. When the set is exhausted the
// session enters PhaseLoading and the returned token carries the whole answer
// batch; refetch is false otherwise, including when Advance is not allowed.
func (s *Session) Advance() (tok FetchToken, refetch bool) {
	if s.phase != PhaseRevealed {
		return FetchToken{}, false
	}
	if s.position+1 < len(s.questions) {
		s.position++
		s.selected = noSelection
		s.phase = PhasePresenting
		return FetchToken{}, false
	}

	req := s.request(s.batch)
	s.questions = nil
	s.batch = nil
	s.position = 0
	s.selected = noSelection
	s.initial = false
	return s.beginFetch(req), true
}

// Retry re-issues the request that failed, with exactly the same answers.
func (s *Session) Retry() (FetchToken, error) {
	switch s.phase {
	case PhaseError:
	case PhaseLoading:
		return FetchToken{}, ErrFetchInFlight
	case PhaseClosed:
		return FetchToken{}, ErrSessionClosed
	default:
		return FetchToken{}, ErrNotRetryable
	}
	if s.pending == nil {
		return FetchToken{}, ErrNotRetryable
	}
	return s.beginFetch(*s.pending), nil
}

// Complete applies the outcome of the fetch identified by tok. Outcomes for a
// superseded token or a closed session are rejected and change nothing.
func (s *Session) Complete(tok FetchToken, set QuestionSet, err error) error {
	if s.phase == PhaseClosed {
		return ErrSessionClosed
	}
	if !tok.Valid() || tok.epoch != s.epoch || s.phase != PhaseLoading {
		return ErrStaleFetch
	}

	if err != nil {
		s.fail(err)
		return nil
	}
	if verr := ValidateSet(set); verr != nil {
		s.fail(&ProtocolError{Reason: "invalid question set", Err: verr})
		return nil
	}

	s.score = set.Score
	s.hasScore = true
	s.pending = nil
	s.failure = nil
	s.position = 0
	s.selected = noSelection

	if len(set.Questions) == 0 {
		s.questions = nil
		s.batch = nil
		s.phase = PhaseNoContent
		return nil
	}

	s.questions = make([]Question, len(set.Questions))
	for i, q := range set.Questions {
		q.Options = append([]string(nil), q.Options...)
		// ValidateSet accepted the tag, so only its canonical form is kept.
		q.Difficulty, _ = ParseDifficulty(string(q.Difficulty))
		s.questions[i] = q
	}
	s.batch = make([]AnswerRecord, 0, len(s.questions))
	s.phase = PhasePresenting
	return nil
}

// Close ends the session. Any fetch still in flight will be discarded.
func (s *Session) Close() {
	s.phase = PhaseClosed
	s.epoch++
	s.questions = nil
	s.batch = nil
	s.pending = nil
	s.selected = noSelection
}

// Resolve performs the fetch for tok against svc and applies the result.
func (s *Session) Resolve(ctx context.Context, svc QuestionService, tok FetchToken) error {
	set, err := Fetch(ctx, svc, tok)
	return s.Complete(tok, set, err)
}

// Fetch runs the request carried by tok. Errors that are neither transport nor
// protocol failures are reported as transport failures.
func Fetch(ctx context.Context, svc QuestionService, tok FetchToken) (QuestionSet, error) {
	set, err := svc.NextSet(ctx, tok.Request.clone())
	if err == nil {
		return set, nil
	}
	var te *TransportError
	var pe *ProtocolError
	if !errors.As(err, &te) && !errors.As(err, &pe) {
		err = &TransportError{Err: err}
	}
	return QuestionSet{}, err
}

func (s *Session) beginFetch(req NextSetRequest) FetchToken {
	s.epoch++
	s.pending = &req
	s.failure = nil
	s.phase = PhaseLoading
	return FetchToken{epoch: s.epoch, Request: req.clone()}
}

func (s *Session) fail(err error) {
	s.failure = &Failure{Kind: Classify(err), Err: err}
	s.phase = PhaseError
}

func (s *Session) request(answers []AnswerRecord) NextSetRequest {
	req := NextSetRequest{
		LearnerID: s.learner.ID,
		TeacherID: s.learner.TeacherID,
		Grade:     s.learner.Grade,
		Subject:   s.learner.Subject,
		Answers:   make([]AnswerRecord, len(answers)),
	}
	copy(req.Answers, answers)
	return req
}

func (s *Session) validOption(option int) bool {
	if s.position < 0 || s.position >= len(s.questions) {
		return false
	}
	return option >= 0 && option < len(s.questions[s.position].Options)
}
