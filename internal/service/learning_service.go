package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/learning"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/model"
)

var ErrLearningSessionNotFound = errors.New("learning session not found")

// StudentDirectory resolves the learning profile of a student user.
type StudentDirectory interface {
	Student(ctx context.Context, userID int) (*model.Student, error)
}

// CourseCatalog resolves a course by id.
type CourseCatalog interface {
	GetByID(ctx context.Context, id int) (*model.Course, error)
}

// LearningService hosts the adaptive question loop of every active learner.
// Each session is guarded by its own mutex, which is released while the
// Question Service is being called.
type LearningService struct {
	students  StudentDirectory
	courses   CourseCatalog
	questions learning.QuestionService
	events    LearningEvents
	now       func() time.Time
	log       zerolog.Logger

	mu        sync.RWMutex
	sessions  map[string]*learnerSession
	byStudent map[int]string
}

type learnerSession struct {
	mu         sync.Mutex
	id         string
	studentID  int
	teacherID  int
	course     model.Course
	startedAt  time.Time
	lastActive time.Time
	core       *learning.Session
}

// ActionResult is the outcome of a learner action. Accepted is false when the
// session ignored the action in its current phase.
type ActionResult struct {
	State    model.LearningSessionState `json:"state"`
	Accepted bool                       `json:"accepted"`
}

// NewLearningService creates a new LearningService.
func NewLearningService(
	students StudentDirectory,
	courses CourseCatalog,
	questions learning.QuestionService,
	events LearningEvents,
	log zerolog.Logger,
) *LearningService {
	return &LearningService{
		students:  students,
		courses:   courses,
		questions: questions,
		events:    events,
		now:       time.Now,
		log:       logger.Component(log, "learning_service"),
		sessions:  make(map[string]*learnerSession),
		byStudent: make(map[int]string),
	}
}

// Start opens a learning session for the student in the given course and
// fetches the first question set. An earlier session of the same student is closed.
func (s *LearningService) Start(ctx context.Context, studentID, courseID int) (*model.LearningSessionState, error) {
	student, err := s.students.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var opts []learning.Option
	if student.TeacherID > 0 {
		opts = append(opts, learning.WithTeacherID(strconv.Itoa(student.TeacherID)))
	}
	now := s.now()
	ls := &learnerSession{
		id:         uuid.New().String(),
		studentID:  studentID,
		teacherID:  student.TeacherID,
		course:     *course,
		startedAt:  now,
		lastActive: now,
		core:       learning.NewSession(opts...),
	}

	tok, err := ls.core.RequestInitialSet(strconv.Itoa(studentID), strconv.Itoa(student.Grade), course.Key)
	if err != nil {
		return nil, err
	}

	if previous := s.register(ls); previous != nil {
		s.closeSession(ctx, previous, "replaced")
	}

	s.log.Info().
		Str("session_id", ls.id).
		Int("student_id", studentID).
		Str("course", course.Key).
		Msg("Learning session started")

	ls.mu.Lock()
	ev := s.event(ls, model.LearningEventStarted)
	ls.mu.Unlock()
	s.events.Publish(context.WithoutCancel(ctx), ls.teacherID, ev)

	state, err := s.resolve(ctx, ls, tok)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Get returns the current state of a student's session.
func (s *LearningService) Get(ctx context.Context, studentID int, sessionID string) (*model.LearningSessionState, error) {
	ls, err := s.lookup(studentID, sessionID)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	state := s.snapshot(ls)
	return &state, nil
}

// Current returns the id of the student's active session, if any.
func (s *LearningService) Current(studentID int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byStudent[studentID]
	return id, ok
}

// Select marks an option of the current question.
func (s *LearningService) Select(ctx context.Context, studentID int, sessionID string, option int) (*ActionResult, error) {
	ls, err := s.lookup(studentID, sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	accepted := ls.core.Select(option)
	res := s.touch(ls, accepted)
	var ev model.LearningEvent
	if accepted {
		ev = s.event(ls, model.LearningEventSelected)
	}
	ls.mu.Unlock()

	if accepted {
		s.events.Publish(context.WithoutCancel(ctx), ls.teacherID, ev)
	}
	return res, nil
}

// Submit answers the current question with option, or with the current
// selection when option is nil.
func (s *LearningService) Submit(ctx context.Context, studentID int, sessionID string, option *int) (*ActionResult, error) {
	ls, err := s.lookup(studentID, sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	var (
		rec      learning.AnswerRecord
		accepted bool
	)
	if option != nil {
		rec, accepted = ls.core.SubmitAnswer(*option)
	} else {
		rec, accepted = ls.core.SubmitSelection()
	}
	res := s.touch(ls, accepted)
	var ev model.LearningEvent
	if accepted {
		ev = s.event(ls, model.LearningEventAnswered)
	}
	ls.mu.Unlock()

	if accepted {
		bg := context.WithoutCancel(ctx)
		s.events.QueueAnswer(bg, model.LearningAnswerLog{
			SessionID:  ls.id,
			StudentID:  ls.studentID,
			CourseID:   ls.course.ID,
			QuestionID: rec.QuestionID,
			Difficulty: rec.Difficulty,
			Correct:    rec.Correct,
			AnsweredAt: ev.At,
		})
		s.events.Publish(bg, ls.teacherID, ev)
	}
	return res, nil
}

// Advance moves to the next question, fetching a new set once the current one
// is exhausted.
func (s *LearningService) Advance(ctx context.Context, studentID int, sessionID string) (*ActionResult, error) {
	ls, err := s.lookup(studentID, sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	accepted := ls.core.Phase() == learning.PhaseRevealed
	tok, refetch := ls.core.Advance()
	res := s.touch(ls, accepted)
	var ev model.LearningEvent
	if accepted {
		ev = s.event(ls, model.LearningEventAdvanced)
	}
	ls.mu.Unlock()

	if !accepted {
		return res, nil
	}
	s.events.Publish(context.WithoutCancel(ctx), ls.teacherID, ev)
	if !refetch {
		return res, nil
	}

	state, err := s.resolve(ctx, ls, tok)
	if err != nil {
		return nil, err
	}
	return &ActionResult{State: *state, Accepted: true}, nil
}

// Retry re-issues the request that failed.
func (s *LearningService) Retry(ctx context.Context, studentID int, sessionID string) (*model.LearningSessionState, error) {
	ls, err := s.lookup(studentID, sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	tok, err := ls.core.Retry()
	ls.lastActive = s.now()
	ls.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("session_id", ls.id).Int("answers", len(tok.Request.Answers)).Msg("Retrying question fetch")
	return s.resolve(ctx, ls, tok)
}

// Abandon closes the session. A fetch still in flight is discarded.
func (s *LearningService) Abandon(ctx context.Context, studentID int, sessionID string) error {
	ls, err := s.lookup(studentID, sessionID)
	if err != nil {
		return err
	}
	s.unregister(ls)
	s.closeSession(ctx, ls, "abandoned")
	return nil
}

// ReapIdle closes every session that has been inactive for longer than idle.
func (s *LearningService) ReapIdle(ctx context.Context, idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.RLock()
	candidates := make([]*learnerSession, 0, len(s.sessions))
	for _, ls := range s.sessions {
		candidates = append(candidates, ls)
	}
	s.mu.RUnlock()

	reaped := 0
	for _, ls := range candidates {
		ls.mu.Lock()
		stale := ls.lastActive.Before(cutoff)
		ls.mu.Unlock()
		if !stale {
			continue
		}
		s.unregister(ls)
		s.closeSession(ctx, ls, "idle")
		reaped++
	}
	return reaped
}

// CloseAll closes every session. Used on shutdown.
func (s *LearningService) CloseAll(ctx context.Context) {
	s.mu.Lock()
	all := make([]*learnerSession, 0, len(s.sessions))
	for _, ls := range s.sessions {
		all = append(all, ls)
	}
	s.sessions = make(map[string]*learnerSession)
	s.byStudent = make(map[int]string)
	s.mu.Unlock()

	for _, ls := range all {
		s.closeSession(ctx, ls, "shutdown")
	}
}

// Active returns the number of open sessions.
func (s *LearningService) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// resolve performs the fetch identified by tok without holding the session
// lock, then applies the outcome.
func (s *LearningService) resolve(ctx context.Context, ls *learnerSession, tok learning.FetchToken) (*model.LearningSessionState, error) {
	set, fetchErr := learning.Fetch(ctx, s.questions, tok)

	ls.mu.Lock()
	err := ls.core.Complete(tok, set, fetchErr)
	if err != nil {
		ls.mu.Unlock()
		s.log.Debug().Err(err).Str("session_id", ls.id).Msg("Discarded question set")
		return nil, err
	}
	ls.lastActive = s.now()

	evType := model.LearningEventLoaded
	score, hasScore := ls.core.Score()
	if fetchErr != nil || ls.core.Phase() == learning.PhaseError {
		evType = model.LearningEventFailed
		hasScore = false
	}
	ev := s.event(ls, evType)
	ls.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	if evType == model.LearningEventFailed {
		logEv := s.log.Warn()
		if f := ev.State.View.Failure; f != nil && f.Kind == learning.FailureTransport {
			logEv = s.log.Info()
		}
		logEv.Err(fetchErrOr(fetchErr, ev)).
			Str("session_id", ls.id).
			Int("student_id", ls.studentID).
			Msg("Question fetch failed")
	}
	if hasScore {
		s.events.QueueScore(bg, model.LearningScoreLog{
			SessionID:  ls.id,
			StudentID:  ls.studentID,
			CourseID:   ls.course.ID,
			Score:      score,
			RecordedAt: ev.At,
		})
	}
	s.events.Publish(bg, ls.teacherID, ev)

	return &ev.State, nil
}

func fetchErrOr(err error, ev model.LearningEvent) error {
	if err != nil {
		return err
	}
	if f := ev.State.View.Failure; f != nil {
		return errors.New(f.Message)
	}
	return nil
}

func (s *LearningService) closeSession(ctx context.Context, ls *learnerSession, reason string) {
	ls.mu.Lock()
	ls.core.Close()
	ev := s.event(ls, model.LearningEventClosed)
	ls.mu.Unlock()

	s.log.Info().Str("session_id", ls.id).Str("reason", reason).Msg("Learning session closed")
	s.events.Publish(context.WithoutCancel(ctx), ls.teacherID, ev)
}

// register stores ls and returns the student's previous session, if any.
func (s *LearningService) register(ls *learnerSession) *learnerSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	var previous *learnerSession
	if oldID, ok := s.byStudent[ls.studentID]; ok {
		previous = s.sessions[oldID]
		delete(s.sessions, oldID)
	}
	s.sessions[ls.id] = ls
	s.byStudent[ls.studentID] = ls.id
	return previous
}

func (s *LearningService) unregister(ls *learnerSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, ls.id)
	if s.byStudent[ls.studentID] == ls.id {
		delete(s.byStudent, ls.studentID)
	}
}

func (s *LearningService) lookup(studentID int, sessionID string) (*learnerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls, ok := s.sessions[sessionID]
	if !ok || ls.studentID != studentID {
		return nil, ErrLearningSessionNotFound
	}
	return ls, nil
}

// touch must be called with ls.mu held.
func (s *LearningService) touch(ls *learnerSession, accepted bool) *ActionResult {
	ls.lastActive = s.now()
	return &ActionResult{State: s.snapshot(ls), Accepted: accepted}
}

// snapshot must be called with ls.mu held.
func (s *LearningService) snapshot(ls *learnerSession) model.LearningSessionState {
	return model.LearningSessionState{
		SessionID: ls.id,
		CourseID:  ls.course.ID,
		CourseKey: ls.course.Key,
		StartedAt: ls.startedAt,
		View:      ls.core.View(),
	}
}

// event must be called with ls.mu held.
func (s *LearningService) event(ls *learnerSession, evType string) model.LearningEvent {
	return model.LearningEvent{
		Type:      evType,
		StudentID: ls.studentID,
		State:     s.snapshot(ls),
		At:        s.now(),
	}
}
