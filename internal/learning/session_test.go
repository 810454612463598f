package learning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	requests  []NextSetRequest
	responses []stubResponse
}

type stubResponse struct {
	set QuestionSet
	err error
}

func (s *stubService) NextSet(_ context.Context, req NextSetRequest) (QuestionSet, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return QuestionSet{}, errors.New("no response queued")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r.set, r.err
}

func (s *stubService) queue(set QuestionSet, err error) *stubService {
	s.responses = append(s.responses, stubResponse{set: set, err: err})
	return s
}

func question(id string, correct int, d Difficulty) Question {
	return Question{
		ID:            id,
		Prompt:        "prompt " + id,
		Options:       []string{"a", "b", "c"},
		CorrectOption: correct,
		Difficulty:    d,
	}
}

func twoQuestionSet(score float64) QuestionSet {
	return QuestionSet{
		Questions: []Question{question("q1", 1, DifficultyEasy), question("q2", 2, DifficultyHard)},
		Score:     score,
	}
}

func startSession(t *testing.T, svc *stubService) *Session {
	t.Helper()
	s := NewSession()
	tok, err := s.RequestInitialSet("u1", "8", "French")
	require.NoError(t, err)
	require.Equal(t, PhaseLoading, s.Phase())
	require.NoError(t, s.Resolve(context.Background(), svc, tok))
	return s
}

func TestRequestInitialSetPresentsFirstQuestion(t *testing.T) {
	svc := (&stubService{}).queue(twoQuestionSet(55), nil)
	s := startSession(t, svc)

	require.Len(t, svc.requests, 1)
	req := svc.requests[0]
	assert.Equal(t, "u1", req.LearnerID)
	assert.Equal(t, "8", req.Grade)
	assert.Equal(t, "french", req.Subject)
	assert.Empty(t, req.Answers)
	assert.NotNil(t, req.Answers, "initial batch is sent as an empty list")

	v := s.View()
	assert.Equal(t, PhasePresenting, v.Phase)
	assert.Equal(t, 0, v.Position)
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, 0, v.Answered)
	require.NotNil(t, v.Score)
	assert.Equal(t, 55.0, *v.Score)
	require.NotNil(t, v.Question)
	assert.Nil(t, v.Question.CorrectOption, "correct option hidden before reveal")
}

func TestRequestInitialSetRejectsMissingInput(t *testing.T) {
	cases := []struct {
		name, learner, grade, subject string
	}{
		{"no learner", "", "8", "french"},
		{"no grade", "u1", "", "french"},
		{"no subject", "u1", "8", "  "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession()
			_, err := s.RequestInitialSet(tc.learner, tc.grade, tc.subject)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, PhaseIdle, s.Phase())
		})
	}
}

func TestRequestInitialSetWhileLoading(t *testing.T) {
	s := NewSession()
	_, err := s.RequestInitialSet("u1", "8", "french")
	require.NoError(t, err)
	_, err = s.RequestInitialSet("u1", "8", "french")
	assert.ErrorIs(t, err, ErrFetchInFlight)
}

func TestSubmitAnswerCorrectness(t *testing.T) {
	set := QuestionSet{Questions: []Question{{
		ID: "q1", Prompt: "p", Options: []string{"a", "b", "c"}, CorrectOption: 1, Difficulty: DifficultyMedium,
	}}}

	t.Run("correct", func(t *testing.T) {
		s := startSession(t, (&stubService{}).queue(set, nil))
		require.True(t, s.Select(1))
		rec, ok := s.SubmitSelection()
		require.True(t, ok)
		assert.Equal(t, AnswerRecord{QuestionID: "q1", Difficulty: DifficultyMedium, Correct: true}, rec)
	})

	t.Run("incorrect", func(t *testing.T) {
		s := startSession(t, (&stubService{}).queue(set, nil))
		rec, ok := s.SubmitAnswer(0)
		require.True(t, ok)
		assert.False(t, rec.Correct)

		v := s.View()
		assert.Equal(t, PhaseRevealed, v.Phase)
		require.NotNil(t, v.Correct)
		assert.False(t, *v.Correct)
		require.NotNil(t, v.Question.CorrectOption)
		assert.Equal(t, 1, *v.Question.CorrectOption)
		require.NotNil(t, v.Selected)
		assert.Equal(t, 0, *v.Selected)
	})
}

func TestDoubleSubmitIsNoop(t *testing.T) {
	s := startSession(t, (&stubService{}).queue(twoQuestionSet(10), nil))

	_, ok := s.SubmitAnswer(1)
	require.True(t, ok)
	_, ok = s.SubmitAnswer(0)
	assert.False(t, ok)
	_, ok = s.SubmitSelection()
	assert.False(t, ok)
	assert.Equal(t, 1, s.View().Answered)
}

func TestSubmitIgnoresInvalidCalls(t *testing.T) {
	s := NewSession()
	_, ok := s.SubmitAnswer(0)
	assert.False(t, ok, "submit before any set is loaded")

	s = startSession(t, (&stubService{}).queue(twoQuestionSet(10), nil))
	_, ok = s.SubmitAnswer(7)
	assert.False(t, ok, "out of range option")
	_, ok = s.SubmitSelection()
	assert.False(t, ok, "no selection")
	assert.False(t, s.Select(-1))
	assert.Equal(t, PhasePresenting, s.Phase())
}

func TestSelectionLockedAfterReveal(t *testing.T) {
	s := startSession(t, (&stubService{}).queue(twoQuestionSet(10), nil))
	require.True(t, s.Select(0))
	require.True(t, s.Select(2))
	_, ok := s.SubmitSelection()
	require.True(t, ok)
	assert.False(t, s.Select(1))
	assert.Equal(t, 2, *s.View().Selected)
}

func TestExhaustingSetSendsBatchInOrder(t *testing.T) {
	svc := (&stubService{}).queue(twoQuestionSet(40), nil)
	s := startSession(t, svc)

	_, ok := s.SubmitAnswer(1)
	require.True(t, ok)
	tok, refetch := s.Advance()
	require.False(t, refetch)
	assert.False(t, tok.Valid())

	v := s.View()
	assert.Equal(t, PhasePresenting, v.Phase)
	assert.Equal(t, 1, v.Position)
	assert.Nil(t, v.Selected, "selection cleared on advance")

	_, ok = s.SubmitAnswer(0)
	require.True(t, ok)
	assert.True(t, s.View().RefetchOnAdvance)

	tok, refetch = s.Advance()
	require.True(t, refetch)
	require.True(t, tok.Valid())
	assert.Equal(t, PhaseLoading, s.Phase())
	assert.Equal(t, []AnswerRecord{
		{QuestionID: "q1", Difficulty: DifficultyEasy, Correct: true},
		{QuestionID: "q2", Difficulty: DifficultyHard, Correct: false},
	}, tok.Request.Answers)

	v = s.View()
	assert.Nil(t, v.Question)
	assert.Equal(t, 0, v.Answered, "outgoing batch is not retained")

	next := QuestionSet{Questions: []Question{question("q3", 0, DifficultyMedium)}, Score: 47}
	require.NoError(t, s.Resolve(context.Background(), svc.queue(next, nil), tok))

	v = s.View()
	assert.Equal(t, PhasePresenting, v.Phase)
	assert.Equal(t, "q3", v.Question.ID)
	assert.Equal(t, 47.0, *v.Score)
	assert.Equal(t, 0, v.Answered)
}

func TestAdvanceCountMatchesSetLength(t *testing.T) {
	set := QuestionSet{Questions: []Question{
		question("a", 0, DifficultyEasy),
		question("b", 0, DifficultyEasy),
		question("c", 0, DifficultyEasy),
		question("d", 0, DifficultyEasy),
	}}
	s := startSession(t, (&stubService{}).queue(set, nil))

	advances := 0
	for {
		_, ok := s.SubmitAnswer(0)
		require.True(t, ok)
		advances++
		tok, refetch := s.Advance()
		if refetch {
			assert.Len(t, tok.Request.Answers, len(set.Questions))
			break
		}
	}
	assert.Equal(t, len(set.Questions), advances)
}

func TestAdvanceOnlyFromRevealed(t *testing.T) {
	s := startSession(t, (&stubService{}).queue(twoQuestionSet(10), nil))
	_, refetch := s.Advance()
	assert.False(t, refetch)
	assert.Equal(t, PhasePresenting, s.Phase())
	assert.Equal(t, 0, s.View().Position)
}

func TestTransportFailureIsRetryable(t *testing.T) {
	svc := (&stubService{}).queue(QuestionSet{}, errors.New("connection refused"))
	s := NewSession()
	tok, err := s.RequestInitialSet("u1", "8", "french")
	require.NoError(t, err)
	require.NoError(t, s.Resolve(context.Background(), svc, tok))

	v := s.View()
	assert.Equal(t, PhaseError, v.Phase)
	require.NotNil(t, v.Failure)
	assert.Equal(t, FailureTransport, v.Failure.Kind)
	assert.True(t, v.Failure.Retryable)

	tok, err = s.RequestInitialSet("u1", "8", "french")
	require.NoError(t, err, "identical initial request is accepted again")
	require.NoError(t, s.Resolve(context.Background(), svc.queue(twoQuestionSet(55), nil), tok))
	assert.Equal(t, PhasePresenting, s.Phase())
	assert.Len(t, svc.requests, 2)
}

func TestInitialRetryWithDifferentArgumentsRejected(t *testing.T) {
	svc := (&stubService{}).queue(QuestionSet{}, &TransportError{Err: errors.New("timeout")})
	s := NewSession()
	tok, err := s.RequestInitialSet("u1", "8", "french")
	require.NoError(t, err)
	require.NoError(t, s.Resolve(context.Background(), svc, tok))

	_, err = s.RequestInitialSet("u1", "9", "french")
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestRetryResendsSameBatch(t *testing.T) {
	svc := (&stubService{}).queue(twoQuestionSet(60), nil)
	s := startSession(t, svc)
	for i := 0; i < 2; i++ {
		_, ok := s.SubmitAnswer(1)
		require.True(t, ok)
		tok, refetch := s.Advance()
		if !refetch {
			continue
		}
		svc.queue(QuestionSet{}, &TransportError{StatusCode: 503, Err: errors.New("unavailable")})
		require.NoError(t, s.Resolve(context.Background(), svc, tok))
	}
	require.Equal(t, PhaseError, s.Phase())

	tok, err := s.Retry()
	require.NoError(t, err)
	require.NoError(t, s.Resolve(context.Background(), svc.queue(twoQuestionSet(61), nil), tok))

	require.Len(t, svc.requests, 3)
	assert.Equal(t, svc.requests[1].Answers, svc.requests[2].Answers)
	assert.Len(t, svc.requests[2].Answers, 2)
	assert.Equal(t, PhasePresenting, s.Phase())
}

func TestRetryOutsideError(t *testing.T) {
	s := startSession(t, (&stubService{}).queue(twoQuestionSet(1), nil))
	_, err := s.Retry()
	assert.ErrorIs(t, err, ErrNotRetryable)
}

func TestProtocolFailureIsDistinct(t *testing.T) {
	bad := QuestionSet{Questions: []Question{{ID: "q1", Options: []string{"only"}, Difficulty: DifficultyEasy}}}
	s := NewSession()
	tok, err := s.RequestInitialSet("u1", "8", "french")
	require.NoError(t, err)
	require.NoError(t, s.Resolve(context.Background(), (&stubService{}).queue(bad, nil), tok))

	v := s.View()
	assert.Equal(t, PhaseError, v.Phase)
	assert.Equal(t, FailureProtocol, v.Failure.Kind)
	assert.Nil(t, v.Score, "score untouched by a rejected response")
}

func TestEmptySetIsNoContent(t *testing.T) {
	s := startSession(t, (&stubService{}).queue(QuestionSet{Score: 30}, nil))
	v := s.View()
	assert.Equal(t, PhaseNoContent, v.Phase)
	assert.Equal(t, NoContentNotice, v.Notice)
	assert.Nil(t, v.Failure)
	assert.Nil(t, v.Question)

	_, ok := s.SubmitAnswer(0)
	assert.False(t, ok)
	_, err := s.Retry()
	assert.ErrorIs(t, err, ErrNotRetryable)
}

func TestLateResponseAfterCloseIsDiscarded(t *testing.T) {
	s := NewSession()
	tok, err := s.RequestInitialSet("u1", "8", "french")
	require.NoError(t, err)
	s.Close()

	err = s.Complete(tok, twoQuestionSet(99), nil)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, PhaseClosed, s.Phase())
	_, has := s.Score()
	assert.False(t, has)
}

func TestStaleTokenIsDiscarded(t *testing.T) {
	svc := (&stubService{}).queue(QuestionSet{}, &TransportError{Err: errors.New("reset")})
	s := NewSession()
	first, err := s.RequestInitialSet("u1", "8", "french")
	require.NoError(t, err)
	require.NoError(t, s.Resolve(context.Background(), svc, first))

	second, err := s.Retry()
	require.NoError(t, err)
	assert.ErrorIs(t, s.Complete(first, twoQuestionSet(1), nil), ErrStaleFetch)
	require.NoError(t, s.Complete(second, twoQuestionSet(2), nil))
	score, _ := s.Score()
	assert.Equal(t, 2.0, score)
}

func TestDifficultyIsStoredCanonical(t *testing.T) {
	set := QuestionSet{
		Score:     50,
		Questions: []Question{question("q1", 0, Difficulty(" HARD "))},
	}
	s := startSession(t, (&stubService{}).queue(set, nil))
	require.Equal(t, PhasePresenting, s.Phase())
	assert.Equal(t, DifficultyHard, s.View().Question.Difficulty)

	rec, ok := s.SubmitAnswer(0)
	require.True(t, ok)
	assert.Equal(t, DifficultyHard, rec.Difficulty)

	tok, refetch := s.Advance()
	require.True(t, refetch)
	require.Len(t, tok.Request.Answers, 1)
	assert.Equal(t, DifficultyHard, tok.Request.Answers[0].Difficulty)
}

func TestReceivedQuestionsAreCopied(t *testing.T) {
	set := twoQuestionSet(5)
	s := startSession(t, (&stubService{}).queue(set, nil))
	set.Questions[0].Options[0] = "mutated"
	assert.Equal(t, "a", s.View().Question.Options[0])
}

func TestValidateSet(t *testing.T) {
	assert.NoError(t, ValidateSet(QuestionSet{}))
	assert.Error(t, ValidateSet(QuestionSet{Questions: []Question{question("x", 0, "extreme")}}))
	assert.Error(t, ValidateSet(QuestionSet{Questions: []Question{question("x", 3, DifficultyEasy)}}))
	assert.Error(t, ValidateSet(QuestionSet{Questions: []Question{question("", 0, DifficultyEasy)}}))
	assert.Error(t, ValidateSet(QuestionSet{Questions: []Question{
		question("x", 0, DifficultyEasy), question("x", 1, DifficultyEasy),
	}}))
}
