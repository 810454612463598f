package model

import (
	"time"

	"github.com/studysaathi/learning-backend/internal/learning"
)

// StartLearningRequest opens a learning session for a course.
type StartLearningRequest struct {
	CourseID int `json:"course_id" binding:"required,min=1"`
}

// OptionRequest carries a chosen option index.
type OptionRequest struct {
	OptionIndex *int `json:"option_index" binding:"required,min=0"`
}

// SubmitRequest submits an option; without one the current selection is used.
type SubmitRequest struct {
	OptionIndex *int `json:"option_index" binding:"omitempty,min=0"`
}

// LearningSessionState is the externally visible state of a learning session.
type LearningSessionState struct {
	SessionID string        `json:"session_id"`
	CourseID  int           `json:"course_id"`
	CourseKey string        `json:"course_key"`
	StartedAt time.Time     `json:"started_at"`
	View      learning.View `json:"view"`
}

// LearningEvent is published whenever a learning session changes.
type LearningEvent struct {
	Type      string               `json:"type"`
	StudentID int                  `json:"student_id"`
	State     LearningSessionState `json:"state"`
	At        time.Time            `json:"at"`
}

// Learning event types.
const (
	LearningEventStarted  = "started"
	LearningEventLoaded   = "loaded"
	LearningEventSelected = "selected"
	LearningEventAnswered = "answered"
	LearningEventAdvanced = "advanced"
	LearningEventFailed   = "failed"
	LearningEventClosed   = "closed"
)

// LearningAnswerLog is queued for persistence for every submitted answer.
type LearningAnswerLog struct {
	SessionID  string              `json:"session_id"`
	StudentID  int                 `json:"student_id"`
	CourseID   int                 `json:"course_id"`
	QuestionID string              `json:"question_id"`
	Difficulty learning.Difficulty `json:"difficulty"`
	Correct    bool                `json:"correct"`
	AnsweredAt time.Time           `json:"answered_at"`
}

// LearningScoreLog is queued for persistence for every score the service returns.
type LearningScoreLog struct {
	SessionID  string    `json:"session_id"`
	StudentID  int       `json:"student_id"`
	CourseID   int       `json:"course_id"`
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}
