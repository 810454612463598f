// Package learning implements the adaptive question-session loop: a learner
// receives a set of questions from the Question Service, answers them one at a
// time, and the collected answers are sent back to obtain the next set.
package learning

import (
	"context"
	"fmt"
	"strings"
)

// Difficulty is the coarse level attached to a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes and validates a difficulty tag.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
}

// Question is a single multiple-choice question as served by the Question Service.
// It is never modified after it has been received.
type Question struct {
	ID            string     `json:"id"`
	Prompt        string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correct_option"`
	Difficulty    Difficulty `json:"difficulty"`
}

// QuestionSet is one ordered batch of questions plus the score that came with it.
type QuestionSet struct {
	Questions []Question `json:"questions"`
	Score     float64    `json:"score"`
}

// AnswerRecord is the outcome of one submitted answer.
type AnswerRecord struct {
	QuestionID string     `json:"question_id"`
	Difficulty Difficulty `json:"difficulty"`
	Correct    bool       `json:"correct"`
}

// Learner identifies who is practicing and what.
type Learner struct {
	ID        string
	TeacherID string
	Grade     string
	Subject   string
}

// NextSetRequest is the payload sent to the Question Service.
type NextSetRequest struct {
	LearnerID string
	TeacherID string
	Grade     string
	Subject   string
	Answers   []AnswerRecord
}

func (r NextSetRequest) clone() NextSetRequest {
	answers := make([]AnswerRecord, len(r.Answers))
	copy(answers, r.Answers)
	r.Answers = answers
	return r
}

// QuestionService returns the next question set for a learner given the answers
// to the previous one. Implementations should return *TransportError or
// *ProtocolError so callers can tell retryable failures apart.
type QuestionService interface {
	NextSet(ctx context.Context, req NextSetRequest) (QuestionSet, error)
}

// ValidateSet checks that every question in the set is well formed. An empty
// set is valid: it means the service has nothing more to offer.
func ValidateSet(set QuestionSet) error {
	seen := make(map[string]struct{}, len(set.Questions))
	for i, q := range set.Questions {
		if strings.TrimSpace(q.ID) == "" {
			return fmt.Errorf("question %d: missing id", i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("question %d: duplicate id %q", i, q.ID)
		}
		seen[q.ID] = struct{}{}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %q: needs at least 2 options, got %d", q.ID, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("question %q: correct option %d out of range", q.ID, q.CorrectOption)
		}
		if _, err := ParseDifficulty(string(q.Difficulty)); err != nil {
			return fmt.Errorf("question %q: %w", q.ID, err)
		}
	}
	return nil
}
