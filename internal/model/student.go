package model

import "time"

// DefaultDifficultyScore is the learning score every new student starts with.
const DefaultDifficultyScore = 100

// FocusThreshold splits the roster: students scoring below it need attention.
const FocusThreshold = 60

// Student holds the learning profile attached to a student user.
type Student struct {
	UserID          int       `json:"user_id"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	Grade           int       `json:"grade"`
	TeacherID       int       `json:"teacher_id"`
	DifficultyScore float64   `json:"difficulty_score"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RosterStatus is the teacher-facing label for a student's progress.
type RosterStatus string

const (
	RosterToBeFocused RosterStatus = "to-be-focused"
	RosterDoingWell   RosterStatus = "doing-well"
)

// StatusFor labels a score for the teacher roster.
func StatusFor(score float64) RosterStatus {
	if score < FocusThreshold {
		return RosterToBeFocused
	}
	return RosterDoingWell
}

// RosterEntry is one student in the teacher roster.
type RosterEntry struct {
	UserID   int          `json:"user_id"`
	FullName string       `json:"full_name"`
	Email    string       `json:"email"`
	Score    float64      `json:"score"`
	Status   RosterStatus `json:"status"`
}

// RosterGrade groups roster entries of one grade.
type RosterGrade struct {
	Grade    int           `json:"grade"`
	Students []RosterEntry `json:"students"`
}
