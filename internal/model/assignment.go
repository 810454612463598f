package model

import "time"

// SubmissionStatus tells a student whether they already handed in an assignment.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSubmitted SubmissionStatus = "submitted"
)

// Assignment is a PDF a teacher published for one grade.
type Assignment struct {
	ID          int       `json:"id"`
	TeacherID   int       `json:"teacher_id"`
	Grade       int       `json:"grade"`
	Title       string    `json:"title"`
	FilePath    string    `json:"-"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StudentAssignment is an assignment as seen by a student.
type StudentAssignment struct {
	Assignment
	Status      SubmissionStatus `json:"status"`
	SubmittedAt *time.Time       `json:"submitted_at,omitempty"`
}

// Submission is a student's answer PDF for an assignment.
type Submission struct {
	ID           int       `json:"id"`
	AssignmentID int       `json:"assignment_id"`
	StudentID    int       `json:"student_id"`
	StudentName  string    `json:"student_name"`
	FilePath     string    `json:"-"`
	DownloadURL  string    `json:"download_url,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// CreateAssignmentForm holds the non-file fields of an assignment upload.
type CreateAssignmentForm struct {
	Title string `form:"title" binding:"required,notblank,max=200"`
	Grade int    `form:"grade" binding:"required,min=1,max=12"`
}

// TeacherDashboard summarizes a teacher's classes.
type TeacherDashboard struct {
	TotalStudents    int `json:"total_students"`
	TotalAssignments int `json:"total_assignments"`
	TotalSubmissions int `json:"total_submissions"`
	NeedsFocus       int `json:"needs_focus"`
}
