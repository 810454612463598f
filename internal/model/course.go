package model

import "time"

// Course is a subject a student can practise. Key is the lowercase language
// identifier sent to the Question Service.
type Course struct {
	ID          int       `json:"id"`
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
