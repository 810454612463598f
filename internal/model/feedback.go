package model

import "time"

// Feedback is a free-text message a user sent about the app.
type Feedback struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	UserName     string    `json:"user_name"`
	FeedbackText string    `json:"feedback_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateFeedbackRequest is the payload for POST /feedback.
type CreateFeedbackRequest struct {
	FeedbackText string `json:"feedback_text" binding:"required,notblank,max=5000"`
}
