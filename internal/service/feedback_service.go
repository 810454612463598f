package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/repository"
)

type FeedbackService struct {
	feedbackRepo *repository.FeedbackRepository
	users        *repository.UserRepository
	log          zerolog.Logger
}

func NewFeedbackService(feedbackRepo *repository.FeedbackRepository, users *repository.UserRepository, log zerolog.Logger) *FeedbackService {
	return &FeedbackService{
		feedbackRepo: feedbackRepo,
		users:        users,
		log:          logger.Component(log, "feedback_service"),
	}
}

// Submit stores feedback under the sender's email.
func (s *FeedbackService) Submit(ctx context.Context, userID int, text string) (*model.Feedback, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	f := &model.Feedback{
		UserID:       userID,
		UserName:     user.Email,
		FeedbackText: strings.TrimSpace(text),
	}
	if err := s.feedbackRepo.Create(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info().Int("user_id", userID).Int("feedback_id", f.ID).Msg("Feedback received")
	return f, nil
}
