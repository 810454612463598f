package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/repository"
)

var (
	ErrEmailTaken            = errors.New("email already registered")
	ErrUnknownTeacher        = errors.New("teacher not found")
	ErrStudentFieldsRequired = errors.New("grade and teacher_name are required for students")
	ErrUserNotFound          = errors.New("user not found")
)

// AccountService handles sign-up, sign-in and profiles.
type AccountService struct {
	users    *repository.UserRepository
	students *repository.StudentRepository
	auth     *AuthService
	log      zerolog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	users *repository.UserRepository,
	students *repository.StudentRepository,
	auth *AuthService,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		users:    users,
		students: students,
		auth:     auth,
		log:      logger.Component(log, "account_service"),
	}
}

// Register creates a student or teacher account. Students are linked to an
// existing teacher by name and start with the default learning score.
func (s *AccountService) Register(ctx context.Context, req *model.RegisterRequest) (*model.Profile, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
	}

	if req.Role == model.RoleTeacher {
		if err := s.users.CreateTeacher(ctx, user); err != nil {
			return nil, mapCreateErr(err)
		}
		s.log.Info().Int("user_id", user.ID).Msg("Teacher registered")
		return &model.Profile{User: *user}, nil
	}

	teacherName := strings.TrimSpace(req.TeacherName)
	if req.Grade == 0 || teacherName == "" {
		return nil, ErrStudentFieldsRequired
	}
	teacher, err := s.users.FindTeacherByName(ctx, teacherName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownTeacher
		}
		return nil, err
	}

	student := &model.Student{
		Grade:           req.Grade,
		TeacherID:       teacher.ID,
		DifficultyScore: model.DefaultDifficultyScore,
	}
	if err := s.users.CreateStudent(ctx, user, student); err != nil {
		return nil, mapCreateErr(err)
	}
	s.log.Info().Int("user_id", user.ID).Int("teacher_id", teacher.ID).Msg("Student registered")
	return &model.Profile{User: *user, Student: student}, nil
}

// Login verifies credentials and issues a token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	token, err := s.auth.IssueToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	resp := &model.LoginResponse{Token: token, User: *user}
	if user.Role == model.RoleStudent {
		student, err := s.students.GetByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("load student profile: %w", err)
		}
		resp.Student = student
	}
	return resp, nil
}

// Profile returns the account and, for students, the learning profile.
func (s *AccountService) Profile(ctx context.Context, userID int) (*model.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	profile := &model.Profile{User: *user}
	if user.Role == model.RoleStudent {
		student, err := s.students.GetByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load student profile: %w", err)
		}
		profile.Student = student
	}
	return profile, nil
}

// Student returns the learning profile of a student user.
func (s *AccountService) Student(ctx context.Context, userID int) (*model.Student, error) {
	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return student, nil
}

func mapCreateErr(err error) error {
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return ErrEmailTaken
	}
	return err
}
