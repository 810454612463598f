package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/repository"
)

const courseCatalogTTL = 10 * time.Minute

var ErrCourseNotFound = errors.New("course not found")

type CourseService struct {
	courseRepo *repository.CourseRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

func NewCourseService(courseRepo *repository.CourseRepository, rdb *redis.Client, log zerolog.Logger) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		rdb:        rdb,
		log:        logger.Component(log, "course_service"),
	}
}

// GetAll returns the course catalog, served from Redis when warm.
func (s *CourseService) GetAll(ctx context.Context) ([]model.Course, error) {
	key := config.CacheKey.CourseCatalogKey()
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var courses []model.Course
		if err := json.Unmarshal(data, &courses); err == nil {
			return courses, nil
		}
		s.log.Warn().Msg("Corrupt course catalog cache, reloading")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Course catalog cache unavailable")
	}

	courses, err := s.courseRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	if courses == nil {
		courses = []model.Course{}
	}

	if raw, err := json.Marshal(courses); err == nil {
		if err := s.rdb.Set(ctx, key, raw, courseCatalogTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache course catalog")
		}
	}
	return courses, nil
}

// GetByID finds a course in the catalog.
func (s *CourseService) GetByID(ctx context.Context, id int) (*model.Course, error) {
	courses, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		if courses[i].ID == id {
			c := courses[i]
			return &c, nil
		}
	}
	return nil, ErrCourseNotFound
}
