package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studysaathi/learning-backend/internal/model"
)

// LearningRepository stores the answer and score history of learning sessions.
type LearningRepository struct {
	pool *pgxpool.Pool
}

// NewLearningRepository creates a new LearningRepository.
func NewLearningRepository(pool *pgxpool.Pool) *LearningRepository {
	return &LearningRepository{pool: pool}
}

// InsertAnswer records one submitted answer.
func (r *LearningRepository) InsertAnswer(ctx context.Context, a *model.LearningAnswerLog) error {
	sessionID, err := uuid.Parse(a.SessionID)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO learning_answers (session_id, student_id, course_id, question_id, difficulty, correct, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sessionID, a.StudentID, a.CourseID, a.QuestionID, string(a.Difficulty), a.Correct, a.AnsweredAt,
	)
	return err
}

// InsertScores appends the scores to the history and moves each student's
// current score forward. Older scores never overwrite newer ones.
func (r *LearningRepository) InsertScores(ctx context.Context, batch []model.LearningScoreLog) error {
	if len(batch) == 0 {
		return nil
	}

	n := len(batch)
	sessionIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	courses := make([]int, 0, n)
	scores := make([]float64, 0, n)
	recordedAts := make([]time.Time, 0, n)
	for _, s := range batch {
		id, err := uuid.Parse(s.SessionID)
		if err != nil {
			return err
		}
		sessionIDs = append(sessionIDs, id)
		students = append(students, s.StudentID)
		courses = append(courses, s.CourseID)
		scores = append(scores, s.Score)
		recordedAts = append(recordedAts, s.RecordedAt)
	}

	latest := LatestScorePerStudent(batch)
	latestStudents := make([]int, 0, len(latest))
	latestScores := make([]float64, 0, len(latest))
	latestAts := make([]time.Time, 0, len(latest))
	for _, s := range latest {
		latestStudents = append(latestStudents, s.StudentID)
		latestScores = append(latestScores, s.Score)
		latestAts = append(latestAts, s.RecordedAt)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO learning_scores (session_id, student_id, course_id, score, recorded_at)
			 SELECT * FROM UNNEST($1::uuid[], $2::int[], $3::int[], $4::float8[], $5::timestamptz[])`,
			sessionIDs, students, courses, scores, recordedAts,
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`UPDATE students AS s
			 SET difficulty_score = t.score,
			     updated_at = t.recorded_at
			 FROM UNNEST($1::int[], $2::float8[], $3::timestamptz[]) AS t (student_id, score, recorded_at)
			 WHERE s.user_id = t.student_id
			   AND s.updated_at <= t.recorded_at`,
			latestStudents, latestScores, latestAts,
		)
		return err
	})
}

// LatestScorePerStudent keeps the most recent score of each student, in first-seen order.
func LatestScorePerStudent(batch []model.LearningScoreLog) []model.LearningScoreLog {
	index := make(map[int]int, len(batch))
	out := make([]model.LearningScoreLog, 0, len(batch))
	for _, s := range batch {
		i, ok := index[s.StudentID]
		if !ok {
			index[s.StudentID] = len(out)
			out = append(out, s)
			continue
		}
		if !s.RecordedAt.Before(out[i].RecordedAt) {
			out[i] = s
		}
	}
	return out
}
