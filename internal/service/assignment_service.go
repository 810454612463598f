package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/config"
	"github.com/studysaathi/learning-backend/internal/logger"
	"github.com/studysaathi/learning-backend/internal/model"
	"github.com/studysaathi/learning-backend/internal/repository"
	"github.com/studysaathi/learning-backend/internal/response"
	"github.com/studysaathi/learning-backend/internal/storage"
)

// Sentinel errors for assignment uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrNotAssignmentOwner  = errors.New("assignment belongs to another teacher")
)

const pdfContentType = "application/pdf"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// AssignmentService handles assignment PDFs and student submissions.
type AssignmentService struct {
	cfg         *config.Config
	assignments *repository.AssignmentRepository
	students    *repository.StudentRepository
	store       storage.BlobStore
	signer      *storage.URLSigner
	now         func() time.Time
	log         zerolog.Logger
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	cfg *config.Config,
	assignments *repository.AssignmentRepository,
	students *repository.StudentRepository,
	store storage.BlobStore,
	signer *storage.URLSigner,
	log zerolog.Logger,
) *AssignmentService {
	return &AssignmentService{
		cfg:         cfg,
		assignments: assignments,
		students:    students,
		store:       store,
		signer:      signer,
		now:         time.Now,
		log:         logger.Component(log, "assignment_service"),
	}
}

// AssignmentKey builds the storage key of an assignment file.
func AssignmentKey(teacherID, grade int, at time.Time, filename string) string {
	return fmt.Sprintf("%d/grade-%d/%d-%s", teacherID, grade, at.UnixMilli(), CleanFileName(filename))
}

// SubmissionKey builds the storage key of a student's answer file.
func SubmissionKey(assignmentID, studentID int) string {
	return fmt.Sprintf("%d/%d.pdf", assignmentID, studentID)
}

// CleanFileName replaces every character outside [a-zA-Z0-9._-] with an underscore.
func CleanFileName(name string) string {
	if name == "" {
		return "file.pdf"
	}
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// Create stores the PDF and records the assignment for the teacher's grade.
func (s *AssignmentService) Create(ctx context.Context, teacherID int, form *model.CreateAssignmentForm, file multipart.File, header *multipart.FileHeader) (*model.Assignment, error) {
	body, err := s.checkPDF(file, header)
	if err != nil {
		return nil, err
	}

	key := AssignmentKey(teacherID, form.Grade, s.now(), header.Filename)
	if err := s.store.Put(ctx, storage.BucketAssignments, key, body); err != nil {
		return nil, fmt.Errorf("store assignment: %w", err)
	}

	a := &model.Assignment{
		TeacherID: teacherID,
		Grade:     form.Grade,
		Title:     form.Title,
		FilePath:  key,
	}
	if err := s.assignments.Create(ctx, a); err != nil {
		return nil, err
	}
	s.sign(storage.BucketAssignments, a.FilePath, &a.DownloadURL)

	s.log.Info().Int("assignment_id", a.ID).Int("teacher_id", teacherID).Int("grade", a.Grade).Msg("Assignment published")
	return a, nil
}

// ListForTeacher returns the teacher's assignments with fresh download links.
func (s *AssignmentService) ListForTeacher(ctx context.Context, teacherID int) ([]model.Assignment, error) {
	list, err := s.assignments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Assignment{}
	}
	for i := range list {
		s.sign(storage.BucketAssignments, list[i].FilePath, &list[i].DownloadURL)
	}
	return list, nil
}

// ListForStudent returns the assignments of the student's grade with their status.
func (s *AssignmentService) ListForStudent(ctx context.Context, studentID int) ([]model.StudentAssignment, error) {
	student, err := s.students.GetByUserID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	list, err := s.assignments.ListForStudent(ctx, studentID, student.TeacherID, student.Grade)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.StudentAssignment{}
	}
	for i := range list {
		s.sign(storage.BucketAssignments, list[i].FilePath, &list[i].DownloadURL)
	}
	return list, nil
}

// Submit stores the student's answer PDF, replacing an earlier upload.
func (s *AssignmentService) Submit(ctx context.Context, studentID, assignmentID int, file multipart.File, header *multipart.FileHeader) (*model.Submission, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	student, err := s.students.GetByUserID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.Grade != a.Grade || student.TeacherID != a.TeacherID {
		return nil, ErrAssignmentNotFound
	}

	body, err := s.checkPDF(file, header)
	if err != nil {
		return nil, err
	}

	key := SubmissionKey(assignmentID, studentID)
	if err := s.store.Put(ctx, storage.BucketSubmissions, key, body); err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}

	sub := &model.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		StudentName:  student.FullName,
		FilePath:     key,
	}
	if err := s.assignments.UpsertSubmission(ctx, sub); err != nil {
		return nil, err
	}
	s.sign(storage.BucketSubmissions, sub.FilePath, &sub.DownloadURL)
	return sub, nil
}

// ListSubmissions returns one page of submissions of the teacher's assignment.
func (s *AssignmentService) ListSubmissions(ctx context.Context, teacherID, assignmentID, page, perPage int) ([]model.Submission, *response.Pagination, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrAssignmentNotFound
		}
		return nil, nil, err
	}
	if a.TeacherID != teacherID {
		return nil, nil, ErrNotAssignmentOwner
	}

	page, perPage, offset := response.PageBounds(page, perPage)
	list, total, err := s.assignments.ListSubmissions(ctx, assignmentID, perPage, offset)
	if err != nil {
		return nil, nil, err
	}
	if list == nil {
		list = []model.Submission{}
	}
	for i := range list {
		if list[i].StudentName == "" {
			list[i].StudentName = "Unknown"
		}
		s.sign(storage.BucketSubmissions, list[i].FilePath, &list[i].DownloadURL)
	}
	return list, response.NewPagination(page, perPage, total), nil
}

// Open verifies a signed link and opens the object it points to.
func (s *AssignmentService) Open(ctx context.Context, bucket, key, token string) (io.ReadCloser, error) {
	if err := s.signer.Verify(token, bucket, key); err != nil {
		return nil, err
	}
	return s.store.Open(ctx, bucket, key)
}

// checkPDF validates the declared type, the size and the leading bytes of an upload.
func (s *AssignmentService) checkPDF(file multipart.File, header *multipart.FileHeader) (io.Reader, error) {
	if ct := header.Header.Get("Content-Type"); ct != pdfContentType {
		return nil, fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedFileType, ct, pdfContentType)
	}
	if header.Size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	br := bufio.NewReader(file)
	head, _ := br.Peek(512)
	if http.DetectContentType(head) != pdfContentType {
		return nil, fmt.Errorf("%w: content is not a PDF", ErrUnsupportedFileType)
	}
	return io.LimitReader(br, s.cfg.MaxUploadBytes), nil
}

func (s *AssignmentService) sign(bucket, key string, dst *string) {
	link, err := s.signer.SignedURL(bucket, key)
	if err != nil {
		s.log.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("Failed to sign download link")
		return
	}
	*dst = link
}

