// Package questionclient is the HTTP binding of the adaptive Question Service.
package questionclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/learning"
	"github.com/studysaathi/learning-backend/internal/logger"
)

const (
	nextSetPath = "/ai/next-set"
	healthPath  = "/health"

	maxErrorBody = 512
	// maxRetryAfter caps how long a Retry-After header can hold a learner.
	maxRetryAfter = 10 * time.Second
)

// Config controls how the client talks to the Question Service.
type Config struct {
	BaseURL string
	// Timeout bounds a single attempt. Expiry counts as a transport failure.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a transport failure.
	MaxRetries int
	// RetryWait is multiplied by the attempt number between attempts. A longer
	// Retry-After from the service wins, up to maxRetryAfter.
	RetryWait time.Duration
}

// Client implements learning.QuestionService over HTTP.
type Client struct {
	http *resty.Client
	cfg  Config
	log  zerolog.Logger
}

var _ learning.QuestionService = (*Client)(nil)

// New creates a Client. Retries are handled by the client itself so that only
// transport failures are retried.
func New(cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}

	log = logger.Component(log, "question_client")

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetLogger(restyLogger{log: log})

	return &Client{http: rc, cfg: cfg, log: log}
}

type nextSetRequest struct {
	StudentID string                  `json:"student_id"`
	TeacherID *string                 `json:"teacher_id"`
	Grade     string                  `json:"grade"`
	Language  string                  `json:"language"`
	Answers   []learning.AnswerRecord `json:"answers"`
}

type nextSetResponse struct {
	Score        *float64        `json:"score"`
	Questions    *[]wireQuestion `json:"questions"`
	Distribution map[string]int  `json:"distribution,omitempty"`
}

type wireQuestion struct {
	ID            flexibleID `json:"id"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectOption *int       `json:"correct_option"`
	Difficulty    string     `json:"difficulty"`
}

// flexibleID accepts both string and numeric identifiers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

func newNextSetRequest(req learning.NextSetRequest) nextSetRequest {
	body := nextSetRequest{
		StudentID: req.LearnerID,
		Grade:     req.Grade,
		Language:  strings.ToLower(req.Subject),
		Answers:   req.Answers,
	}
	if body.Answers == nil {
		body.Answers = []learning.AnswerRecord{}
	}
	if req.TeacherID != "" {
		teacherID := req.TeacherID
		body.TeacherID = &teacherID
	}
	return body
}

// NextSet submits the answer batch and returns the next question set. The same
// body is resent on every attempt; the service is responsible for deduplication.
func (c *Client) NextSet(ctx context.Context, req learning.NextSetRequest) (learning.QuestionSet, error) {
	body := newNextSetRequest(req)

	var (
		lastErr    error
		retryAfter time.Duration
	)
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.cfg.RetryWait * time.Duration(attempt)
			if retryAfter > wait {
				wait = min(retryAfter, maxRetryAfter)
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return learning.QuestionSet{}, &learning.TransportError{Err: ctx.Err()}
			case <-timer.C:
			}
		}

		set, after, err := c.attempt(ctx, body)
		retryAfter = after
		if err == nil {
			return set, nil
		}
		lastErr = err

		if learning.Classify(err) == learning.FailureProtocol {
			c.log.Warn().Err(err).
				Str("student_id", req.LearnerID).
				Msg("Question service returned an unusable response")
			return learning.QuestionSet{}, err
		}

		c.log.Warn().Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", c.cfg.MaxRetries+1).
			Str("student_id", req.LearnerID).
			Msg("Question service attempt failed")
	}
	return learning.QuestionSet{}, lastErr
}

// attempt makes one request. On a retryable status it also returns the delay
// the service asked for in Retry-After, if any.
func (c *Client) attempt(ctx context.Context, body nextSetRequest) (learning.QuestionSet, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(attemptCtx).
		SetBody(body).
		Post(nextSetPath)
	if err != nil {
		return learning.QuestionSet{}, 0, &learning.TransportError{Err: err}
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return learning.QuestionSet{}, parseRetryAfter(resp.Header().Get("Retry-After"), time.Now()), &learning.TransportError{
			StatusCode: status,
			Err:        errors.New(truncate(resp.String())),
		}
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return learning.QuestionSet{}, 0, &learning.ProtocolError{
			StatusCode: status,
			Reason:     "unexpected status",
			Err:        errors.New(truncate(resp.String())),
		}
	}

	set, err := decodeNextSet(resp.Body(), status)
	return set, 0, err
}

// parseRetryAfter reads either form of Retry-After: delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func decodeNextSet(raw []byte, status int) (learning.QuestionSet, error) {
	var payload nextSetResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return learning.QuestionSet{}, &learning.ProtocolError{StatusCode: status, Reason: "malformed body", Err: err}
	}
	if payload.Score == nil {
		return learning.QuestionSet{}, &learning.ProtocolError{StatusCode: status, Reason: "missing score"}
	}
	if payload.Questions == nil {
		return learning.QuestionSet{}, &learning.ProtocolError{StatusCode: status, Reason: "missing questions"}
	}

	set := learning.QuestionSet{
		Questions: make([]learning.Question, 0, len(*payload.Questions)),
		Score:     *payload.Score,
	}
	for i, wq := range *payload.Questions {
		if wq.CorrectOption == nil {
			return learning.QuestionSet{}, &learning.ProtocolError{
				StatusCode: status,
				Reason:     fmt.Sprintf("question %d: missing correct_option", i),
			}
		}
		difficulty, err := learning.ParseDifficulty(wq.Difficulty)
		if err != nil {
			return learning.QuestionSet{}, &learning.ProtocolError{
				StatusCode: status,
				Reason:     fmt.Sprintf("question %d", i),
				Err:        err,
			}
		}
		set.Questions = append(set.Questions, learning.Question{
			ID:            string(wq.ID),
			Prompt:        wq.Question,
			Options:       wq.Options,
			CorrectOption: *wq.CorrectOption,
			Difficulty:    difficulty,
		})
	}

	if err := learning.ValidateSet(set); err != nil {
		return learning.QuestionSet{}, &learning.ProtocolError{StatusCode: status, Reason: "invalid question set", Err: err}
	}
	return set, nil
}

// Ping checks that the Question Service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.http.R().SetContext(pingCtx).Get(healthPath)
	if err != nil {
		return fmt.Errorf("ping question service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ping question service: status %d", resp.StatusCode())
	}
	return nil
}

// truncate shortens s to at most maxErrorBody bytes without splitting a rune.
func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// restyLogger forwards resty's internal messages to zerolog.
type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
