package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUESTION_SERVICE_URL", "")
	t.Setenv("SIGNED_URL_TTL_SECONDS", "")
	cfg := Load()

	assert.Equal(t, "http://localhost:8000", cfg.QuestionServiceURL)
	assert.Equal(t, 60*time.Second, cfg.SignedURLTTL)
	assert.Equal(t, 2, cfg.QuestionServiceMaxRetries)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUESTION_SERVICE_TIMEOUT_SECONDS", "3")
	t.Setenv("QUESTION_SERVICE_MAX_RETRIES", "oops")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example/")
	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.QuestionServiceTimeout)
	assert.Equal(t, 2, cfg.QuestionServiceMaxRetries, "invalid ints fall back to the default")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://api.example", cfg.PublicBaseURL)
}
