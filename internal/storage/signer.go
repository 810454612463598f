package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrLinkInvalid = errors.New("download link invalid or expired")

// URLSigner issues short-lived download links for stored objects.
type URLSigner struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

type linkClaims struct {
	jwt.RegisteredClaims
	Bucket string `json:"bkt"`
	Key    string `json:"key"`
}

// NewURLSigner creates a signer producing links under baseURL + /files.
func NewURLSigner(secret string, ttl time.Duration, baseURL string) *URLSigner {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &URLSigner{
		secret:  []byte(secret),
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// SignedURL returns a download URL for the object that expires after the configured TTL.
func (s *URLSigner) SignedURL(bucket, key string) (string, error) {
	now := s.now()
	claims := linkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Bucket: bucket,
		Key:    key,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign link: %w", err)
	}

	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/files/%s/%s?token=%s", s.baseURL, bucket, strings.Join(segments, "/"), url.QueryEscape(token)), nil
}

// Verify checks that token was issued for exactly this bucket and key and has not expired.
func (s *URLSigner) Verify(token, bucket, key string) error {
	claims := &linkClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return ErrLinkInvalid
	}
	if claims.Bucket != bucket || claims.Key != key {
		return ErrLinkInvalid
	}
	return nil
}
