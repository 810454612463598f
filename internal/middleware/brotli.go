package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig controls response compression.
type BrotliConfig struct {
	Quality   int
	MinLength int
	// SkipPrefixes lists path prefixes that are never compressed.
	SkipPrefixes []string
	// SkipContentTypes lists media type prefixes that are already compressed.
	SkipContentTypes []string
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:          brotli.DefaultCompression,
	MinLength:        1024,
	SkipPrefixes:     []string{"/files/"},
	SkipContentTypes: []string{"application/pdf", "application/zip", "image/", "video/", "audio/"},
}

// brotliWriter buffers the body until MinLength bytes are seen, then decides
// once whether to compress the rest of the response.
type brotliWriter struct {
	gin.ResponseWriter
	cfg     *BrotliConfig
	pool    *sync.Pool
	enc     *brotli.Writer
	buf     []byte
	decided bool
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.decided {
		if bw.enc != nil {
			return bw.enc.Write(data)
		}
		return bw.ResponseWriter.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) < bw.cfg.MinLength {
		return len(data), nil
	}
	if err := bw.decide(); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// decide picks compression based on the response content type and flushes
// whatever was buffered through the chosen path.
func (bw *brotliWriter) decide() error {
	bw.decided = true
	if !hasAnyPrefix(bw.Header().Get("Content-Type"), bw.cfg.SkipContentTypes) {
		bw.Header().Set("Content-Encoding", "br")
		bw.Header().Del("Content-Length")
		enc := bw.pool.Get().(*brotli.Writer)
		enc.Reset(bw.ResponseWriter)
		bw.enc = enc
	}

	var dst io.Writer = bw.ResponseWriter
	if bw.enc != nil {
		dst = bw.enc
	}
	_, err := dst.Write(bw.buf)
	bw.buf = nil
	return err
}

// Flush is called by streaming endpoints. Anything still buffered goes out
// uncompressed.
func (bw *brotliWriter) Flush() {
	if !bw.decided {
		bw.decided = true
		if len(bw.buf) > 0 {
			_, _ = bw.ResponseWriter.Write(bw.buf)
			bw.buf = nil
		}
	} else if bw.enc != nil {
		_ = bw.enc.Flush()
	}
	bw.ResponseWriter.Flush()
}

// finish writes out short bodies and returns the encoder to the pool.
func (bw *brotliWriter) finish() error {
	if !bw.decided {
		bw.decided = true
		if len(bw.buf) == 0 {
			return nil
		}
		_, err := bw.ResponseWriter.Write(bw.buf)
		return err
	}
	if bw.enc == nil {
		return nil
	}
	err := bw.enc.Close()
	bw.enc.Reset(io.Discard)
	bw.pool.Put(bw.enc)
	bw.enc = nil
	return err
}

func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}
	pool := &sync.Pool{New: func() any {
		return brotli.NewWriterLevel(io.Discard, cfg.Quality)
	}}

	return func(c *gin.Context) {
		if isStreaming(c) || hasAnyPrefix(c.Request.URL.Path, cfg.SkipPrefixes) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer, cfg: &cfg, pool: pool}
		c.Writer = bw
		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

// isStreaming reports SSE and WebSocket requests, which must reach the raw writer.
func isStreaming(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream") ||
		strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
