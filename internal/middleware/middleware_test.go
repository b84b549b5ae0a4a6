package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewIPRateLimiter(t *testing.T) {
	tests := []struct {
		name      string
		rateLimit rate.Limit
		burst     int
	}{
		{
			name:      "standard rate limit",
			rateLimit: rate.Limit(100),
			burst:     10,
		},
		{
			name:      "high rate limit",
			rateLimit: rate.Limit(1000),
			burst:     50,
		},
		{
			name:      "low rate limit",
			rateLimit: rate.Limit(1),
			burst:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewIPRateLimiter(tt.rateLimit, tt.burst)
			defer limiter.Stop()

			require.NotNil(t, limiter)
			assert.Equal(t, tt.rateLimit, limiter.rate)
			assert.Equal(t, tt.burst, limiter.burst)
			assert.NotNil(t, limiter.limiters)
		})
	}
}

func TestNewPerMinuteRateLimiter(t *testing.T) {
	limiter := NewPerMinuteRateLimiter(60, 5)
	defer limiter.Stop()
	assert.Equal(t, 60, limiter.PerMinute())
	assert.Equal(t, 5, limiter.burst)

	defaults := NewPerMinuteRateLimiter(0, -1)
	defer defaults.Stop()
	assert.Equal(t, 120, defaults.PerMinute())
	assert.Equal(t, 20, defaults.burst)
}

func TestIPRateLimiter_GetLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(10), 5)
	defer limiter.Stop()

	t.Run("creates new limiter for new IP", func(t *testing.T) {
		l1 := limiter.GetLimiter("192.168.1.1")
		require.NotNil(t, l1)

		// Should get the same limiter for the same IP
		l2 := limiter.GetLimiter("192.168.1.1")
		assert.Same(t, l1, l2)
	})

	t.Run("creates different limiters for different IPs", func(t *testing.T) {
		l1 := limiter.GetLimiter("192.168.1.1")
		l2 := limiter.GetLimiter("192.168.1.2")

		assert.NotSame(t, l1, l2)
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		var wg sync.WaitGroup
		ips := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4", "5.5.5.5"}

		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				l := limiter.GetLimiter(ips[idx%len(ips)])
				assert.NotNil(t, l)
			}(i)
		}

		wg.Wait()
	})
}

func TestIPRateLimiter_Evict(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(10), 5)
	defer limiter.Stop()

	limiter.GetLimiter("10.0.0.1")
	limiter.GetLimiter("10.0.0.2")
	require.Equal(t, 2, limiter.size())

	assert.Equal(t, 0, limiter.evict(time.Now().Add(-time.Hour)))
	assert.Equal(t, 2, limiter.evict(time.Now().Add(time.Second)))
	assert.Equal(t, 0, limiter.size())

	// Stop is idempotent
	limiter.Stop()
	limiter.Stop()
}

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		requestCount  int
		expectBlocked bool
	}{
		{
			name:         "single request passes",
			requestCount: 1,
		},
		{
			name:         "burst requests pass",
			requestCount: 5,
		},
		{
			name:          "exceeding burst gets blocked",
			requestCount:  10,
			expectBlocked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewPerMinuteRateLimiter(60, 5) // 1 per second, burst of 5
			defer limiter.Stop()

			router := gin.New()
			router.Use(RequestID(), RateLimit(limiter))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			var last *httptest.ResponseRecorder
			blocked := false

			for i := 0; i < tt.requestCount; i++ {
				w := httptest.NewRecorder()
				req, _ := http.NewRequest(http.MethodGet, "/test", nil)
				req.RemoteAddr = "192.168.1.1:4321"
				router.ServeHTTP(w, req)
				last = w

				if w.Code == http.StatusTooManyRequests {
					blocked = true
					break
				}
			}

			require.NotNil(t, last)
			if !tt.expectBlocked {
				assert.False(t, blocked)
				assert.Equal(t, http.StatusOK, last.Code)
				return
			}

			assert.True(t, blocked)
			assert.Equal(t, "60", last.Header().Get("Retry-After"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(last.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Code)
			assert.Equal(t, "60 requests per minute", resp.Details["limit"])
			assert.Equal(t, last.Header().Get(RequestIDHeader), resp.RequestID)
		})
	}
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	limiter := NewPerMinuteRateLimiter(60, 1)
	defer limiter.Stop()

	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	send := func(addr string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1000"))
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString("request_id")})
	})

	t.Run("generates request ID when not provided", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("uses provided request ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "custom-request-id-123")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "custom-request-id-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces oversized request ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("a", 200))
		router.ServeHTTP(w, req)

		_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(RequestID(), Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("recovers from panic", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
		req.Header.Set(RequestIDHeader, "panic-req")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Internal server error", resp.Error)
		assert.Equal(t, "INTERNAL_ERROR", resp.Code)
		assert.Equal(t, "panic-req", resp.RequestID)

		entries := logs.FilterMessage("panic recovered").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "panic-req", entries[0].ContextMap()["request_id"])
	})

	t.Run("does not affect normal requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ok", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(RequestID(), Logger(zap.New(core), "/health"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	for _, path := range []string{"/health", "/ok", "/bad", "/fail"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", entries[0].ContextMap()["path"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.EqualValues(t, http.StatusServiceUnavailable, entries[2].ContextMap()["status"])
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/ai/settings", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/ai/settings", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestGenerateRequestID(t *testing.T) {
	ids := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id := generateRequestID()
		assert.NotEmpty(t, id)
		assert.False(t, ids[id], "Duplicate ID generated: %s", id)
		ids[id] = true
	}
}

// Benchmarks
func BenchmarkRateLimiter_GetLimiter(b *testing.B) {
	limiter := NewIPRateLimiter(rate.Limit(1000), 50)
	defer limiter.Stop()
	ips := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4", "5.5.5.5"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.GetLimiter(ips[i%len(ips)])
	}
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	limiter := NewPerMinuteRateLimiter(1_000_000, 100_000)
	defer limiter.Stop()

	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		router.ServeHTTP(w, req)
	}
}
