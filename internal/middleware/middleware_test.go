package middleware

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/model"
)

func readFileHandler(c *gin.Context) {
	rawFile, err := c.FormFile("file")
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Entity too large"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f, err := rawFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot open file"})
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := io.ReadAll(f); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot read file"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func sendFile(t *testing.T, engine *gin.Engine, size int) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "upload.pdf")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("a"), size))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, _ := http.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestSizeLimit(t *testing.T) {
	const limit = 1 << 20
	engine := gin.New()
	engine.POST("/upload", SizeLimit(limit), readFileHandler)

	tests := []struct {
		name       string
		size       int
		wantStatus int
	}{
		{"below limit", limit / 2, http.StatusOK},
		{"at limit", limit, http.StatusOK},
		{"above limit", limit + 64<<10, http.StatusRequestEntityTooLarge},
		{"far above limit", 10 * limit, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sendFile(t, engine, tt.size)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestSafeHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(SafeHeader())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	engine := gin.New()
	engine.Use(RateLimiterMiddleware(2, nil))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// another client has its own budget
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiterMiddleware_PerUser(t *testing.T) {
	alice, bob := model.User{ID: uuid.New()}, model.User{ID: uuid.New()}

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if c.GetHeader("X-User") == "bob" {
			c.Set("user", bob)
		} else {
			c.Set("user", alice)
		}
	}, RateLimiterMiddleware(1, nil))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(who string) int {
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		req.Header.Set("X-User", who)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("alice"))
	assert.Equal(t, http.StatusTooManyRequests, call("alice"))
	// same address, different account
	assert.Equal(t, http.StatusNoContent, call("bob"))
}

func TestPrometheusMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	promMiddleware, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(promMiddleware.Handler())
	engine.GET("/jobs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/jobs/1", "/jobs/2", "/metrics", "/missing"} {
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		engine.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/jobs/:id", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", unmatchedRoute, "404")))
	assert.Equal(t, 0.0, promtest.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/metrics", "200")))
	assert.Equal(t, 2, promtest.CollectAndCount(promMiddleware.requestDuration))

	_, err = NewPrometheusMiddleware(reg)
	assert.Error(t, err, "registering twice on one registry fails")
}
