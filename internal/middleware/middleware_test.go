package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/pkg/auth"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
	"github.com/jwalitptl/mediconnect-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	jwtService := auth.NewJWTService("secret", "mediconnect", time.Hour)
	engine := gin.New()
	engine.GET("/me", NewAuthMiddleware(jwtService).Authenticate(), func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, actor)
	})

	token, err := jwtService.GenerateAccessToken(&model.User{ID: 5, Role: model.RoleDoctor})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(engine, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"user_id":5,"role":"doctor"}`, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
			}
		})
	}
}

func TestActorFrom_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := ActorFrom(c)
	assert.False(t, ok)
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get(HeaderXRequestID)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, rec.Body.String())

	given := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, given)
	rec = serve(engine, req)
	assert.Equal(t, given, rec.Header().Get(HeaderXRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "not-a-uuid")
	rec = serve(engine, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(HeaderXRequestID))
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/", func(c *gin.Context) { panic("boom") })

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","code":"internal","message":"internal server error"}`, rec.Body.String())
}

func TestErrorHandler(t *testing.T) {
	engine := gin.New()
	engine.Use(ErrorHandler())
	engine.GET("/", func(c *gin.Context) {
		_ = c.Error(apperrors.NewNotFound("appointment", nil))
	})

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2})
	engine := gin.New()
	engine.Use(limiter.RateLimit())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(engine, req).Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	// Buckets are per client.
	assert.Equal(t, http.StatusOK, request("10.0.0.2"))
}

func TestSizeLimit(t *testing.T) {
	engine := gin.New()
	engine.Use(SizeLimit(SizeLimitConfig{MaxBodySize: 8}))
	engine.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too large")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	engine := gin.New()
	engine.Use(Timeout(TimeoutConfig{Duration: time.Minute}))
	engine.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(engine, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestCORSPreflight(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS(DefaultCORSConfig()))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := serve(engine, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestCORSAllowList(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS(NewCORSConfig([]string{"https://app.example.com"}, 10*time.Minute)))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "listed origin is echoed", origin: "https://app.example.com", want: "https://app.example.com"},
		{name: "unlisted origin is refused", origin: "https://evil.example.com", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := serve(engine, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", rec.Header().Get("Vary"))
			assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
		})
	}
}

func TestLoggerRecordsRouteMetrics(t *testing.T) {
	m := metrics.New("test", prometheus.NewRegistry())
	engine := gin.New()
	engine.Use(Logger(m))
	engine.GET("/appointments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(engine, httptest.NewRequest(http.MethodGet, "/appointments/1", nil))
	serve(engine, httptest.NewRequest(http.MethodGet, "/appointments/2", nil))
	serve(engine, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/appointments/:id", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "unmatched", "404")))
}
