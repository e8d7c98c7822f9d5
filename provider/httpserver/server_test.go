package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewServer(t *testing.T) {
	cfg := NewServerConfig()
	cfg.Port = 8181
	server, err := NewServer(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, server.Router)
	assert.Contains(t, server.Server.Addr, "8181")
}

func TestNewServer_NilConfig(t *testing.T) {
	_, err := NewServer(nil)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestUseDefaultSecurityHeaders(t *testing.T) {
	router := NewRouter(true)
	router.Use(SecurityMiddleware(DefaultSecurityConfig()))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRequestLogMiddleware(t *testing.T) {
	router := NewRouter(true)
	router.Use(RequestLogMiddleware("test"))
	router.GET("/test", func(c *gin.Context) {
		logger := RequestLogger(c)
		assert.NotNil(t, logger)
		assert.NotEmpty(t, logger.GetTraceID())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHttpSuccessAndErrors(t *testing.T) {
	router := NewRouter(true)
	router.Use(RequestLogMiddleware("test"))
	router.GET("/ok", func(c *gin.Context) { HttpSuccess(c, gin.H{"value": 1}) })
	router.GET("/unauthorized", func(c *gin.Context) { HttpError401(c) })
	router.GET("/bad", func(c *gin.Context) { HttpError400(c, "missing field") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ok", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":1`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/unauthorized", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/bad", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing field")
}

func TestValidateJSON(t *testing.T) {
	type req struct {
		Name string `json:"name" binding:"required"`
	}
	router := NewRouter(true)
	router.Use(RequestLogMiddleware("test"))
	router.POST("/validate", func(c *gin.Context) {
		var body req
		if !ValidateJSON(c, &body) {
			return
		}
		HttpSuccess(c, body)
	})

	w := httptest.NewRecorder()
	httpReq, _ := http.NewRequest("POST", "/validate", nil)
	httpReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, httpReq)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
