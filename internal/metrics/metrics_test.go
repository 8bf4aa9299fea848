package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/posts/:id/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/api/posts/1/", "/api/posts/2/", "/missing"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/posts/:id/", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "talkback_http_requests_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestObserveTask(t *testing.T) {
	m := New()
	m.ObserveTask("token-sweep", 2*time.Second, nil)
	m.ObserveTask("token-sweep", 50*time.Millisecond, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.backgroundTasks.WithLabelValues("token-sweep", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backgroundTasks.WithLabelValues("token-sweep", "failure")))

	assert.Equal(t, 2, testutil.CollectAndCount(m.taskDuration, "talkback_background_task_duration_seconds"))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `talkback_background_task_duration_seconds_sum{job="token-sweep",outcome="success"} 2`)
	assert.Contains(t, body, `talkback_background_task_duration_seconds_count{job="token-sweep",outcome="failure"} 1`)
}
