package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nexushq/nexus/pkg/metrics"
)

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics("/metrics-test/stream"))
	r.GET("/metrics-test/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics-test/stream", func(c *gin.Context) { c.Status(http.StatusOK) })

	series := func() int { return promtestutil.CollectAndCount(metrics.APILatency) }
	serve := func(path string) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	before := series()
	serve("/metrics-test/items/1")
	serve("/metrics-test/items/2")
	require.Equal(t, before+1, series(), "path parameters must share one series")

	serve("/metrics-test/stream")
	require.Equal(t, before+1, series(), "skipped routes must not be observed")

	serve("/metrics-test/nowhere/a")
	serve("/metrics-test/nowhere/b")
	require.Equal(t, before+2, series(), "unmatched paths must share one series")
}
