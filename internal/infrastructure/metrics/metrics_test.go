package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubMetrics_Observer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHubMetrics(reg)

	m.ConnectionOpened("websocket")
	m.ConnectionOpened("websocket")
	m.ConnectionOpened("sse")
	m.ConnectionClosed("websocket")
	m.SubscriptionsChanged(3)
	m.MessageDelivered("new-insight")
	m.MessageDelivered("new-insight")
	m.MessageDropped("new-insight")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections.WithLabelValues("websocket")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections.WithLabelValues("sse")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionsTotal.WithLabelValues("websocket")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Subscriptions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("delivered", "new-insight")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("dropped", "new-insight")))
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := gin.New()
	r.Use(m.Middleware("/sse"))
	r.GET("/api/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/sse", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/items/1", "/api/items/2", "/sse"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/items/:id", "204")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	hm := NewHubMetrics(reg)
	hm.MessageDelivered("automated-insight")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `dashboard_hub_deliveries_total{result="delivered",type="automated-insight"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
