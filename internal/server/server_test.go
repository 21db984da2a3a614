package server_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fortroute/internal/db"
	"github.com/raphaelgruber/fortroute/internal/learning"
	"github.com/raphaelgruber/fortroute/internal/metrics"
	"github.com/raphaelgruber/fortroute/internal/models"
	"github.com/raphaelgruber/fortroute/internal/server"
	"github.com/raphaelgruber/fortroute/internal/service"
	"github.com/raphaelgruber/fortroute/internal/sites"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestServer(t *testing.T, opts server.Options) *httptest.Server {
	t.Helper()
	logger := testLogger()

	catalog, err := sites.NewCatalog("", logger)
	require.NoError(t, err)
	collector := metrics.NewCollector()
	store := learning.Open(context.Background(), db.NewMemory(),
		learning.WithLogger(logger),
		learning.WithMetrics(collector))

	srv := server.New(service.New(catalog, store, collector, logger), logger, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// call sends a JSON request and decodes the envelope. body may be nil.
func call(t *testing.T, ts *httptest.Server, method, path string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			reader = strings.NewReader(s)
		} else {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, server.Options{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))
}

func TestSites(t *testing.T) {
	ts := newTestServer(t, server.Options{})

	status, env := call(t, ts, http.MethodGet, "/api/v1/sites", nil)
	require.Equal(t, http.StatusOK, status)
	list := decodeData[[]models.SiteSummary](t, env)
	require.Len(t, list, 1)
	assert.Equal(t, "shivneri", list[0].ID)
	assert.Equal(t, 5, list[0].LocationCount)

	status, env = call(t, ts, http.MethodGet, "/api/v1/sites/shivneri", nil)
	require.Equal(t, http.StatusOK, status)
	site := decodeData[struct {
		Entry    string              `json:"entry"`
		Document models.SiteDocument `json:"document"`
	}](t, env)
	assert.Equal(t, "mainGate", site.Entry)
	assert.Len(t, site.Document.Connections, 6)

	status, env = call(t, ts, http.MethodGet, "/api/v1/sites/sinhagad", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SITE_NOT_FOUND", env.Error.Code)
}

func TestPlan(t *testing.T) {
	ts := newTestServer(t, server.Options{})

	status, env := call(t, ts, http.MethodPost, "/api/v1/sites/shivneri/plan", map[string]any{
		"time_available": 60,
		"energy_level":   "medium",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	res := decodeData[models.PlanResult](t, env)
	assert.Equal(t, "balanced", res.Primary.ID)
	assert.Equal(t, []string{"mainGate", "shivJanmabhoomi"}, res.Primary.LocationIDs())
	assert.Equal(t, "52 min", res.Primary.EstimatedTime)
	assert.NotEmpty(t, res.Alternatives)
}

func TestPlan_BadRequests(t *testing.T) {
	ts := newTestServer(t, server.Options{})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"negative time", "/api/v1/sites/shivneri/plan", map[string]any{"time_available": -1}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown energy", "/api/v1/sites/shivneri/plan", map[string]any{"time_available": 60, "energy_level": "heroic"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed json", "/api/v1/sites/shivneri/plan", "{not json", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown site", "/api/v1/sites/sinhagad/plan", map[string]any{"time_available": 60}, http.StatusNotFound, "SITE_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, ts, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, "error", env.Status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestTrackAndAnalytics(t *testing.T) {
	ts := newTestServer(t, server.Options{})

	status, _ := call(t, ts, http.MethodGet, "/api/v1/sites/shivneri/analytics", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, env := call(t, ts, http.MethodPost, "/api/v1/sites/shivneri/click", map[string]any{"location_id": "templeArea"})
	require.Equal(t, http.StatusCreated, status)
	agg := decodeData[models.LocationAggregate](t, env)
	assert.Equal(t, 1, agg.TotalClicks)
	assert.Equal(t, 2.0, agg.AdaptiveScore)

	status, _ = call(t, ts, http.MethodPost, "/api/v1/sites/shivneri/dwell", map[string]any{"location_id": "templeArea", "minutes": 6})
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, ts, http.MethodPost, "/api/v1/sites/shivneri/skip", map[string]any{"location_id": "viewpoint"})
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, ts, http.MethodPost, "/api/v1/sites/shivneri/interactions", map[string]any{
		"location_id": "mainGate", "clicked": true, "time_spent_minutes": 3,
	})
	require.Equal(t, http.StatusCreated, status)

	status, env = call(t, ts, http.MethodGet, "/api/v1/sites/shivneri/aggregates", nil)
	require.Equal(t, http.StatusOK, status)
	aggs := decodeData[[]models.LocationAggregate](t, env)
	require.Len(t, aggs, 3)
	assert.Equal(t, "mainGate", aggs[0].LocationID)

	status, env = call(t, ts, http.MethodGet, "/api/v1/sites/shivneri/analytics", nil)
	require.Equal(t, http.StatusOK, status)
	a := decodeData[models.SiteAnalytics](t, env)
	assert.Equal(t, 4, a.TotalInteractions)
	require.NotEmpty(t, a.PopularSpots)
	assert.Equal(t, "templeArea", a.PopularSpots[0].LocationID)
	require.Len(t, a.SkippedSpots, 1)
	assert.Equal(t, "viewpoint", a.SkippedSpots[0].LocationID)

	status, env = call(t, ts, http.MethodGet, "/api/v1/sites/shivneri/interactions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]models.InteractionEvent](t, env), 4)
}

func TestTrack_Rejects(t *testing.T) {
	ts := newTestServer(t, server.Options{})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing location", "/api/v1/sites/shivneri/click", map[string]any{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown location", "/api/v1/sites/shivneri/click", map[string]any{"location_id": "moat"}, http.StatusBadRequest, "INVALID_INTERACTION"},
		{"negative dwell", "/api/v1/sites/shivneri/dwell", map[string]any{"location_id": "mainGate", "minutes": -2}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown site", "/api/v1/sites/sinhagad/skip", map[string]any{"location_id": "mainGate"}, http.StatusNotFound, "SITE_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, ts, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestScoring(t *testing.T) {
	ts := newTestServer(t, server.Options{})

	status, env := call(t, ts, http.MethodGet, "/api/v1/scoring", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.DefaultScoringConfig(), decodeData[models.ScoringConfig](t, env))

	status, _ = call(t, ts, http.MethodPost, "/api/v1/sites/shivneri/click", map[string]any{"location_id": "templeArea"})
	require.Equal(t, http.StatusCreated, status)

	status, env = call(t, ts, http.MethodPatch, "/api/v1/scoring", map[string]any{"click_weight": 5})
	require.Equal(t, http.StatusOK, status)
	cfg := decodeData[models.ScoringConfig](t, env)
	assert.Equal(t, 5.0, cfg.ClickWeight)
	assert.Equal(t, 3.0, cfg.SkipWeight)

	_, env = call(t, ts, http.MethodGet, "/api/v1/sites/shivneri/aggregates", nil)
	aggs := decodeData[[]models.LocationAggregate](t, env)
	require.Len(t, aggs, 1)
	assert.Equal(t, 5.0, aggs[0].AdaptiveScore, "weights change rescores stored aggregates")

	status, env = call(t, ts, http.MethodPatch, "/api/v1/scoring", map[string]any{"skip_weight": -1})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
}

func TestStoreLifecycle(t *testing.T) {
	ts := newTestServer(t, server.Options{})

	call(t, ts, http.MethodPost, "/api/v1/sites/shivneri/click", map[string]any{"location_id": "mainGate"})
	call(t, ts, http.MethodPost, "/api/v1/sites/shivneri/skip", map[string]any{"location_id": "viewpoint"})

	status, env := call(t, ts, http.MethodGet, "/api/v1/store/export", nil)
	require.Equal(t, http.StatusOK, status)
	snap := decodeData[models.StoreSnapshot](t, env)
	require.Len(t, snap.Interactions, 2)

	status, _ = call(t, ts, http.MethodPost, "/api/v1/store/reset", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, ts, http.MethodGet, "/api/v1/sites/shivneri/analytics", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, env = call(t, ts, http.MethodPost, "/api/v1/store/import", snap)
	require.Equal(t, http.StatusOK, status)
	counts := decodeData[map[string]int](t, env)
	assert.Equal(t, 2, counts["interactions"])
	assert.Equal(t, 2, counts["location_stats"])

	bad := snap
	bad.Config = &models.ScoringConfig{ClickWeight: 2, TimeWeight: 1.5, SkipWeight: -3, Enabled: true}
	status, env = call(t, ts, http.MethodPost, "/api/v1/store/import", bad)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CONFIG", env.Error.Code)

	status, env = call(t, ts, http.MethodPost, "/api/v1/store/rebuild", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, decodeData[map[string]int](t, env)["rebuilt"])

	status, env = call(t, ts, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, status)
	stats := decodeData[struct {
		Backend string `json:"backend"`
	}](t, env)
	assert.Equal(t, db.BackendMemory, stats.Backend)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, server.Options{})
	call(t, ts, http.MethodPost, "/api/v1/sites/shivneri/plan", map[string]any{"time_available": 30})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "fortroute_plans_served_total")
}

func dialLive(t *testing.T, ts *httptest.Server, site string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/sites/" + site + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type liveReply struct {
	Status string                    `json:"status"`
	Data   *models.LocationAggregate `json:"data"`
	Error  string                    `json:"error"`
}

func sendLive(t *testing.T, conn *websocket.Conn, msg string) liveReply {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var reply liveReply
	require.NoError(t, json.Unmarshal(data, &reply))
	return reply
}

func TestLive(t *testing.T) {
	ts := newTestServer(t, server.Options{})
	conn := dialLive(t, ts, "shivneri")

	reply := sendLive(t, conn, `{"location_id":"templeArea","action":"click"}`)
	require.Equal(t, "success", reply.Status, reply.Error)
	require.NotNil(t, reply.Data)
	assert.Equal(t, 1, reply.Data.TotalClicks)

	reply = sendLive(t, conn, `{"location_id":"templeArea","action":"dwell","minutes":4}`)
	require.Equal(t, "success", reply.Status, reply.Error)
	assert.Equal(t, 2, reply.Data.VisitCount)
	assert.Equal(t, 4.0, reply.Data.TotalTimeSpent)

	reply = sendLive(t, conn, `{"location_id":"templeArea","action":"like"}`)
	assert.Equal(t, "error", reply.Status)
	assert.Nil(t, reply.Data)

	reply = sendLive(t, conn, `not json`)
	assert.Equal(t, "error", reply.Status)

	reply = sendLive(t, conn, `{"location_id":"moat","action":"skip"}`)
	assert.Equal(t, "error", reply.Status)
	assert.Contains(t, reply.Error, "moat")
}

func TestLive_RateLimited(t *testing.T) {
	ts := newTestServer(t, server.Options{IngestRate: 0.001, IngestBurst: 1})
	conn := dialLive(t, ts, "shivneri")

	reply := sendLive(t, conn, `{"location_id":"mainGate","action":"click"}`)
	assert.Equal(t, "success", reply.Status)

	reply = sendLive(t, conn, `{"location_id":"mainGate","action":"click"}`)
	assert.Equal(t, "error", reply.Status)
	assert.Contains(t, reply.Error, "rate limit")

	status, env := call(t, ts, http.MethodGet, "/api/v1/sites/shivneri/aggregates", nil)
	require.Equal(t, http.StatusOK, status)
	aggs := decodeData[[]models.LocationAggregate](t, env)
	require.Len(t, aggs, 1)
	assert.Equal(t, 1, aggs[0].TotalClicks, "rejected frames are not recorded")
}

func TestLive_UnknownSite(t *testing.T) {
	ts := newTestServer(t, server.Options{})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/sites/sinhagad/live"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLive_ClosesUnresponsiveConnection(t *testing.T) {
	ts := newTestServer(t, server.Options{LivePongWait: 300 * time.Millisecond})
	conn := dialLive(t, ts, "shivneri")
	conn.SetPingHandler(func(string) error { return nil })

	start := time.Now()
	require.NoError(t, conn.SetReadDeadline(start.Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "server drops a client that never answers pings")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestLive_PongsKeepConnectionOpen(t *testing.T) {
	ts := newTestServer(t, server.Options{LivePongWait: 300 * time.Millisecond})
	conn := dialLive(t, ts, "shivneri")

	replies := make(chan []byte, 1)
	go func() {
		defer close(replies)
		_, data, err := conn.ReadMessage()
		if err == nil {
			replies <- data
		}
	}()

	time.Sleep(time.Second)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"location_id":"mainGate","action":"click"}`)))

	select {
	case data, ok := <-replies:
		require.True(t, ok, "connection closed while answering pings")
		assert.Contains(t, string(data), `"status":"success"`)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply from live socket")
	}
}
