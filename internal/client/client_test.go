package client_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fortroute/internal/client"
	"github.com/raphaelgruber/fortroute/internal/db"
	"github.com/raphaelgruber/fortroute/internal/learning"
	"github.com/raphaelgruber/fortroute/internal/models"
	"github.com/raphaelgruber/fortroute/internal/planner"
	"github.com/raphaelgruber/fortroute/internal/server"
	"github.com/raphaelgruber/fortroute/internal/service"
	"github.com/raphaelgruber/fortroute/internal/sites"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	catalog, err := sites.NewCatalog("", logger)
	require.NoError(t, err)
	store := learning.Open(context.Background(), db.NewMemory(), learning.WithLogger(logger))
	srv := server.New(service.New(catalog, store, nil, logger), logger, server.Options{})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return client.New(ts.URL + "/")
}

func TestClient_PlanAndTrack(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	list, err := c.Sites(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "shivneri", list[0].ID)

	res, err := c.Plan(ctx, "shivneri", planner.Request{TimeAvailable: 60, Energy: planner.EnergyMedium})
	require.NoError(t, err)
	assert.Equal(t, []string{"mainGate", "shivJanmabhoomi"}, res.Primary.LocationIDs())

	agg, err := c.Track(ctx, "shivneri", "templeArea", "dwell", 30)
	require.NoError(t, err)
	assert.Equal(t, 47.0, agg.AdaptiveScore)
	_, err = c.Track(ctx, "shivneri", "shivJanmabhoomi", "skip", 0)
	require.NoError(t, err)

	res, err = c.Plan(ctx, "shivneri", planner.Request{TimeAvailable: 60, UseAdaptive: true})
	require.NoError(t, err)
	assert.True(t, res.IsAdaptive)
	assert.Equal(t, []string{"mainGate", "templeArea"}, res.Primary.LocationIDs())

	aggs, err := c.Aggregates(ctx, "shivneri")
	require.NoError(t, err)
	assert.Len(t, aggs, 2)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	_, err := c.Plan(ctx, "sinhagad", planner.Request{TimeAvailable: 60})
	assert.ErrorIs(t, err, sites.ErrSiteNotFound)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)

	_, err = c.Track(ctx, "shivneri", "moat", "click", 0)
	assert.ErrorIs(t, err, learning.ErrInvalidInteraction)
}

func TestClient_AnalyticsScoringStore(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	a, err := c.Analytics(ctx, "shivneri")
	require.NoError(t, err)
	assert.Nil(t, a)

	_, err = c.Track(ctx, "shivneri", "mainGate", "click", 0)
	require.NoError(t, err)

	a, err = c.Analytics(ctx, "shivneri")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 1, a.TotalInteractions)

	w := 4.0
	cfg, err := c.UpdateScoringConfig(ctx, models.ScoringConfigUpdate{ClickWeight: &w})
	require.NoError(t, err)
	assert.Equal(t, 4.0, cfg.ClickWeight)

	cfg, err = c.ScoringConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4.0, cfg.ClickWeight)

	snap, err := c.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Interactions, 1)

	require.NoError(t, c.Reset(ctx))
	a, err = c.Analytics(ctx, "shivneri")
	require.NoError(t, err)
	assert.Nil(t, a)

	require.NoError(t, c.Import(ctx, snap))
	aggs, err := c.Aggregates(ctx, "shivneri")
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, 1, aggs[0].TotalClicks)
}

func TestClient_Live(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	live, err := c.Live(ctx, "shivneri")
	require.NoError(t, err)
	defer live.Close()

	agg, err := live.Send("viewpoint", "click", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.TotalClicks)

	agg, err = live.Send("viewpoint", "dwell", 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, agg.TotalTimeSpent)

	_, err = live.Send("viewpoint", "wave", 0)
	assert.ErrorIs(t, err, client.ErrLiveRejected)

	_, err = c.Live(ctx, "sinhagad")
	assert.ErrorIs(t, err, sites.ErrSiteNotFound)
}
