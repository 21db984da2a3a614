// Package service wires the site catalog, planner and learning store into
// the operations exposed by the CLI and the HTTP server.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/fortroute/internal/config"
	"github.com/raphaelgruber/fortroute/internal/db"
	"github.com/raphaelgruber/fortroute/internal/graph"
	"github.com/raphaelgruber/fortroute/internal/learning"
	"github.com/raphaelgruber/fortroute/internal/metrics"
	"github.com/raphaelgruber/fortroute/internal/models"
	"github.com/raphaelgruber/fortroute/internal/planner"
	"github.com/raphaelgruber/fortroute/internal/sites"
)

// Service handles planning and interaction tracking for every catalogued site.
type Service struct {
	catalog       *sites.Catalog
	store         *learning.Store
	planner       *planner.Planner
	metrics       *metrics.Collector
	logger        *slog.Logger
	defaultEnergy planner.EnergyLevel
}

// New creates a service over an existing catalog and store. collector may be nil.
func New(catalog *sites.Catalog, store *learning.Store, collector *metrics.Collector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:       catalog,
		store:         store,
		planner:       planner.New(store),
		metrics:       collector,
		logger:        logger,
		defaultEnergy: planner.EnergyMedium,
	}
}

// Open builds the full dependency graph from configuration: persistence
// backend, learning store, site catalog and metrics collector.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Service, error) {
	catalog, err := sites.NewCatalog(cfg.Sites.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}

	kv := db.Open(ctx, cfg.Persistence(), logger)
	metrics.SetStoreFallback(kv.Backend() != cfg.Store.Backend)

	collector := metrics.NewCollector()
	store := learning.Open(ctx, kv,
		learning.WithLogger(logger),
		learning.WithMetrics(collector))

	svc := New(catalog, store, collector, logger)
	svc.defaultEnergy = planner.EnergyLevel(cfg.Planner.DefaultEnergy)
	return svc, nil
}

// Close releases the persistence backend.
func (s *Service) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}

// Sites lists every catalogued site.
func (s *Service) Sites() []models.SiteSummary {
	return s.catalog.List()
}

// Site returns one site.
func (s *Service) Site(id string) (*graph.Site, error) {
	return s.catalog.Get(id)
}

// Plan computes the primary plan and alternatives for a site. An empty
// energy level uses the configured default.
func (s *Service) Plan(siteID string, req planner.Request) (models.PlanResult, error) {
	site, err := s.catalog.Get(siteID)
	if err != nil {
		return models.PlanResult{}, err
	}
	if req.Energy == "" {
		req.Energy = s.defaultEnergy
	}

	start := time.Now()
	result, err := s.planner.Plan(site, req)
	s.metrics.Since(metrics.OpPlan, start)
	if err != nil {
		return models.PlanResult{}, err
	}

	metrics.PlanServed(siteID, result.IsAdaptive)
	s.logger.Debug("plan computed",
		"site", siteID,
		"time_available", req.TimeAvailable,
		"energy", req.Energy,
		"adaptive", result.IsAdaptive,
		"primary", result.Primary.ID,
		"alternatives", len(result.Alternatives),
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// Action is a semantic visitor action.
type Action string

const (
	ActionClick Action = "click"
	ActionSkip  Action = "skip"
	ActionDwell Action = "dwell"
)

// Track records one click, skip or dwell for a location of a site. minutes
// is only used for dwell.
func (s *Service) Track(ctx context.Context, siteID, locationID string, action Action, minutes float64) (models.LocationAggregate, error) {
	if err := s.checkLocation(siteID, locationID); err != nil {
		return models.LocationAggregate{}, err
	}

	var (
		agg models.LocationAggregate
		err error
	)
	switch action {
	case ActionClick:
		agg, err = s.store.RecordClick(ctx, siteID, locationID)
	case ActionSkip:
		agg, err = s.store.RecordSkip(ctx, siteID, locationID)
	case ActionDwell:
		agg, err = s.store.RecordDwell(ctx, siteID, locationID, minutes)
	default:
		return models.LocationAggregate{}, fmt.Errorf("%w: unknown action %q", learning.ErrInvalidInteraction, action)
	}
	if err != nil {
		return models.LocationAggregate{}, err
	}
	metrics.InteractionRecorded(string(action))
	return agg, nil
}

// RecordEvent records a fully specified interaction event.
func (s *Service) RecordEvent(ctx context.Context, ev models.InteractionEvent) (models.LocationAggregate, error) {
	if err := s.checkLocation(ev.SiteID, ev.LocationID); err != nil {
		return models.LocationAggregate{}, err
	}
	agg, err := s.store.RecordInteraction(ctx, ev)
	if err != nil {
		return models.LocationAggregate{}, err
	}
	metrics.InteractionRecorded("event")
	return agg, nil
}

// checkLocation rejects interactions for unknown sites or locations.
func (s *Service) checkLocation(siteID, locationID string) error {
	site, err := s.catalog.Get(siteID)
	if err != nil {
		return err
	}
	if _, ok := site.Location(locationID); !ok {
		return fmt.Errorf("%w: site %s has no location %q", learning.ErrInvalidInteraction, siteID, locationID)
	}
	return nil
}

// Aggregates returns the site's location aggregates ordered by location id.
func (s *Service) Aggregates(siteID string) ([]models.LocationAggregate, error) {
	if _, err := s.catalog.Get(siteID); err != nil {
		return nil, err
	}
	return s.store.AggregatesForSite(siteID), nil
}

// Analytics summarizes a site. It returns nil when nothing was recorded yet.
func (s *Service) Analytics(siteID string) (*models.SiteAnalytics, error) {
	if _, err := s.catalog.Get(siteID); err != nil {
		return nil, err
	}
	return s.store.Analytics(siteID), nil
}

// Interactions returns the recorded events for a site.
func (s *Service) Interactions(siteID string) ([]models.InteractionEvent, error) {
	if _, err := s.catalog.Get(siteID); err != nil {
		return nil, err
	}
	return s.store.Interactions(siteID), nil
}

// ScoringConfig returns the current scoring weights.
func (s *Service) ScoringConfig() models.ScoringConfig {
	return s.store.ScoringConfig()
}

// UpdateScoringConfig merges update into the weights and rescores every aggregate.
func (s *Service) UpdateScoringConfig(ctx context.Context, update models.ScoringConfigUpdate) (models.ScoringConfig, error) {
	return s.store.UpdateScoringConfig(ctx, update)
}

// Export returns the full learning state.
func (s *Service) Export() models.StoreSnapshot {
	return s.store.Export()
}

// Import restores learning state from a snapshot.
func (s *Service) Import(ctx context.Context, snap models.StoreSnapshot) error {
	return s.store.Import(ctx, snap)
}

// Reset clears all learned state except the visitor id.
func (s *Service) Reset(ctx context.Context) {
	s.store.Reset(ctx)
}

// Rebuild recomputes every aggregate from the interaction history and
// returns how many were rebuilt.
func (s *Service) Rebuild(ctx context.Context) int {
	n := s.store.Rebuild(ctx)
	s.logger.Info("aggregates rebuilt", "count", n)
	return n
}

// VisitorID returns the anonymous visitor identity.
func (s *Service) VisitorID() string {
	return s.store.VisitorID()
}

// Backend names the persistence backend in use.
func (s *Service) Backend() string {
	return s.store.Backend()
}

// Stats returns the in-memory operation metrics.
func (s *Service) Stats() metrics.Snapshot {
	return s.metrics.Snapshot()
}
