// Package learning records visitor behaviour per location and turns it into
// adaptive importance for the planner.
package learning

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/fortroute/internal/db"
	"github.com/raphaelgruber/fortroute/internal/metrics"
	"github.com/raphaelgruber/fortroute/internal/models"
)

// Persistence keys, one JSON value each.
const (
	KeyInteractions  = "fortroute_user_interactions"
	KeyLocationStats = "fortroute_location_stats"
	KeyConfig        = "fortroute_adaptive_config"
	KeyVisitorID     = "fortroute_user_id"
)

var (
	// ErrInvalidInteraction indicates an event the store refuses to record.
	ErrInvalidInteraction = errors.New("invalid interaction")

	// ErrInvalidConfig indicates a scoring weight that is negative or not a number.
	ErrInvalidConfig = errors.New("invalid scoring config")
)

// Store holds the interaction history, per-location aggregates, scoring
// weights and the visitor identity. In-memory state is authoritative;
// every mutation is written through to the KV. Persistence failures are
// logged and never returned.
type Store struct {
	mu         sync.RWMutex
	kv         db.KV
	logger     *slog.Logger
	metrics    *metrics.Collector
	now        func() time.Time
	events     []models.InteractionEvent
	aggregates map[pair]models.LocationAggregate
	config     models.ScoringConfig
	visitorID  string
}

// pair identifies the aggregate of one location at one site.
type pair struct{ site, location string }

func pairOf(agg models.LocationAggregate) pair {
	return pair{site: agg.SiteID, location: agg.LocationID}
}

func compareAggregates(a, b models.LocationAggregate) int {
	return cmp.Or(cmp.Compare(a.SiteID, b.SiteID), cmp.Compare(a.LocationID, b.LocationID))
}

// index keys aggregates by their own site and location ids. Entries without
// ids are dropped.
func index(aggs iter.Seq[models.LocationAggregate]) map[pair]models.LocationAggregate {
	out := make(map[pair]models.LocationAggregate)
	for agg := range aggs {
		if agg.SiteID == "" || agg.LocationID == "" {
			continue
		}
		out[pairOf(agg)] = agg
	}
	return out
}

// statsList is the persisted form of the aggregates, ordered by site then
// location. Caller holds the lock.
func (s *Store) statsList() []models.LocationAggregate {
	return slices.SortedFunc(maps.Values(s.aggregates), compareAggregates)
}

// fillMissing computes the aggregate of every (site, location) in the event
// log that has none and reports how many were added. Caller holds the write
// lock.
func (s *Store) fillMissing() int {
	added := 0
	for _, ev := range s.events {
		key := pair{site: ev.SiteID, location: ev.LocationID}
		if _, ok := s.aggregates[key]; ok {
			continue
		}
		s.aggregates[key] = aggregate(ev.SiteID, ev.LocationID, s.events, s.config)
		added++
	}
	return added
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records operation timings into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Store) { s.metrics = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the store from kv. Values that cannot be read are replaced by
// defaults. A nil kv gives a memory-only store.
func Open(ctx context.Context, kv db.KV, opts ...Option) *Store {
	if kv == nil {
		kv = db.NewMemory()
	}
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
		now:    time.Now,
		config: models.DefaultScoringConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.events, _ = load(ctx, s, KeyInteractions, []models.InteractionEvent(nil))
	stats, _ := load(ctx, s, KeyLocationStats, []models.LocationAggregate(nil))
	s.config, _ = load(ctx, s, KeyConfig, s.config)
	if err := validateConfig(s.config); err != nil {
		s.logger.Warn("stored scoring config is invalid, using default", "error", err)
		s.config = models.DefaultScoringConfig()
	}
	s.aggregates = index(slices.Values(stats))
	if added := s.fillMissing(); added > 0 {
		s.logger.Info("recovered aggregates from interaction history", "count", added)
		s.persist(ctx, KeyLocationStats, s.statsList())
	}

	var found bool
	if s.visitorID, found = load(ctx, s, KeyVisitorID, ""); !found || s.visitorID == "" {
		s.visitorID = "user_" + uuid.NewString()
		s.persist(ctx, KeyVisitorID, s.visitorID)
	}

	s.logger.Debug("learning store opened",
		"backend", kv.Backend(),
		"interactions", len(s.events),
		"aggregates", len(s.aggregates),
		"adaptive", s.config.Enabled)
	return s
}

// load reads key, returning fallback when it is missing or unreadable.
func load[T any](ctx context.Context, s *Store, key string, fallback T) (T, bool) {
	var v T
	found, err := s.kv.Get(ctx, key, &v)
	if err != nil {
		s.logger.Warn("failed to load learning state, using default", "key", key, "error", err)
		return fallback, false
	}
	if !found {
		return fallback, false
	}
	return v, true
}

// persist writes one value through to the KV. Caller holds the write lock.
func (s *Store) persist(ctx context.Context, key string, value any) {
	start := time.Now()
	err := s.kv.Set(ctx, key, value)
	s.metrics.Since(metrics.OpStoreWrite, start)
	if err != nil {
		s.metrics.RecordWriteError()
		s.logger.Warn("failed to persist learning state, keeping in memory", "key", key, "error", err)
	}
}

// VisitorID returns the anonymous device identity. It survives Reset.
func (s *Store) VisitorID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visitorID
}

// Backend names the persistence backend in use.
func (s *Store) Backend() string { return s.kv.Backend() }

// Close closes the underlying KV.
func (s *Store) Close(ctx context.Context) error {
	return s.kv.Close(ctx)
}

func validate(ev models.InteractionEvent) error {
	switch {
	case ev.SiteID == "":
		return fmt.Errorf("%w: empty site id", ErrInvalidInteraction)
	case ev.LocationID == "":
		return fmt.Errorf("%w: empty location id", ErrInvalidInteraction)
	case math.IsNaN(ev.TimeSpentMinutes) || math.IsInf(ev.TimeSpentMinutes, 0):
		return fmt.Errorf("%w: time spent is not a finite number", ErrInvalidInteraction)
	case ev.TimeSpentMinutes < 0:
		return fmt.Errorf("%w: negative time spent %v", ErrInvalidInteraction, ev.TimeSpentMinutes)
	}
	return nil
}

func validateWeights(weights map[string]*float64) error {
	for name, w := range weights {
		if w != nil && (*w < 0 || math.IsNaN(*w) || math.IsInf(*w, 0)) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidConfig, name, *w)
		}
	}
	return nil
}

func validateConfig(cfg models.ScoringConfig) error {
	return validateWeights(map[string]*float64{
		"click_weight": &cfg.ClickWeight,
		"time_weight":  &cfg.TimeWeight,
		"skip_weight":  &cfg.SkipWeight,
	})
}

// RecordInteraction appends ev to the history and recomputes the aggregate
// for its (site, location) from the full history. Missing id, visitor and
// timestamp are filled in. It returns the updated aggregate.
func (s *Store) RecordInteraction(ctx context.Context, ev models.InteractionEvent) (models.LocationAggregate, error) {
	if err := validate(ev); err != nil {
		return models.LocationAggregate{}, err
	}
	defer s.metrics.Since(metrics.OpRecord, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.VisitorID == "" {
		ev.VisitorID = s.visitorID
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}

	s.events = append(s.events, ev)
	agg := aggregate(ev.SiteID, ev.LocationID, s.events, s.config)
	s.aggregates[pairOf(agg)] = agg

	s.persist(ctx, KeyInteractions, s.events)
	s.persist(ctx, KeyLocationStats, s.statsList())

	s.logger.Debug("interaction recorded",
		"site", ev.SiteID,
		"location", ev.LocationID,
		"clicked", ev.Clicked,
		"skipped", ev.Skipped,
		"adaptive_score", agg.AdaptiveScore)
	return agg, nil
}

// RecordClick records a visitor opening a location.
func (s *Store) RecordClick(ctx context.Context, siteID, locationID string) (models.LocationAggregate, error) {
	return s.RecordInteraction(ctx, models.InteractionEvent{SiteID: siteID, LocationID: locationID, Clicked: true})
}

// RecordSkip records a visitor passing over a location.
func (s *Store) RecordSkip(ctx context.Context, siteID, locationID string) (models.LocationAggregate, error) {
	return s.RecordInteraction(ctx, models.InteractionEvent{SiteID: siteID, LocationID: locationID, Skipped: true})
}

// RecordDwell records a view of a location lasting minutes.
func (s *Store) RecordDwell(ctx context.Context, siteID, locationID string, minutes float64) (models.LocationAggregate, error) {
	return s.RecordInteraction(ctx, models.InteractionEvent{
		SiteID:           siteID,
		LocationID:       locationID,
		Clicked:          true,
		TimeSpentMinutes: minutes,
	})
}

// aggregate rolls up every event for (siteID, locationID). The result
// depends only on events and cfg.
func aggregate(siteID, locationID string, events []models.InteractionEvent, cfg models.ScoringConfig) models.LocationAggregate {
	agg := models.LocationAggregate{SiteID: siteID, LocationID: locationID}
	for _, ev := range events {
		if ev.SiteID != siteID || ev.LocationID != locationID {
			continue
		}
		agg.VisitCount++
		agg.TotalTimeSpent += ev.TimeSpentMinutes
		if ev.Clicked {
			agg.TotalClicks++
		}
		if ev.Skipped {
			agg.TotalSkips++
		}
		if ev.CreatedAt.After(agg.LastUpdated) {
			agg.LastUpdated = ev.CreatedAt
		}
	}
	agg.AdaptiveScore = AdaptiveScore(agg, cfg)
	return agg
}

// Rebuild recomputes every aggregate from the interaction history.
func (s *Store) Rebuild(ctx context.Context) int {
	defer s.metrics.Since(metrics.OpRecompute, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.aggregates = make(map[pair]models.LocationAggregate)
	n := s.fillMissing()
	s.persist(ctx, KeyLocationStats, s.statsList())
	return n
}

// ScoringConfig returns the current weights.
func (s *Store) ScoringConfig() models.ScoringConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateScoringConfig merges update into the weights, persists them and
// recomputes the adaptive score of every stored aggregate.
func (s *Store) UpdateScoringConfig(ctx context.Context, update models.ScoringConfigUpdate) (models.ScoringConfig, error) {
	if err := validateWeights(map[string]*float64{
		"click_weight": update.ClickWeight,
		"time_weight":  update.TimeWeight,
		"skip_weight":  update.SkipWeight,
	}); err != nil {
		return models.ScoringConfig{}, err
	}
	defer s.metrics.Since(metrics.OpRecompute, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = update.Apply(s.config)
	s.persist(ctx, KeyConfig, s.config)

	now := s.now()
	for key, agg := range s.aggregates {
		agg.AdaptiveScore = AdaptiveScore(agg, s.config)
		agg.LastUpdated = now
		s.aggregates[key] = agg
	}
	s.persist(ctx, KeyLocationStats, s.statsList())

	s.logger.Info("scoring config updated",
		"click_weight", s.config.ClickWeight,
		"time_weight", s.config.TimeWeight,
		"skip_weight", s.config.SkipWeight,
		"enabled", s.config.Enabled,
		"recomputed", len(s.aggregates))
	return s.config, nil
}

// AggregatesForSite returns the site's aggregates ordered by location id.
func (s *Store) AggregatesForSite(siteID string) []models.LocationAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.LocationAggregate
	for _, agg := range s.aggregates {
		if agg.SiteID == siteID {
			out = append(out, agg)
		}
	}
	slices.SortFunc(out, func(a, b models.LocationAggregate) int {
		return cmp.Compare(a.LocationID, b.LocationID)
	})
	return out
}

// Aggregate returns the aggregate for one location.
func (s *Store) Aggregate(siteID, locationID string) (models.LocationAggregate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg, ok := s.aggregates[pair{site: siteID, location: locationID}]
	return agg, ok
}

// Interactions returns the recorded events for a site in recording order.
// An empty siteID returns every event.
func (s *Store) Interactions(siteID string) []models.InteractionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.InteractionEvent
	for _, ev := range s.events {
		if siteID == "" || ev.SiteID == siteID {
			out = append(out, ev)
		}
	}
	return out
}

// Reset clears events, aggregates and weights. The visitor id is kept.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	s.aggregates = make(map[pair]models.LocationAggregate)
	s.config = models.DefaultScoringConfig()

	for _, key := range []string{KeyInteractions, KeyLocationStats, KeyConfig} {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.metrics.RecordWriteError()
			s.logger.Warn("failed to clear learning state", "key", key, "error", err)
		}
	}
	s.logger.Info("learning store reset", "visitor", s.visitorID)
}
