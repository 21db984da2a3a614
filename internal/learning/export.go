package learning

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/raphaelgruber/fortroute/internal/models"
)

// Export returns a copy of the full store state.
func (s *Store) Export() models.StoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]models.LocationAggregate, len(s.aggregates))
	for _, agg := range s.statsList() {
		stats[models.AggregateKey(agg.SiteID, agg.LocationID)] = agg
	}
	cfg := s.config
	return models.StoreSnapshot{
		Interactions:  slices.Clone(s.events),
		LocationStats: stats,
		Config:        &cfg,
		ExportedAt:    s.now().UTC(),
	}
}

// Import restores state from a snapshot and persists it. Parts missing from
// the snapshot (nil interactions, stats or config) are left as they are.
// Aggregates are indexed by their own site and location ids, and any pair in
// the interaction history without one is recomputed. A snapshot holding an
// invalid event or weight is rejected as a whole.
func (s *Store) Import(ctx context.Context, snap models.StoreSnapshot) error {
	for i, ev := range snap.Interactions {
		if err := validate(ev); err != nil {
			return fmt.Errorf("interaction %d: %w", i, err)
		}
	}
	if snap.Config != nil {
		if err := validateConfig(*snap.Config); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Interactions != nil {
		s.events = slices.Clone(snap.Interactions)
		s.persist(ctx, KeyInteractions, s.events)
	}
	if snap.Config != nil {
		s.config = *snap.Config
		s.persist(ctx, KeyConfig, s.config)
	}
	if snap.LocationStats != nil {
		s.aggregates = index(maps.Values(snap.LocationStats))
	}
	s.fillMissing()
	s.persist(ctx, KeyLocationStats, s.statsList())

	s.logger.Info("learning store imported",
		"interactions", len(s.events),
		"aggregates", len(s.aggregates),
		"exported_at", snap.ExportedAt)
	return nil
}
