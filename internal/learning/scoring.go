package learning

import "github.com/raphaelgruber/fortroute/internal/models"

// Blend weights. Curated importance dominates; behaviour shifts the ranking.
const (
	staticShare   = 0.6
	adaptiveShare = 0.4
	maxImportance = 10
)

// AdaptiveScore rates a location from its behaviour aggregate. The result is
// never negative and has no upper bound.
func AdaptiveScore(agg models.LocationAggregate, cfg models.ScoringConfig) float64 {
	score := float64(agg.TotalClicks)*cfg.ClickWeight +
		agg.AverageTimeSpent()*cfg.TimeWeight -
		float64(agg.TotalSkips)*cfg.SkipWeight
	return max(0, score)
}

// Blend mixes curated and learned importance, clamped to [0, 10].
func Blend(static, adaptive float64) float64 {
	return min(maxImportance, max(0, static*staticShare+adaptive*adaptiveShare))
}

// BlendedImportance returns the importance the planner should use for a
// location. With adaptive scoring off, or no recorded behaviour for the
// location, it is static unchanged.
func (s *Store) BlendedImportance(siteID, locationID string, static float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.config.Enabled {
		return static
	}
	agg, ok := s.aggregates[pair{site: siteID, location: locationID}]
	if !ok || agg.VisitCount == 0 {
		return static
	}
	return Blend(static, agg.AdaptiveScore)
}

// AdaptiveEnabled reports the global adaptive switch.
func (s *Store) AdaptiveEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Enabled
}
