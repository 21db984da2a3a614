package models

import "time"

// InteractionEvent is one observed visitor action at a location.
// Events are append-only; they are only removed by a full store reset.
type InteractionEvent struct {
	ID               string    `json:"id"`
	SiteID           string    `json:"fort_id"`
	LocationID       string    `json:"location_id"`
	VisitorID        string    `json:"user_id"`
	Clicked          bool      `json:"clicked"`
	Skipped          bool      `json:"skipped"`
	TimeSpentMinutes float64   `json:"time_spent_minutes"`
	CreatedAt        time.Time `json:"timestamp"`
}

// LocationAggregate holds rolled-up behaviour for one (site, location) pair.
type LocationAggregate struct {
	SiteID         string    `json:"fort_id"`
	LocationID     string    `json:"location_id"`
	TotalClicks    int       `json:"total_clicks"`
	TotalTimeSpent float64   `json:"total_time_spent"`
	TotalSkips     int       `json:"total_skips"`
	VisitCount     int       `json:"visit_count"`
	AdaptiveScore  float64   `json:"adaptive_score"`
	LastUpdated    time.Time `json:"last_updated"`
}

// AverageTimeSpent returns the mean dwell time per recorded event.
func (a LocationAggregate) AverageTimeSpent() float64 {
	if a.VisitCount == 0 {
		return 0
	}
	return a.TotalTimeSpent / float64(a.VisitCount)
}

// ScoringConfig holds the adaptive scoring weights and the global switch.
type ScoringConfig struct {
	ClickWeight float64 `json:"click_weight"`
	TimeWeight  float64 `json:"time_weight"`
	SkipWeight  float64 `json:"skip_weight"`
	Enabled     bool    `json:"enabled"`
}

// DefaultScoringConfig returns the weights used before any update.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ClickWeight: 2,
		TimeWeight:  1.5,
		SkipWeight:  3,
		Enabled:     true,
	}
}

// ScoringConfigUpdate is a partial scoring config; nil fields are left unchanged.
type ScoringConfigUpdate struct {
	ClickWeight *float64 `json:"click_weight,omitempty" validate:"omitempty,gte=0"`
	TimeWeight  *float64 `json:"time_weight,omitempty" validate:"omitempty,gte=0"`
	SkipWeight  *float64 `json:"skip_weight,omitempty" validate:"omitempty,gte=0"`
	Enabled     *bool    `json:"enabled,omitempty"`
}

// Apply merges the update into cfg and returns the result.
func (u ScoringConfigUpdate) Apply(cfg ScoringConfig) ScoringConfig {
	if u.ClickWeight != nil {
		cfg.ClickWeight = *u.ClickWeight
	}
	if u.TimeWeight != nil {
		cfg.TimeWeight = *u.TimeWeight
	}
	if u.SkipWeight != nil {
		cfg.SkipWeight = *u.SkipWeight
	}
	if u.Enabled != nil {
		cfg.Enabled = *u.Enabled
	}
	return cfg
}

// SpotClicks is a location ranked by clicks.
type SpotClicks struct {
	LocationID string `json:"location_id"`
	Clicks     int    `json:"clicks"`
}

// SpotSkips is a location ranked by skips.
type SpotSkips struct {
	LocationID string `json:"location_id"`
	Skips      int    `json:"skips"`
}

// SpotDuration is the average dwell time at a location.
type SpotDuration struct {
	LocationID     string  `json:"location_id"`
	AverageMinutes float64 `json:"avg_duration"`
}

// SiteAnalytics summarizes behaviour observed at one site.
type SiteAnalytics struct {
	TotalVisitors     int            `json:"total_visitors"`
	TotalInteractions int            `json:"total_interactions"`
	PopularSpots      []SpotClicks   `json:"popular_spots"`
	SkippedSpots      []SpotSkips    `json:"skipped_spots"`
	AverageDurations  []SpotDuration `json:"avg_durations"`
}

// StoreSnapshot is the full exported state of a learning store.
type StoreSnapshot struct {
	Interactions  []InteractionEvent           `json:"interactions"`
	LocationStats map[string]LocationAggregate `json:"location_stats"`
	Config        *ScoringConfig               `json:"config,omitempty"`
	ExportedAt    time.Time                    `json:"exported_at"`
}
