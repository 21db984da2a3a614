package learning

import (
	"cmp"
	"slices"

	"github.com/raphaelgruber/fortroute/internal/models"
)

const topSpots = 3

// Analytics summarizes behaviour at a site. It returns nil when nothing has
// been recorded there yet.
func (s *Store) Analytics(siteID string) *models.SiteAnalytics {
	aggs := s.AggregatesForSite(siteID)
	if len(aggs) == 0 {
		return nil
	}
	events := s.Interactions(siteID)

	visitors := make(map[string]struct{})
	for _, ev := range events {
		visitors[ev.VisitorID] = struct{}{}
	}

	byClicks := slices.Clone(aggs)
	slices.SortStableFunc(byClicks, func(a, b models.LocationAggregate) int {
		return cmp.Compare(b.TotalClicks, a.TotalClicks)
	})
	popular := make([]models.SpotClicks, 0, topSpots)
	for _, a := range byClicks[:min(topSpots, len(byClicks))] {
		popular = append(popular, models.SpotClicks{LocationID: a.LocationID, Clicks: a.TotalClicks})
	}

	var skipped []models.LocationAggregate
	for _, a := range aggs {
		if a.TotalSkips > 0 {
			skipped = append(skipped, a)
		}
	}
	slices.SortStableFunc(skipped, func(a, b models.LocationAggregate) int {
		return cmp.Compare(b.TotalSkips, a.TotalSkips)
	})
	skippedSpots := make([]models.SpotSkips, 0, topSpots)
	for _, a := range skipped[:min(topSpots, len(skipped))] {
		skippedSpots = append(skippedSpots, models.SpotSkips{LocationID: a.LocationID, Skips: a.TotalSkips})
	}

	durations := make([]models.SpotDuration, len(aggs))
	for i, a := range aggs {
		durations[i] = models.SpotDuration{LocationID: a.LocationID, AverageMinutes: models.Round1(a.AverageTimeSpent())}
	}

	return &models.SiteAnalytics{
		TotalVisitors:     len(visitors),
		TotalInteractions: len(events),
		PopularSpots:      popular,
		SkippedSpots:      skippedSpots,
		AverageDurations:  durations,
	}
}
