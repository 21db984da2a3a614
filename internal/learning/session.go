package learning

import (
	"context"
	"sync"
	"time"

	"github.com/raphaelgruber/fortroute/internal/models"
)

// Session tracks one visitor viewing one location. End records a single
// interaction covering the whole view.
type Session struct {
	store      *Store
	siteID     string
	locationID string
	started    time.Time

	mu      sync.Mutex
	clicked bool
	skipped bool
	ended   bool
}

// StartSession begins timing a view of a location.
func (s *Store) StartSession(siteID, locationID string) *Session {
	return &Session{
		store:      s,
		siteID:     siteID,
		locationID: locationID,
		started:    s.now(),
	}
}

// MarkClicked notes that the visitor opened the location. Ignored after End.
func (ss *Session) MarkClicked() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if !ss.ended {
		ss.clicked = true
	}
}

// MarkSkipped notes that the visitor passed the location over. Ignored after End.
func (ss *Session) MarkSkipped() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if !ss.ended {
		ss.skipped = true
	}
}

// End records the view with its elapsed minutes, rounded to two decimals.
// Only the first call records anything; later calls return false.
func (ss *Session) End(ctx context.Context) (models.LocationAggregate, bool, error) {
	ss.mu.Lock()
	if ss.ended {
		ss.mu.Unlock()
		return models.LocationAggregate{}, false, nil
	}
	ss.ended = true
	ev := models.InteractionEvent{
		SiteID:           ss.siteID,
		LocationID:       ss.locationID,
		Clicked:          ss.clicked,
		Skipped:          ss.skipped,
		TimeSpentMinutes: models.Round2(max(0, ss.store.now().Sub(ss.started).Minutes())),
	}
	ss.mu.Unlock()

	agg, err := ss.store.RecordInteraction(ctx, ev)
	if err != nil {
		return models.LocationAggregate{}, false, err
	}
	return agg, true, nil
}
