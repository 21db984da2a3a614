package models

// Stop is one location in a route plan with its timing.
type Stop struct {
	LocationID    string  `json:"location_id"`
	Name          string  `json:"name"`
	WalkTime      float64 `json:"walk_time"`      // from the previous stop
	LegDifficulty int     `json:"leg_difficulty"` // hardest edge walked to get here
	EffortLevel   int     `json:"effort_level"`
	ArrivalTime   float64 `json:"arrival_time"`
	DepartureTime float64 `json:"departure_time"`
	Importance    float64 `json:"importance"` // value the planner optimized
}

// PlanStats summarizes a route plan.
type PlanStats struct {
	TotalTime         float64 `json:"total_time"`
	LocationsVisited  int     `json:"locations_visited"`
	TotalImportance   float64 `json:"total_importance"`
	AverageImportance float64 `json:"average_importance"`
}

// RoutePlan is an ordered visit plan produced for one strategy.
// Plans are computed per request and never persisted.
type RoutePlan struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Strategy      string    `json:"strategy"`
	Stops         []Stop    `json:"stops"`
	Stats         PlanStats `json:"stats"`
	Explanation   string    `json:"explanation"`
	EstimatedTime string    `json:"estimated_time"`
	Disabled      bool      `json:"disabled"`
	StatusText    string    `json:"status_text,omitempty"`
	Tradeoff      string    `json:"tradeoff"`
	IsAdaptive    bool      `json:"is_adaptive"`
}

// LocationIDs returns the stop sequence as location ids.
func (p RoutePlan) LocationIDs() []string {
	ids := make([]string, len(p.Stops))
	for i, s := range p.Stops {
		ids[i] = s.LocationID
	}
	return ids
}

// PlanResult is the primary plan plus distinct alternatives.
type PlanResult struct {
	SiteID       string      `json:"site_id"`
	Primary      RoutePlan   `json:"primary"`
	Alternatives []RoutePlan `json:"alternatives"`
	IsAdaptive   bool        `json:"is_adaptive"`
}
