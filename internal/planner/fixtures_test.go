package planner

import (
	"testing"

	"github.com/raphaelgruber/fortroute/internal/graph"
	"github.com/raphaelgruber/fortroute/internal/models"
)

func fortSite(t *testing.T) *graph.Site {
	t.Helper()
	s, err := graph.New(models.SiteDocument{
		ID:    "shivneri",
		Name:  "Shivneri Fort",
		Entry: "mainGate",
		Locations: []models.Location{
			{ID: "mainGate", Name: "Maha Darwaja", HistoricalImportance: 6, VisitTime: 10, EffortLevel: 1},
			{ID: "shivJanmabhoomi", Name: "Shiv Janmabhoomi", HistoricalImportance: 10, VisitTime: 30, EffortLevel: 2},
			{ID: "ammunitionStorage", Name: "Ambarkhana", HistoricalImportance: 7, VisitTime: 15, EffortLevel: 3},
			{ID: "templeArea", Name: "Shivai Devi Temple", HistoricalImportance: 8, VisitTime: 20, EffortLevel: 2},
			{ID: "viewpoint", Name: "Kadelot", HistoricalImportance: 5, VisitTime: 15, EffortLevel: 4},
		},
		Connections: []models.Connection{
			{From: "mainGate", To: "shivJanmabhoomi", WalkTime: 12, Difficulty: 2},
			{From: "shivJanmabhoomi", To: "ammunitionStorage", WalkTime: 18, Difficulty: 3},
			{From: "ammunitionStorage", To: "templeArea", WalkTime: 10, Difficulty: 2},
			{From: "templeArea", To: "viewpoint", WalkTime: 15, Difficulty: 4},
			{From: "mainGate", To: "templeArea", WalkTime: 25, Difficulty: 3},
			{From: "shivJanmabhoomi", To: "viewpoint", WalkTime: 30, Difficulty: 4},
		},
	})
	if err != nil {
		t.Fatalf("fixture rejected: %v", err)
	}
	return s
}

// staticNodes returns the site's locations with their curated importance.
func staticNodes(s *graph.Site) (Node, []Node) {
	var start Node
	locs := s.Locations()
	nodes := make([]Node, len(locs))
	for i, loc := range locs {
		nodes[i] = Node{Location: loc, Importance: loc.HistoricalImportance}
		if loc.ID == s.Entry() {
			start = nodes[i]
		}
	}
	return start, nodes
}

func ids(stops []models.Stop) []string {
	out := make([]string, len(stops))
	for i, s := range stops {
		out[i] = s.LocationID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
