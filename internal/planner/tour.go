package planner

import (
	"github.com/raphaelgruber/fortroute/internal/graph"
	"github.com/raphaelgruber/fortroute/internal/models"
)

// Node is a location together with the importance the builder should use.
type Node struct {
	models.Location
	Importance float64
}

// Limits bounds a single tour.
type Limits struct {
	TimeLimit float64 // minutes
	MaxEffort int     // ceiling for location effort and edge difficulty
}

// Tour is the output of BuildTour.
type Tour struct {
	Stops       []models.Stop
	Stats       models.PlanStats
	Explanation string
	Excluded    []string // location ids not visited, in authoring order
}

// BuildTour greedily extends a tour from start. At each step every unvisited
// node within the effort ceiling is costed by its constrained shortest path
// from the last stop; nodes that are unreachable or would overrun the time
// limit are skipped, and the strictly highest score wins with ties going to
// the earlier node in nodes. The loop ends when time is used up or no
// candidate fits.
//
// The start node is always the first stop, even if its own visit time exceeds
// the limit.
func BuildTour(site *graph.Site, start Node, nodes []Node, limits Limits, strategy Strategy) Tour {
	feasible := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.EffortLevel <= limits.MaxEffort {
			feasible = append(feasible, n)
		}
	}

	visited := map[string]bool{start.ID: true}
	stops := []models.Stop{{
		LocationID:    start.ID,
		Name:          start.Name,
		EffortLevel:   start.EffortLevel,
		DepartureTime: start.VisitTime,
		Importance:    start.Importance,
	}}
	current := start.ID
	timeUsed := start.VisitTime
	totalImportance := start.Importance

	for timeUsed < limits.TimeLimit {
		var (
			best      *Node
			bestScore = -1.0
			bestPath  graph.PathInfo
		)

		for i := range feasible {
			n := &feasible[i]
			if visited[n.ID] {
				continue
			}
			info, ok := site.ShortestPath(current, n.ID, limits.MaxEffort)
			if !ok {
				continue
			}
			if timeUsed+info.WalkTime+n.VisitTime > limits.TimeLimit {
				continue
			}
			score := strategy.Score(n.Importance, info.WalkTime, n.VisitTime, info.MaxDifficulty)
			if score > bestScore {
				best, bestScore, bestPath = n, score, info
			}
		}

		if best == nil {
			break
		}

		arrival := timeUsed + bestPath.WalkTime
		stops = append(stops, models.Stop{
			LocationID:    best.ID,
			Name:          best.Name,
			WalkTime:      bestPath.WalkTime,
			LegDifficulty: bestPath.MaxDifficulty,
			EffortLevel:   best.EffortLevel,
			ArrivalTime:   arrival,
			DepartureTime: arrival + best.VisitTime,
			Importance:    best.Importance,
		})
		visited[best.ID] = true
		timeUsed = arrival + best.VisitTime
		totalImportance += best.Importance
		current = best.ID
	}

	var excluded []string
	for _, n := range nodes {
		if !visited[n.ID] {
			excluded = append(excluded, n.ID)
		}
	}

	return Tour{
		Stops: stops,
		Stats: models.PlanStats{
			TotalTime:         timeUsed,
			LocationsVisited:  len(stops),
			TotalImportance:   totalImportance,
			AverageImportance: models.Round1(totalImportance / float64(len(stops))),
		},
		Explanation: strategy.explain(len(excluded), timeUsed, limits.TimeLimit),
		Excluded:    excluded,
	}
}
