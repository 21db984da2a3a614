// Package planner builds visit plans over a site graph: one greedy tour per
// strategy variant, post-processed into a primary plan and alternatives.
package planner

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/raphaelgruber/fortroute/internal/graph"
	"github.com/raphaelgruber/fortroute/internal/models"
)

// ErrInvalidRequest indicates unusable planning input.
var ErrInvalidRequest = errors.New("invalid plan request")

// EnergyLevel is the visitor's self-reported stamina.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// Ceiling returns the effort ceiling for the level. Unknown levels get the
// medium ceiling.
func (e EnergyLevel) Ceiling() int {
	switch EnergyLevel(strings.ToLower(string(e))) {
	case EnergyLow:
		return 2
	case EnergyHigh:
		return graph.MaxEffort
	default:
		return 3
	}
}

// Plan variant ids, in declaration order.
const (
	PlanBalanced = "balanced"
	PlanExpress  = "express"
	PlanExtended = "extended"
	PlanLeisure  = "leisure"
)

// ImportanceSource supplies learned importance for locations.
type ImportanceSource interface {
	BlendedImportance(siteID, locationID string, static float64) float64
	AdaptiveEnabled() bool
}

// Request is one planning call.
type Request struct {
	TimeAvailable float64
	Energy        EnergyLevel
	UseAdaptive   bool
}

// Planner runs every plan variant for a request.
type Planner struct {
	source ImportanceSource
}

// New creates a planner. source may be nil, in which case plans always use
// static importance.
func New(source ImportanceSource) *Planner {
	return &Planner{source: source}
}

type variant struct {
	id          string
	name        string
	description string
	strategy    Strategy
	limits      Limits
}

func variants(available float64, ceiling int, adaptive bool) []variant {
	balancedDesc := "Optimal mix of historical value and time"
	expressDesc := "Top-tier sites, minimal movement"
	if adaptive {
		balancedDesc = "Optimized using visitor behavior patterns"
		expressDesc = "Most popular spots visited by others"
	}

	return []variant{
		{PlanBalanced, "Balanced Plan", balancedDesc, Balanced, Limits{TimeLimit: available, MaxEffort: ceiling}},
		{PlanExpress, "Express Highlights", expressDesc, Importance, Limits{TimeLimit: math.Min(available, 45), MaxEffort: ceiling}},
		{PlanExtended, "Extended Heritage", "Full coverage of all sectors", Coverage, Limits{TimeLimit: 240, MaxEffort: graph.MaxEffort}},
		{PlanLeisure, "Leisurely Walk", "Easy terrain, scenic viewpoints", Leisure, Limits{TimeLimit: available * 1.2, MaxEffort: 2}},
	}
}

// Plan builds the primary plan and its distinct alternatives for site.
// Every well-formed site yields at least the entry-only plan.
func (p *Planner) Plan(site *graph.Site, req Request) (models.PlanResult, error) {
	if site == nil {
		return models.PlanResult{}, fmt.Errorf("%w: no site", ErrInvalidRequest)
	}
	if req.TimeAvailable < 0 || math.IsNaN(req.TimeAvailable) || math.IsInf(req.TimeAvailable, 0) {
		return models.PlanResult{}, fmt.Errorf("%w: time available %v", ErrInvalidRequest, req.TimeAvailable)
	}

	adaptive := req.UseAdaptive && p.source != nil && p.source.AdaptiveEnabled()
	nodes := p.nodes(site, adaptive)

	var start Node
	for _, n := range nodes {
		if n.ID == site.Entry() {
			start = n
			break
		}
	}

	ceiling := req.Energy.Ceiling()
	seen := make(map[string]bool)
	var plans []models.RoutePlan

	for _, v := range variants(req.TimeAvailable, ceiling, adaptive) {
		tour := BuildTour(site, start, nodes, v.limits, v.strategy)
		plan := models.RoutePlan{
			ID:            v.id,
			Name:          v.name,
			Description:   v.description,
			Strategy:      v.strategy.String(),
			Stops:         tour.Stops,
			Stats:         tour.Stats,
			Explanation:   tour.Explanation,
			EstimatedTime: formatMinutes(tour.Stats.TotalTime) + " min",
			Disabled:      v.limits.MaxEffort > ceiling && exceedsCeiling(tour.Stops, ceiling),
			Tradeoff:      tradeoff(v.id, tour.Stats.TotalTime, req.TimeAvailable),
			IsAdaptive:    adaptive,
		}
		switch {
		case plan.Disabled:
			plan.StatusText = "Requires High Energy"
		case tour.Stats.TotalTime > req.TimeAvailable:
			plan.StatusText = "Requires +" + formatMinutes(tour.Stats.TotalTime-req.TimeAvailable) + " min"
		}

		key := strings.Join(plan.LocationIDs(), ",")
		if seen[key] {
			continue
		}
		seen[key] = true
		plans = append(plans, plan)
	}

	return models.PlanResult{
		SiteID:       site.ID(),
		Primary:      plans[0],
		Alternatives: plans[1:],
		IsAdaptive:   adaptive,
	}, nil
}

func (p *Planner) nodes(site *graph.Site, adaptive bool) []Node {
	locs := site.Locations()
	nodes := make([]Node, len(locs))
	for i, loc := range locs {
		imp := loc.HistoricalImportance
		if adaptive {
			imp = p.source.BlendedImportance(site.ID(), loc.ID, imp)
		}
		nodes[i] = Node{Location: loc, Importance: imp}
	}
	return nodes
}

// exceedsCeiling reports whether a plan visits a location, or walks a leg,
// harder than ceiling.
func exceedsCeiling(stops []models.Stop, ceiling int) bool {
	for _, s := range stops {
		if s.EffortLevel > ceiling || s.LegDifficulty > ceiling {
			return true
		}
	}
	return false
}

func tradeoff(id string, total, budget float64) string {
	switch id {
	case PlanExpress:
		return "Fewer stops, significant time saved."
	case PlanExtended:
		if diff := total - budget; diff > 0 {
			return "Unlocks all sectors; adds " + formatMinutes(diff) + " min walking."
		}
		return "Maximum coverage within your time."
	case PlanLeisure:
		return "Easier terrain, slightly fewer locations."
	default:
		return "Balanced distribution of sites."
	}
}

func formatMinutes(m float64) string {
	return strconv.FormatFloat(models.Round1(m), 'f', -1, 64)
}
