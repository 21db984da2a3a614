package planner

import (
	"fmt"
	"math"
	"strings"
)

// Strategy selects how the tour builder scores the next candidate stop.
type Strategy int

const (
	Balanced Strategy = iota
	Importance
	Coverage
	Leisure
)

var strategyNames = [...]string{
	Balanced:   "balanced",
	Importance: "importance",
	Coverage:   "coverage",
	Leisure:    "leisure",
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// ParseStrategy maps a strategy name to its variant.
func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if strings.EqualFold(name, n) {
			return Strategy(i), nil
		}
	}
	return Balanced, fmt.Errorf("%w: unknown strategy %q", ErrInvalidRequest, name)
}

// Score rates moving to a candidate that costs walk minutes of walking, with
// the hardest edge on the way at maxDifficulty, and visit minutes on site.
// Higher is better.
func (s Strategy) Score(importance, walk, visit float64, maxDifficulty int) float64 {
	cost := walk + visit
	switch s {
	case Importance:
		return math.Pow(importance, 3) / (cost + 10)
	case Coverage:
		return 1000 / (cost + 1)
	case Leisure:
		return importance / (walk*3 + float64(maxDifficulty)*5 + 1)
	default:
		return importance / cost
	}
}

// explain describes why locations were left out of a tour.
func (s Strategy) explain(excluded int, used, limit float64) string {
	if excluded == 0 {
		return "Included all accessible locations in this route."
	}
	switch s {
	case Importance:
		return "Skipping secondary spots to focus exclusively on top-rated landmarks."
	case Leisure:
		return "Avoiding steep sectors and difficult terrain for a relaxed experience."
	case Coverage:
		return "Optimized to visit the maximum number of locations across the fort."
	}
	if used >= limit*0.85 {
		return fmt.Sprintf("Excluding %d secondary spots to strictly respect time constraints.", excluded)
	}
	return "Prioritizing high-importance sites for the best experience."
}
