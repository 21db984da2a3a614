// Package graph provides the validated site graph and constrained
// shortest-path search used by the route planner.
package graph

import (
	"errors"
	"fmt"

	"github.com/raphaelgruber/fortroute/internal/models"
)

// ErrMalformedGraph indicates a site document that cannot be planned over:
// missing entry, dangling edge reference, duplicate ids, or out-of-range attributes.
var ErrMalformedGraph = errors.New("malformed site graph")

// Attribute bounds for authored documents.
const (
	MinEffort     = 1
	MaxEffort     = 5
	MaxImportance = 10
)

// arc is one traversal direction of a connection.
type arc struct {
	to         string
	walkTime   float64
	difficulty int
}

// Site is an immutable, validated site graph.
type Site struct {
	id        string
	name      string
	entry     string
	locations []models.Location
	index     map[string]int
	adjacency map[string][]arc
	edges     []models.Connection
}

// New validates doc and builds its adjacency. Every connection is inserted in
// both directions, in authoring order.
func New(doc models.SiteDocument) (*Site, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: site id is empty", ErrMalformedGraph)
	}

	s := &Site{
		id:        doc.ID,
		name:      doc.Name,
		entry:     doc.Entry,
		locations: make([]models.Location, 0, len(doc.Locations)),
		index:     make(map[string]int, len(doc.Locations)),
		adjacency: make(map[string][]arc, len(doc.Locations)),
		edges:     make([]models.Connection, 0, len(doc.Connections)),
	}

	for _, loc := range doc.Locations {
		if err := validateLocation(loc); err != nil {
			return nil, fmt.Errorf("%w: site %s: %v", ErrMalformedGraph, doc.ID, err)
		}
		if _, dup := s.index[loc.ID]; dup {
			return nil, fmt.Errorf("%w: site %s: duplicate location %q", ErrMalformedGraph, doc.ID, loc.ID)
		}
		s.index[loc.ID] = len(s.locations)
		s.locations = append(s.locations, loc)
	}

	if doc.Entry == "" {
		return nil, fmt.Errorf("%w: site %s: no entry location", ErrMalformedGraph, doc.ID)
	}
	if _, ok := s.index[doc.Entry]; !ok {
		return nil, fmt.Errorf("%w: site %s: entry %q is not a location", ErrMalformedGraph, doc.ID, doc.Entry)
	}

	for i, c := range doc.Connections {
		if _, ok := s.index[c.From]; !ok {
			return nil, fmt.Errorf("%w: site %s: connection %d references unknown location %q", ErrMalformedGraph, doc.ID, i, c.From)
		}
		if _, ok := s.index[c.To]; !ok {
			return nil, fmt.Errorf("%w: site %s: connection %d references unknown location %q", ErrMalformedGraph, doc.ID, i, c.To)
		}
		if c.WalkTime < 0 {
			return nil, fmt.Errorf("%w: site %s: connection %s-%s has negative walk time", ErrMalformedGraph, doc.ID, c.From, c.To)
		}
		if c.Difficulty < MinEffort || c.Difficulty > MaxEffort {
			return nil, fmt.Errorf("%w: site %s: connection %s-%s difficulty %d outside %d-%d",
				ErrMalformedGraph, doc.ID, c.From, c.To, c.Difficulty, MinEffort, MaxEffort)
		}
		s.adjacency[c.From] = append(s.adjacency[c.From], arc{to: c.To, walkTime: c.WalkTime, difficulty: c.Difficulty})
		s.adjacency[c.To] = append(s.adjacency[c.To], arc{to: c.From, walkTime: c.WalkTime, difficulty: c.Difficulty})
		s.edges = append(s.edges, c)
	}

	return s, nil
}

func validateLocation(loc models.Location) error {
	switch {
	case loc.ID == "":
		return errors.New("location with empty id")
	case loc.HistoricalImportance < 0 || loc.HistoricalImportance > MaxImportance:
		return fmt.Errorf("location %q importance %v outside 0-%d", loc.ID, loc.HistoricalImportance, MaxImportance)
	case loc.VisitTime < 0:
		return fmt.Errorf("location %q has negative visit time", loc.ID)
	case loc.EffortLevel < MinEffort || loc.EffortLevel > MaxEffort:
		return fmt.Errorf("location %q effort %d outside %d-%d", loc.ID, loc.EffortLevel, MinEffort, MaxEffort)
	}
	return nil
}

// ID returns the site identifier.
func (s *Site) ID() string { return s.id }

// Name returns the display name.
func (s *Site) Name() string { return s.name }

// Entry returns the id of the mandatory starting location.
func (s *Site) Entry() string { return s.entry }

// Locations returns a copy of the locations in authoring order.
func (s *Site) Locations() []models.Location {
	out := make([]models.Location, len(s.locations))
	copy(out, s.locations)
	return out
}

// Location looks up a location by id.
func (s *Site) Location(id string) (models.Location, bool) {
	i, ok := s.index[id]
	if !ok {
		return models.Location{}, false
	}
	return s.locations[i], true
}

// Connections returns a copy of the authored connections.
func (s *Site) Connections() []models.Connection {
	out := make([]models.Connection, len(s.edges))
	copy(out, s.edges)
	return out
}

// Document rebuilds the authoring document for this site.
func (s *Site) Document() models.SiteDocument {
	return models.SiteDocument{
		ID:          s.id,
		Name:        s.name,
		Entry:       s.entry,
		Locations:   s.Locations(),
		Connections: s.Connections(),
	}
}

// Summary returns the listing view of the site.
func (s *Site) Summary() models.SiteSummary {
	return models.SiteSummary{
		ID:            s.id,
		Name:          s.name,
		Entry:         s.entry,
		LocationCount: len(s.locations),
		EdgeCount:     len(s.edges),
	}
}
