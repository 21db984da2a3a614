// Package models defines data structures shared by the fortroute planner,
// learning store, and transports.
package models

// Location is a point of interest inside a site.
// Authored once; never created or destroyed at runtime.
type Location struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Routing attributes
	HistoricalImportance float64 `json:"historicalImportance" yaml:"historicalImportance"` // 0-10, curated
	VisitTime            float64 `json:"visitTime" yaml:"visitTime"`                       // minutes
	EffortLevel          int     `json:"effortLevel" yaml:"effortLevel"`                   // 1-5

	// Presentation hints, ignored by the planner
	Lat          float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng          float64 `json:"lng,omitempty" yaml:"lng,omitempty"`
	CardPosition string  `json:"cardPosition,omitempty" yaml:"cardPosition,omitempty"`
}

// Connection is a walkable link between two locations.
// Traversable in both directions.
type Connection struct {
	From       string  `json:"from" yaml:"from"`
	To         string  `json:"to" yaml:"to"`
	WalkTime   float64 `json:"walkTime" yaml:"walkTime"`     // minutes, >= 0
	Difficulty int     `json:"difficulty" yaml:"difficulty"` // 1-5
}

// SiteDocument is the externally authored description of a site graph.
// Location order matters: it is the order candidates are considered in.
type SiteDocument struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Entry       string       `json:"entry" yaml:"entry"`
	Locations   []Location   `json:"locations" yaml:"locations"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// SiteSummary is the listing view of a site.
type SiteSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Entry         string `json:"entry"`
	LocationCount int    `json:"location_count"`
	EdgeCount     int    `json:"edge_count"`
}
