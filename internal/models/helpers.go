package models

import "math"

// AggregateKey returns the key of a (site, location) aggregate in an export
// snapshot. It is not unique when ids contain '_'; the aggregate's own ids
// are authoritative.
func AggregateKey(siteID, locationID string) string {
	return siteID + "_" + locationID
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
