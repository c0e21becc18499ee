package domain

import "time"

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Gym is a venue shown on the gym map.
type Gym struct {
	ID           string
	Name         string
	Type         string
	Address      string
	Location     Location
	Rating       *float64
	ReviewsCount int
	CreatedAt    time.Time
}
