// Package geo holds the great-circle helpers behind the gym locator.
package geo

import (
	"math"
	"sort"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between a and b in kilometres.
func DistanceKm(a, b domain.Location) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ValidLocation reports whether loc is a usable coordinate.
func ValidLocation(loc domain.Location) bool {
	return loc.Lat >= -90 && loc.Lat <= 90 && loc.Lng >= -180 && loc.Lng <= 180 &&
		!math.IsNaN(loc.Lat) && !math.IsNaN(loc.Lng)
}

// Ranked pairs a gym with its distance from the search origin.
type Ranked struct {
	Gym        domain.Gym
	DistanceKm float64
}

// Nearby returns the gyms within radiusKm of origin, closest first.
// A radius of zero or less keeps every gym.
func Nearby(gyms []domain.Gym, origin domain.Location, radiusKm float64) []Ranked {
	out := make([]Ranked, 0, len(gyms))
	for _, g := range gyms {
		d := DistanceKm(origin, g.Location)
		if radiusKm > 0 && d > radiusKm {
			continue
		}
		out = append(out, Ranked{Gym: g, DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
