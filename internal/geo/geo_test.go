package geo

import (
	"math"
	"testing"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

func TestDistanceKm(t *testing.T) {
	london := domain.Location{Lat: 51.5074, Lng: -0.1278}
	paris := domain.Location{Lat: 48.8566, Lng: 2.3522}

	tests := []struct {
		name string
		a, b domain.Location
		want float64
		tol  float64
	}{
		{"same point", london, london, 0, 1e-9},
		{"london paris", london, paris, 343.5, 2},
		{"symmetric", paris, london, 343.5, 2},
		{"quarter meridian", domain.Location{}, domain.Location{Lat: 90}, math.Pi / 2 * earthRadiusKm, 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Fatalf("DistanceKm = %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}
}

func TestNearby(t *testing.T) {
	origin := domain.Location{Lat: 0, Lng: 0}
	gyms := []domain.Gym{
		{ID: "far", Location: domain.Location{Lat: 1, Lng: 0}},
		{ID: "near", Location: domain.Location{Lat: 0.01, Lng: 0}},
		{ID: "mid", Location: domain.Location{Lat: 0.1, Lng: 0}},
	}

	ranked := Nearby(gyms, origin, 20)
	if len(ranked) != 2 {
		t.Fatalf("len = %d, want 2", len(ranked))
	}
	if ranked[0].Gym.ID != "near" || ranked[1].Gym.ID != "mid" {
		t.Fatalf("order = %s, %s", ranked[0].Gym.ID, ranked[1].Gym.ID)
	}

	all := Nearby(gyms, origin, 0)
	if len(all) != 3 || all[2].Gym.ID != "far" {
		t.Fatalf("unbounded radius = %+v", all)
	}
}

func TestValidLocation(t *testing.T) {
	cases := map[domain.Location]bool{
		{Lat: 0, Lng: 0}:      true,
		{Lat: 90, Lng: 180}:   true,
		{Lat: 91, Lng: 0}:     false,
		{Lat: 0, Lng: -180.5}: false,
	}
	for loc, want := range cases {
		if got := ValidLocation(loc); got != want {
			t.Errorf("ValidLocation(%+v) = %v, want %v", loc, got, want)
		}
	}
	if ValidLocation(domain.Location{Lat: math.NaN()}) {
		t.Errorf("NaN latitude accepted")
	}
}
