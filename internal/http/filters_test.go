package httpserver

import (
	"net/url"
	"testing"
)

func TestBuildPostFilters(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{name: "empty", query: ""},
		{name: "search and author", query: "q=+leg+&authorId=u1&limit=5"},
		{name: "negative limit", query: "limit=-1", wantErr: true},
		{name: "non numeric limit", query: "limit=ten", wantErr: true},
		{name: "garbage cursor", query: "cursor=%25%25", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			filters, err := buildPostFilters(values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.name == "search and author" {
				if filters.Query == nil || *filters.Query != "leg" {
					t.Fatalf("query = %v", filters.Query)
				}
				if filters.AuthorID == nil || *filters.AuthorID != "u1" || filters.Limit != 5 {
					t.Fatalf("filters = %+v", filters)
				}
			}
		})
	}
}

func TestBuildGymQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantErr    bool
		wantOrigin bool
		wantType   string
		wantRadius float64
	}{
		{name: "empty", query: ""},
		{name: "all types", query: "type=all"},
		{name: "type is lowered", query: "type=Yoga", wantType: "yoga"},
		{name: "origin", query: "lat=51.5&lng=-0.12", wantOrigin: true},
		{name: "origin with radius", query: "lat=51.5&lng=-0.12&radiusKm=2.5", wantOrigin: true, wantRadius: 2.5},
		{name: "lat without lng", query: "lat=51.5", wantErr: true},
		{name: "bad lng", query: "lat=1&lng=east", wantErr: true},
		{name: "lat out of range", query: "lat=91&lng=0", wantErr: true},
		{name: "radius without origin", query: "radiusKm=3", wantErr: true},
		{name: "zero radius", query: "lat=1&lng=1&radiusKm=0", wantErr: true},
		{name: "nan radius", query: "lat=1&lng=1&radiusKm=NaN", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			q, err := buildGymQuery(values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (q.Origin != nil) != tt.wantOrigin {
				t.Fatalf("origin = %v, want present=%v", q.Origin, tt.wantOrigin)
			}
			gotType := ""
			if q.Filters.Type != nil {
				gotType = *q.Filters.Type
			}
			if gotType != tt.wantType {
				t.Fatalf("type = %q, want %q", gotType, tt.wantType)
			}
			if q.RadiusKm != tt.wantRadius {
				t.Fatalf("radius = %v, want %v", q.RadiusKm, tt.wantRadius)
			}
		})
	}
}

func FuzzBuildGymQuery(f *testing.F) {
	f.Add("lat=51.5&lng=-0.12&radiusKm=5")
	f.Add("type=gym&q=iron")
	f.Add("lat=1e309&lng=0")
	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		q, err := buildGymQuery(values)
		if err != nil {
			return
		}
		if q.Origin != nil && (q.Origin.Lat < -90 || q.Origin.Lat > 90 || q.Origin.Lng < -180 || q.Origin.Lng > 180) {
			t.Fatalf("accepted out of range origin %+v", q.Origin)
		}
		if q.RadiusKm < 0 {
			t.Fatalf("accepted negative radius %v", q.RadiusKm)
		}
	})
}

func FuzzBuildPostFilters(f *testing.F) {
	f.Add("q=leg&limit=10")
	f.Add("cursor=eyJ9")
	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		filters, err := buildPostFilters(values)
		if err == nil && filters.Limit < 0 {
			t.Fatalf("accepted negative limit %d", filters.Limit)
		}
	})
}
