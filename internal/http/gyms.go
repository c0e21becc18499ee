package httpserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/geo"
	"github.com/Clark-Hu/gymblog/internal/places"
	"github.com/Clark-Hu/gymblog/internal/repository"
)

var gymTypes = map[string]struct{}{
	"gym": {}, "fitness": {}, "yoga": {}, "swimming": {}, "crossfit": {}, "climbing": {}, "martial_arts": {},
}

type gymQuery struct {
	Filters  repository.GymListFilters
	Origin   *domain.Location
	RadiusKm float64
}

type gymCreateRequest struct {
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	Address  string           `json:"address"`
	Location *domain.Location `json:"location"`
}

type gymResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Address      string          `json:"address"`
	Location     domain.Location `json:"location"`
	Rating       *float64        `json:"rating,omitempty"`
	ReviewsCount int             `json:"reviewsCount"`
	DistanceKm   *float64        `json:"distanceKm,omitempty"`
}

type gymListResponse struct {
	Items []gymResponse `json:"items"`
}

func (s *Server) handleListGyms(w http.ResponseWriter, r *http.Request) {
	query, err := buildGymQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	gyms, err := s.repo.Gyms.List(r.Context(), query.Filters)
	if err != nil {
		s.logger.Printf("list gyms error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list gyms")
		return
	}

	items := make([]gymResponse, 0, len(gyms))
	if query.Origin == nil {
		for _, g := range gyms {
			items = append(items, toGymResponse(g))
		}
	} else {
		for _, ranked := range geo.Nearby(gyms, *query.Origin, query.RadiusKm) {
			resp := toGymResponse(ranked.Gym)
			d := math.Round(ranked.DistanceKm*100) / 100
			resp.DistanceKm = &d
			items = append(items, resp)
		}
	}
	s.respondJSON(w, http.StatusOK, gymListResponse{Items: items})
}

func buildGymQuery(values url.Values) (gymQuery, error) {
	var q gymQuery

	if val := strings.TrimSpace(values.Get("q")); val != "" {
		q.Filters.Query = &val
	}
	if val := strings.ToLower(strings.TrimSpace(values.Get("type"))); val != "" && val != "all" {
		q.Filters.Type = &val
	}

	latRaw := strings.TrimSpace(values.Get("lat"))
	lngRaw := strings.TrimSpace(values.Get("lng"))
	if (latRaw == "") != (lngRaw == "") {
		return q, fmt.Errorf("lat and lng must be provided together")
	}
	if latRaw != "" {
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return q, fmt.Errorf("invalid lat value")
		}
		lng, err := strconv.ParseFloat(lngRaw, 64)
		if err != nil {
			return q, fmt.Errorf("invalid lng value")
		}
		origin := domain.Location{Lat: lat, Lng: lng}
		if !geo.ValidLocation(origin) {
			return q, fmt.Errorf("location out of range")
		}
		q.Origin = &origin
	}

	if val := strings.TrimSpace(values.Get("radiusKm")); val != "" {
		if q.Origin == nil {
			return q, fmt.Errorf("radiusKm requires lat and lng")
		}
		radius, err := strconv.ParseFloat(val, 64)
		if err != nil || radius <= 0 || math.IsInf(radius, 0) || math.IsNaN(radius) {
			return q, fmt.Errorf("invalid radiusKm value")
		}
		q.RadiusKm = radius
	}
	return q, nil
}

func (s *Server) handleCreateGym(w http.ResponseWriter, r *http.Request) {
	var req gymCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	gymType := strings.ToLower(strings.TrimSpace(req.Type))
	if name == "" || gymType == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name and type are required")
		return
	}
	if _, ok := gymTypes[gymType]; !ok {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown gym type")
		return
	}

	params := repository.GymCreateParams{
		Name:     name,
		Type:     gymType,
		Address:  strings.TrimSpace(req.Address),
		Location: domain.Location{},
	}
	haveLocation := req.Location != nil
	if haveLocation {
		if !geo.ValidLocation(*req.Location) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "location out of range")
			return
		}
		params.Location = *req.Location
	}

	if result := s.lookupPlace(r.Context(), name); result != nil {
		if params.Address == "" && result.Address != nil {
			params.Address = *result.Address
		}
		if !haveLocation && result.Location != nil && geo.ValidLocation(*result.Location) {
			params.Location = *result.Location
			haveLocation = true
		}
		params.Rating = result.Rating
		params.ReviewsCount = result.ReviewsCount
	}
	if !haveLocation {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "location is required")
		return
	}

	gym, err := s.repo.Gyms.Create(r.Context(), params)
	if err != nil {
		s.logger.Printf("create gym error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create gym")
		return
	}
	w.Header().Set("Location", "/gyms/"+url.PathEscape(gym.ID))
	s.respondJSON(w, http.StatusCreated, toGymResponse(gym))
}

// lookupPlace asks the upstream places API about name. Failures only cost the
// enrichment and are logged.
func (s *Server) lookupPlace(ctx context.Context, name string) *places.Result {
	if s.places == nil {
		return nil
	}
	timeout := time.Duration(s.cfg.PlacesTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := s.places.Lookup(ctx, name)
	if err != nil {
		if !errors.Is(err, places.ErrNotFound) {
			s.logger.Printf("places lookup failed for %s: %v", name, err)
		}
		return nil
	}
	return result
}

func (s *Server) handleGetGym(w http.ResponseWriter, r *http.Request) {
	gymID, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	gym, err := s.repo.Gyms.Get(r.Context(), gymID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.logger.Printf("fetch gym error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch gym")
		return
	}
	s.respondJSON(w, http.StatusOK, toGymResponse(gym))
}

func toGymResponse(g domain.Gym) gymResponse {
	return gymResponse{
		ID:           g.ID,
		Name:         g.Name,
		Type:         g.Type,
		Address:      g.Address,
		Location:     g.Location,
		Rating:       g.Rating,
		ReviewsCount: g.ReviewsCount,
	}
}
