package httpserver

import (
	"net/http"
)

type dashboardResponse struct {
	TotalPosts    int64          `json:"totalPosts"`
	TotalUsers    int64          `json:"totalUsers"`
	TotalComments int64          `json:"totalComments"`
	RecentPosts   []postResponse `json:"recentPosts"`
	RecentUsers   []userResponse `json:"recentUsers"`
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.Stats.Dashboard(r.Context())
	if err != nil {
		s.logger.Printf("dashboard stats error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load statistics")
		return
	}

	resp := dashboardResponse{
		TotalPosts:    stats.TotalPosts,
		TotalUsers:    stats.TotalUsers,
		TotalComments: stats.TotalComments,
		RecentPosts:   make([]postResponse, 0, len(stats.RecentPosts)),
		RecentUsers:   make([]userResponse, 0, len(stats.RecentUsers)),
	}
	for _, p := range stats.RecentPosts {
		resp.RecentPosts = append(resp.RecentPosts, toPostResponse(p))
	}
	for _, u := range stats.RecentUsers {
		resp.RecentUsers = append(resp.RecentUsers, toUserResponse(u))
	}
	s.respondJSON(w, http.StatusOK, resp)
}
