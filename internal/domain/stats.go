package domain

// DashboardStats summarises site activity for administrators.
type DashboardStats struct {
	TotalPosts    int64
	TotalUsers    int64
	TotalComments int64
	RecentPosts   []Post
	RecentUsers   []User
}
