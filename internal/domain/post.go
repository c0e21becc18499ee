package domain

import "time"

// Attachment describes a file uploaded alongside a post.
type Attachment struct {
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
}

// Post represents a blog article.
type Post struct {
	ID          string
	Title       string
	Content     string
	ContentHTML string
	AuthorID    string
	Author      string
	AuthorName  string
	Attachment  *Attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
