package domain

import "time"

// Comment is a reader's reply attached to a post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	Author     string    `json:"author"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
}
