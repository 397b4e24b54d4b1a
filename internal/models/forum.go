package models

import "time"

// ForumPost is a discussion thread inside a class forum.
type ForumPost struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Pinned    bool      `db:"pinned" json:"pinned"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ForumPostDetail extends a post with the author name and comment count.
type ForumPostDetail struct {
	ForumPost
	AuthorName   *string `db:"author_name" json:"author_name,omitempty"`
	CommentCount int     `db:"comment_count" json:"comment_count"`
}

// ForumComment is a reply attached to a forum post.
type ForumComment struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ForumCommentDetail extends a comment with the author name.
type ForumCommentDetail struct {
	ForumComment
	AuthorName *string `db:"author_name" json:"author_name,omitempty"`
}
