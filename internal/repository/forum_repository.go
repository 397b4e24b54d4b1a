package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classboard/classboard-api/internal/models"
)

// ForumRepository manages persistence for class forum posts and comments.
type ForumRepository struct {
	db *sqlx.DB
}

// NewForumRepository constructs a new forum repository.
func NewForumRepository(db *sqlx.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

// ListPostsByClass returns forum posts for a class, pinned first then newest.
func (r *ForumRepository) ListPostsByClass(ctx context.Context, classID string) ([]models.ForumPostDetail, error) {
	const query = `SELECT p.id, p.class_id, p.author_id, p.title, p.body, p.pinned, p.created_at, p.updated_at, u.full_name AS author_name, (SELECT COUNT(*) FROM class_forum_comments c WHERE c.post_id = p.id) AS comment_count FROM class_forum_posts p LEFT JOIN users u ON u.id = p.author_id WHERE p.class_id = $1 ORDER BY p.pinned DESC, p.created_at DESC`
	var posts []models.ForumPostDetail
	if err := r.db.SelectContext(ctx, &posts, query, classID); err != nil {
		return nil, fmt.Errorf("list forum posts: %w", err)
	}
	return posts, nil
}

// FindPostByID returns a post record by ID.
func (r *ForumRepository) FindPostByID(ctx context.Context, id string) (*models.ForumPost, error) {
	const query = `SELECT id, class_id, author_id, title, body, pinned, created_at, updated_at FROM class_forum_posts WHERE id = $1`
	var post models.ForumPost
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost persists a forum post.
func (r *ForumRepository) CreatePost(ctx context.Context, post *models.ForumPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	const query = `INSERT INTO class_forum_posts (id, class_id, author_id, title, body, pinned, created_at, updated_at) VALUES (:id, :class_id, :author_id, :title, :body, :pinned, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create forum post: %w", err)
	}
	return nil
}

// UpdatePost modifies a forum post.
func (r *ForumRepository) UpdatePost(ctx context.Context, post *models.ForumPost) error {
	post.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_forum_posts SET title = :title, body = :body, pinned = :pinned, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("update forum post: %w", err)
	}
	return nil
}

// DeletePost removes a forum post and its comments.
func (r *ForumRepository) DeletePost(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_forum_comments WHERE post_id = $1`, id); err != nil {
		return fmt.Errorf("delete forum comments: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_forum_posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete forum post: %w", err)
	}
	return nil
}

// ListCommentsByPost returns comments for a post, oldest first.
func (r *ForumRepository) ListCommentsByPost(ctx context.Context, postID string) ([]models.ForumCommentDetail, error) {
	const query = `SELECT c.id, c.post_id, c.author_id, c.body, c.created_at, u.full_name AS author_name FROM class_forum_comments c LEFT JOIN users u ON u.id = c.author_id WHERE c.post_id = $1 ORDER BY c.created_at ASC`
	var comments []models.ForumCommentDetail
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("list forum comments: %w", err)
	}
	return comments, nil
}

// CreateComment persists a comment on a post.
func (r *ForumRepository) CreateComment(ctx context.Context, comment *models.ForumComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO class_forum_comments (id, post_id, author_id, body, created_at) VALUES (:id, :post_id, :author_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create forum comment: %w", err)
	}
	return nil
}

// DeleteComment removes a comment.
func (r *ForumRepository) DeleteComment(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_forum_comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete forum comment: %w", err)
	}
	return nil
}
