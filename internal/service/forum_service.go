package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type forumRepository interface {
	ListPostsByClass(ctx context.Context, classID string) ([]models.ForumPostDetail, error)
	FindPostByID(ctx context.Context, id string) (*models.ForumPost, error)
	CreatePost(ctx context.Context, post *models.ForumPost) error
	UpdatePost(ctx context.Context, post *models.ForumPost) error
	DeletePost(ctx context.Context, id string) error
	ListCommentsByPost(ctx context.Context, postID string) ([]models.ForumCommentDetail, error)
	CreateComment(ctx context.Context, comment *models.ForumComment) error
	DeleteComment(ctx context.Context, id string) error
}

type forumClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateForumPostRequest opens a new thread in a class forum.
type CreateForumPostRequest struct {
	ClassID  string `json:"class_id" validate:"required"`
	AuthorID string `json:"-"`
	Title    string `json:"title" validate:"required"`
	Body     string `json:"body" validate:"required"`
	Pinned   bool   `json:"pinned"`
}

// UpdateForumPostRequest edits a thread.
type UpdateForumPostRequest struct {
	Title  string `json:"title" validate:"required"`
	Body   string `json:"body" validate:"required"`
	Pinned bool   `json:"pinned"`
}

// CreateForumCommentRequest replies to a thread.
type CreateForumCommentRequest struct {
	AuthorID string `json:"-"`
	Body     string `json:"body" validate:"required"`
}

// ForumService manages class forum posts and comments.
type ForumService struct {
	repo      forumRepository
	classes   forumClassReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewForumService constructs ForumService.
func NewForumService(repo forumRepository, classes forumClassReader, validate *validator.Validate, logger *zap.Logger) *ForumService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForumService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// ListPosts returns the threads of a class forum.
func (s *ForumService) ListPosts(ctx context.Context, classID string) ([]models.ForumPostDetail, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	posts, err := s.repo.ListPostsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list forum posts")
	}
	return posts, nil
}

// CreatePost opens a thread in the class forum.
func (s *ForumService) CreatePost(ctx context.Context, req CreateForumPostRequest) (*models.ForumPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	post := &models.ForumPost{
		ClassID:  req.ClassID,
		AuthorID: req.AuthorID,
		Title:    req.Title,
		Body:     req.Body,
		Pinned:   req.Pinned,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	return post, nil
}

// UpdatePost edits a thread. Only the author may edit.
func (s *ForumService) UpdatePost(ctx context.Context, id, requesterID string, req UpdateForumPostRequest) (*models.ForumPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}
	post, err := s.repo.FindPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	if post.AuthorID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can edit a post")
	}

	post.Title = req.Title
	post.Body = req.Body
	post.Pinned = req.Pinned
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update post")
	}
	return post, nil
}

// DeletePost removes a thread and its comments. Only the author may delete.
func (s *ForumService) DeletePost(ctx context.Context, id, requesterID string) error {
	post, err := s.repo.FindPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	if post.AuthorID != requesterID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author can delete a post")
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete post")
	}
	return nil
}

// ListComments returns the replies on a thread.
func (s *ForumService) ListComments(ctx context.Context, postID string) ([]models.ForumCommentDetail, error) {
	if _, err := s.repo.FindPostByID(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	comments, err := s.repo.ListCommentsByPost(ctx, postID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// CreateComment replies to a thread.
func (s *ForumService) CreateComment(ctx context.Context, postID string, req CreateForumCommentRequest) (*models.ForumComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	if _, err := s.repo.FindPostByID(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	comment := &models.ForumComment{PostID: postID, AuthorID: req.AuthorID, Body: req.Body}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return comment, nil
}

// DeleteComment removes a reply.
func (s *ForumService) DeleteComment(ctx context.Context, id string) error {
	if err := s.repo.DeleteComment(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	return nil
}
