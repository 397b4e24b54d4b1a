package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classboard/classboard-api/internal/service"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
	"github.com/classboard/classboard-api/pkg/response"
)

// ForumHandler exposes class forum endpoints.
type ForumHandler struct {
	forum *service.ForumService
}

// NewForumHandler constructs ForumHandler.
func NewForumHandler(forum *service.ForumService) *ForumHandler {
	return &ForumHandler{forum: forum}
}

// ListPosts godoc
// @Summary List class forum posts
// @Tags Forum
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/forum [get]
func (h *ForumHandler) ListPosts(c *gin.Context) {
	posts, err := h.forum.ListPosts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, posts)
}

// CreatePost godoc
// @Summary Open forum thread
// @Tags Forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body service.CreateForumPostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/forum [post]
func (h *ForumHandler) CreatePost(c *gin.Context) {
	var req service.CreateForumPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	req.ClassID = c.Param("id")
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req.AuthorID = claims.UserID

	post, err := h.forum.CreatePost(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// UpdatePost godoc
// @Summary Edit forum thread
// @Tags Forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param payload body service.UpdateForumPostRequest true "Post payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forum/posts/{id} [put]
func (h *ForumHandler) UpdatePost(c *gin.Context) {
	var req service.UpdateForumPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	post, err := h.forum.UpdatePost(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, post)
}

// DeletePost godoc
// @Summary Delete forum thread
// @Tags Forum
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forum/posts/{id} [delete]
func (h *ForumHandler) DeletePost(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.forum.DeletePost(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListComments godoc
// @Summary List thread comments
// @Tags Forum
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forum/posts/{id}/comments [get]
func (h *ForumHandler) ListComments(c *gin.Context) {
	comments, err := h.forum.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, comments)
}

// CreateComment godoc
// @Summary Reply to thread
// @Tags Forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param payload body service.CreateForumCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forum/posts/{id}/comments [post]
func (h *ForumHandler) CreateComment(c *gin.Context) {
	var req service.CreateForumCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req.AuthorID = claims.UserID

	comment, err := h.forum.CreateComment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// DeleteComment godoc
// @Summary Delete comment
// @Tags Forum
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 204
// @Router /forum/comments/{id} [delete]
func (h *ForumHandler) DeleteComment(c *gin.Context) {
	if err := h.forum.DeleteComment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
