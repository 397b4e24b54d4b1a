package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classboard/classboard-api/internal/service"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
	"github.com/classboard/classboard-api/pkg/response"
)

// SessionHandler exposes the tutoring session lifecycle endpoints.
type SessionHandler struct {
	sessions  *service.SessionService
	analytics *service.AnalyticsService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *service.SessionService, analytics *service.AnalyticsService) *SessionHandler {
	return &SessionHandler{sessions: sessions, analytics: analytics}
}

// Start godoc
// @Summary Start tutoring session
// @Description Open a session between a student and a teacher
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.StartSessionRequest true "Session participants"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session/start [post]
func (h *SessionHandler) Start(c *gin.Context) {
	var req service.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	session, err := h.sessions.Start(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, session)
}

// End godoc
// @Summary End tutoring session
// @Description Close an open session and report its duration. Ending an
// already closed session returns the stored record unchanged.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.EndSessionRequest true "Session reference"
// @Success 200 {object} service.EndSessionResult
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session/end [post]
func (h *SessionHandler) End(c *gin.Context) {
	var req service.EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	result, err := h.sessions.End(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The duration fields sit beside the record at the top level, so this
	// endpoint does not use the envelope.
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, result)
}

// AverageTime godoc
// @Summary Average session time per class
// @Description Mean duration of completed sessions between the class roster and its teacher
// @Tags Sessions
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session/list/total/time/{classId} [get]
func (h *SessionHandler) AverageTime(c *gin.Context) {
	average, err := h.analytics.AverageSessionTime(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, average)
}
