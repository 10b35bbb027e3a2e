package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/http/response"
	"github.com/animap/animap-backend/internal/jobs"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

type JobHandler struct {
	runner *jobs.Runner
	log    *logger.Logger
}

func NewJobHandler(runner *jobs.Runner, baseLog *logger.Logger) *JobHandler {
	return &JobHandler{
		runner: runner,
		log:    baseLog.With("handler", "JobHandler"),
	}
}

func jobKeyParams(c *gin.Context) (domain.Platform, int, error) {
	platform, err := domain.ParsePlatform(c.Param("platform"))
	if err != nil {
		return "", 0, err
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return "", 0, fmt.Errorf("%w: year must be an integer", apperrors.ErrInvalidArgument)
	}
	return platform, year, nil
}

// Create handles GET /api/job/:platform/create/:year/:provider/:model.
func (h *JobHandler) Create(c *gin.Context) {
	platform, year, err := jobKeyParams(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if _, err := h.runner.Create(c.Request.Context(), platform, year, c.Param("provider"), c.Param("model")); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, nil)
}

// Run handles GET /api/job/:platform/run/:year.
func (h *JobHandler) Run(c *gin.Context) {
	platform, year, err := jobKeyParams(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.runner.Run(c.Request.Context(), platform, year); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, nil)
}

// Pause handles GET /api/job/:platform/pause/:year.
func (h *JobHandler) Pause(c *gin.Context) {
	platform, year, err := jobKeyParams(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.runner.Pause(c.Request.Context(), platform, year); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, nil)
}

// Resume handles GET /api/job/:platform/resume/:year.
func (h *JobHandler) Resume(c *gin.Context) {
	platform, year, err := jobKeyParams(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.runner.Resume(c.Request.Context(), platform, year); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, nil)
}

// Remove handles GET /api/job/:platform/remove/:year.
func (h *JobHandler) Remove(c *gin.Context) {
	platform, year, err := jobKeyParams(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.runner.Remove(c.Request.Context(), platform, year); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, nil)
}

// List handles GET /api/job/list.
func (h *JobHandler) List(c *gin.Context) {
	response.RespondOK(c, h.runner.List(c.Request.Context()))
}
