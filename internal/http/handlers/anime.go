package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/animap/animap-backend/internal/data/repos"
	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/http/response"
	"github.com/animap/animap-backend/internal/pkg/dbctx"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/logger"
	"github.com/animap/animap-backend/internal/services"
)

type AnimeHandler struct {
	animes repos.AnimeRepo
	stats  repos.StatsRepo
	review services.ReviewService
	log    *logger.Logger
}

func NewAnimeHandler(animes repos.AnimeRepo, stats repos.StatsRepo, review services.ReviewService, baseLog *logger.Logger) *AnimeHandler {
	return &AnimeHandler{
		animes: animes,
		stats:  stats,
		review: review,
		log:    baseLog.With("handler", "AnimeHandler"),
	}
}

type queryAnimesRequest struct {
	Page      int     `json:"page"`
	PageSize  int     `json:"page_size"`
	Year      *int    `json:"year"`
	Status    *string `json:"status"`
	AnilistID *int    `json:"anilist_id"`
}

type pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Data     any `json:"data"`
}

// QueryAnimes handles POST /api/animes/page.
func (h *AnimeHandler) QueryAnimes(c *gin.Context) {
	var req queryAnimesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	q := repos.PageQuery{
		Page:      req.Page,
		PageSize:  req.PageSize,
		Year:      req.Year,
		AnilistID: req.AnilistID,
	}
	if req.Status != nil {
		status, err := domain.ParseReviewStatus(*req.Status)
		if err != nil {
			response.RespondError(c, err)
			return
		}
		q.Status = &status
	}

	items, total, err := h.animes.GetPage(dbctx.New(c.Request.Context()), q)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, pagination{
		Page:     req.Page,
		PageSize: req.PageSize,
		Total:    total,
		Data:     items,
	})
}

// Summary handles GET /api/animes/summary.
func (h *AnimeHandler) Summary(c *gin.Context) {
	summary, err := h.stats.Summary(dbctx.New(c.Request.Context()))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, summary)
}

// YearStatistics handles GET /api/animes/year-statistics.
func (h *AnimeHandler) YearStatistics(c *gin.Context) {
	stats, err := h.stats.YearStatistics(dbctx.New(c.Request.Context()))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// Review handles GET /api/anime/:anilist_id/review/:platform/:status.
func (h *AnimeHandler) Review(c *gin.Context) {
	anilistID, err := strconv.Atoi(c.Param("anilist_id"))
	if err != nil {
		response.RespondError(c, fmt.Errorf("%w: anilist_id must be an integer", apperrors.ErrInvalidArgument))
		return
	}
	platform, err := domain.ParsePlatform(c.Param("platform"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	status, err := domain.ParseReviewStatus(c.Param("status"))
	if err != nil {
		response.RespondError(c, err)
		return
	}

	if err := h.review.Review(c.Request.Context(), anilistID, platform, status); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, nil)
}

type manualMappingRequest struct {
	AnilistID    int    `json:"anilist_id"`
	Platform     string `json:"platform"`
	PlatformID   string `json:"platform_id"`
	SeasonNumber *int   `json:"season_number"`
}

// ManualMapping handles POST /api/anime/mapping/manual.
func (h *AnimeHandler) ManualMapping(c *gin.Context) {
	var req manualMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	err = h.review.ManualMapping(c.Request.Context(), services.ManualMappingRequest{
		AnilistID:    req.AnilistID,
		Platform:     platform,
		PlatformID:   req.PlatformID,
		SeasonNumber: req.SeasonNumber,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, nil)
}
