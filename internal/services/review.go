package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/animap/animap-backend/internal/data/repos"
	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/pkg/dbctx"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

// ManualMappingRequest pins an anime to a platform entry the operator
// looked up by hand.
type ManualMappingRequest struct {
	AnilistID    int
	Platform     domain.Platform
	PlatformID   string
	SeasonNumber *int
}

type ReviewService interface {
	Review(ctx context.Context, anilistID int, platform domain.Platform, status domain.ReviewStatus) error
	ManualMapping(ctx context.Context, req ManualMappingRequest) error
}

type reviewService struct {
	animes repos.AnimeRepo
	log    *logger.Logger
}

func NewReviewService(animes repos.AnimeRepo, baseLog *logger.Logger) ReviewService {
	return &reviewService{
		animes: animes,
		log:    baseLog.With("service", "ReviewService"),
	}
}

// Review records the operator's verdict on a proposed mapping. Only the
// terminal verdicts are assignable; Ready and UnMatched belong to the
// matching pipeline.
func (s *reviewService) Review(ctx context.Context, anilistID int, platform domain.Platform, status domain.ReviewStatus) error {
	switch status {
	case domain.ReviewAccepted, domain.ReviewRejected, domain.ReviewDropped:
	default:
		return fmt.Errorf("%w: cannot review to status %q", apperrors.ErrInvalidArgument, status)
	}
	if err := s.animes.SetReviewStatus(dbctx.New(ctx), anilistID, platform, status); err != nil {
		return err
	}
	s.log.Info("Reviewed mapping", "anilist_id", anilistID, "platform", platform, "status", status)
	return nil
}

// ManualMapping overwrites the mapping with the given id at full score
// and marks it Accepted; a hand-picked id needs no second review.
func (s *reviewService) ManualMapping(ctx context.Context, req ManualMappingRequest) error {
	id := strings.TrimSpace(req.PlatformID)
	if id == "" {
		return fmt.Errorf("%w: platform_id required", apperrors.ErrInvalidArgument)
	}
	if req.SeasonNumber != nil && req.Platform != domain.PlatformTmdb {
		return fmt.Errorf("%w: season_number only applies to Tmdb", apperrors.ErrInvalidArgument)
	}

	dbc := dbctx.New(ctx)
	if err := s.animes.UpsertMapping(dbc, req.AnilistID, req.Platform, &id, domain.ReviewAccepted, 100); err != nil {
		return err
	}
	if req.SeasonNumber != nil {
		if err := s.animes.UpdateSeasonNumber(dbc, req.AnilistID, *req.SeasonNumber); err != nil {
			return err
		}
	}
	s.log.Info("Manual mapping set", "anilist_id", req.AnilistID, "platform", req.Platform, "platform_id", id)
	return nil
}
