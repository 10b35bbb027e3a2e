package repos

import (
	"gorm.io/gorm"

	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/pkg/dbctx"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

// StatsRepo recomputes the derived projections on every call; nothing is
// cached, so the numbers can never drift from the store.
type StatsRepo interface {
	Summary(dbc dbctx.Context) (*domain.Summary, error)
	YearStatistics(dbc dbctx.Context) (*domain.YearStatistics, error)
}

type statsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatsRepo(db *gorm.DB, baseLog *logger.Logger) StatsRepo {
	return &statsRepo{
		db:  db,
		log: baseLog.With("repo", "StatsRepo"),
	}
}

func (r *statsRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

type platformStatusCount struct {
	Platform     domain.Platform
	ReviewStatus domain.ReviewStatus
	Count        int
}

func (r *statsRepo) Summary(dbc dbctx.Context) (*domain.Summary, error) {
	tx := r.conn(dbc).WithContext(dbc.Ctx)

	var total int64
	if err := tx.Model(&domain.Anime{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []platformStatusCount
	if err := tx.Model(&domain.Mapping{}).
		Select("platform, review_status, count(*) as count").
		Group("platform").Group("review_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	summary := &domain.Summary{TotalAnimes: int(total)}
	for _, row := range rows {
		switch row.Platform {
		case domain.PlatformTmdb:
			switch {
			case row.ReviewStatus.Matched():
				summary.TotalTmdbMatched += row.Count
			case row.ReviewStatus == domain.ReviewUnMatched:
				summary.TotalTmdbUnmatched += row.Count
			case row.ReviewStatus == domain.ReviewDropped:
				summary.TotalTmdbDropped += row.Count
			}
		case domain.PlatformBgmTv:
			switch {
			case row.ReviewStatus.Matched():
				summary.TotalBgmtvMatched += row.Count
			case row.ReviewStatus == domain.ReviewUnMatched:
				summary.TotalBgmtvUnmatched += row.Count
			case row.ReviewStatus == domain.ReviewDropped:
				summary.TotalBgmtvDropped += row.Count
			}
		}
	}
	return summary, nil
}

type yearStatusCount struct {
	Year         int
	Platform     domain.Platform
	ReviewStatus domain.ReviewStatus
	Count        int
}

func (r *statsRepo) YearStatistics(dbc dbctx.Context) (*domain.YearStatistics, error) {
	tx := r.conn(dbc).WithContext(dbc.Ctx)

	type yearCount struct {
		Year  int
		Count int
	}
	var totals []yearCount
	if err := tx.Model(&domain.Anime{}).
		Select("year, count(*) as count").
		Group("year").
		Order("year DESC").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	if len(totals) == 0 {
		return &domain.YearStatistics{Statistics: []domain.YearStatistic{}}, nil
	}

	var rows []yearStatusCount
	if err := tx.Model(&domain.Mapping{}).
		Select("animes.year as year, mappings.platform, mappings.review_status, count(*) as count").
		Joins("JOIN animes ON animes.anilist_id = mappings.anilist_id").
		Group("animes.year").Group("mappings.platform").Group("mappings.review_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	byYear := make(map[int]*domain.YearStatistic, len(totals))
	stats := make([]domain.YearStatistic, len(totals))
	for i, t := range totals {
		stats[i] = domain.YearStatistic{Year: t.Year, TotalAnimes: t.Count}
		byYear[t.Year] = &stats[i]
	}

	for _, row := range rows {
		stat, ok := byYear[row.Year]
		if !ok {
			continue
		}
		switch row.Platform {
		case domain.PlatformTmdb:
			switch {
			case row.ReviewStatus.Matched():
				stat.TmdbMatched += row.Count
			case row.ReviewStatus == domain.ReviewUnMatched:
				stat.TmdbUnmatched += row.Count
			case row.ReviewStatus == domain.ReviewDropped:
				stat.TmdbDropped += row.Count
			}
		case domain.PlatformBgmTv:
			switch {
			case row.ReviewStatus.Matched():
				stat.BgmtvMatched += row.Count
			case row.ReviewStatus == domain.ReviewUnMatched:
				stat.BgmtvUnmatched += row.Count
			case row.ReviewStatus == domain.ReviewDropped:
				stat.BgmtvDropped += row.Count
			}
		}
	}
	return &domain.YearStatistics{Statistics: stats}, nil
}
