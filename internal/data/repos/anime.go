package repos

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/pkg/dbctx"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

// PageQuery filters the paged anime listing. Status keeps an anime when at
// least one of its mappings carries that status. Pages are 1-indexed.
type PageQuery struct {
	Page      int
	PageSize  int
	Status    *domain.ReviewStatus
	Year      *int
	AnilistID *int
}

type AnimeRepo interface {
	Get(dbc dbctx.Context, anilistID int) (*domain.AnimeRecord, error)
	GetPage(dbc dbctx.Context, q PageQuery) ([]*domain.AnimeRecord, int, error)
	UpsertMapping(dbc dbctx.Context, anilistID int, platform domain.Platform, platformID *string, status domain.ReviewStatus, score int) error
	SetReviewStatus(dbc dbctx.Context, anilistID int, platform domain.Platform, status domain.ReviewStatus) error
	UpdateSeasonNumber(dbc dbctx.Context, anilistID int, seasonNumber int) error
	Candidates(dbc dbctx.Context, platform domain.Platform, year int) ([]*domain.Anime, error)
	ExportYear(dbc dbctx.Context, year int) ([]*domain.AnimeRecord, error)
	ImportRecords(dbc dbctx.Context, records []*domain.AnimeRecord) error
}

type animeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnimeRepo(db *gorm.DB, baseLog *logger.Logger) AnimeRepo {
	return &animeRepo{
		db:  db,
		log: baseLog.With("repo", "AnimeRepo"),
	}
}

func (r *animeRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *animeRepo) Get(dbc dbctx.Context, anilistID int) (*domain.AnimeRecord, error) {
	tx := r.conn(dbc).WithContext(dbc.Ctx)

	var anime domain.Anime
	if err := tx.First(&anime, "anilist_id = ?", anilistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: anime %d", apperrors.ErrNotFound, anilistID)
		}
		return nil, err
	}

	var mappings []domain.Mapping
	if err := tx.Where("anilist_id = ?", anilistID).Order("platform ASC").Find(&mappings).Error; err != nil {
		return nil, err
	}
	return &domain.AnimeRecord{Anime: anime, Mappings: mappings}, nil
}

func (r *animeRepo) GetPage(dbc dbctx.Context, q PageQuery) ([]*domain.AnimeRecord, int, error) {
	if q.Page < 1 || q.PageSize < 1 {
		return nil, 0, fmt.Errorf("%w: page and page_size must be >= 1", apperrors.ErrInvalidArgument)
	}
	tx := r.conn(dbc).WithContext(dbc.Ctx)

	base := tx.Model(&domain.Anime{})
	if q.Status != nil {
		sub := tx.Model(&domain.Mapping{}).Select("anilist_id").Where("review_status = ?", *q.Status)
		base = base.Where("anilist_id IN (?)", sub)
	}
	if q.Year != nil {
		base = base.Where("year = ?", *q.Year)
	}
	if q.AnilistID != nil {
		base = base.Where("anilist_id = ?", *q.AnilistID)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var animes []domain.Anime
	offset := (q.Page - 1) * q.PageSize
	if err := base.Order("anilist_id ASC").Offset(offset).Limit(q.PageSize).Find(&animes).Error; err != nil {
		return nil, 0, err
	}
	if len(animes) == 0 {
		return []*domain.AnimeRecord{}, int(total), nil
	}

	ids := make([]int, 0, len(animes))
	for _, a := range animes {
		ids = append(ids, a.AnilistID)
	}
	var mappings []domain.Mapping
	if err := tx.Where("anilist_id IN ?", ids).Order("platform ASC").Find(&mappings).Error; err != nil {
		return nil, 0, err
	}
	byAnime := make(map[int][]domain.Mapping, len(animes))
	for _, m := range mappings {
		byAnime[m.AnilistID] = append(byAnime[m.AnilistID], m)
	}

	records := make([]*domain.AnimeRecord, 0, len(animes))
	for _, a := range animes {
		records = append(records, &domain.AnimeRecord{Anime: a, Mappings: byAnime[a.AnilistID]})
	}
	return records, int(total), nil
}

// UpsertMapping creates the anime row when absent and creates or overwrites
// the platform's mapping in one transaction, so concurrent jobs writing the
// two platforms of the same anime never lose each other's row.
func (r *animeRepo) UpsertMapping(dbc dbctx.Context, anilistID int, platform domain.Platform, platformID *string, status domain.ReviewStatus, score int) error {
	if platformID == nil {
		status = domain.ReviewUnMatched
		score = 0
	} else if status == domain.ReviewUnMatched {
		return fmt.Errorf("%w: UnMatched mapping cannot carry a platform id", apperrors.ErrInvalidArgument)
	}

	return r.conn(dbc).WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		shell := &domain.Anime{
			AnilistID: anilistID,
			MediaType: domain.MediaUnknown,
			Titles:    domain.TitlesJSON([]string{}),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(shell).Error; err != nil {
			return err
		}

		m := &domain.Mapping{
			AnilistID:    anilistID,
			Platform:     platform,
			PlatformID:   platformID,
			ReviewStatus: status,
			Score:        score,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "anilist_id"}, {Name: "platform"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"platform_id", "review_status", "score", "updated_at",
			}),
		}).Create(m).Error
	})
}

func (r *animeRepo) SetReviewStatus(dbc dbctx.Context, anilistID int, platform domain.Platform, status domain.ReviewStatus) error {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Mapping{}).
		Where("anilist_id = ? AND platform = ?", anilistID, platform).
		Updates(map[string]interface{}{
			"review_status": status,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: mapping %d/%s", apperrors.ErrNotFound, anilistID, platform)
	}
	return nil
}

func (r *animeRepo) UpdateSeasonNumber(dbc dbctx.Context, anilistID int, seasonNumber int) error {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Anime{}).
		Where("anilist_id = ?", anilistID).
		Updates(map[string]interface{}{
			"season_number": seasonNumber,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: anime %d", apperrors.ErrNotFound, anilistID)
	}
	return nil
}

// Candidates returns the animes of a year whose mapping for the platform is
// still UnMatched, ordered by anilist_id so the list is a stable resume
// cursor across pause/resume and process restarts.
func (r *animeRepo) Candidates(dbc dbctx.Context, platform domain.Platform, year int) ([]*domain.Anime, error) {
	var out []*domain.Anime
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Anime{}).
		Joins("JOIN mappings ON mappings.anilist_id = animes.anilist_id").
		Where("animes.year = ? AND mappings.platform = ? AND mappings.review_status = ?",
			year, platform, domain.ReviewUnMatched).
		Order("animes.anilist_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *animeRepo) ExportYear(dbc dbctx.Context, year int) ([]*domain.AnimeRecord, error) {
	tx := r.conn(dbc).WithContext(dbc.Ctx)

	var animes []domain.Anime
	if err := tx.Where("year = ?", year).Order("anilist_id ASC").Find(&animes).Error; err != nil {
		return nil, err
	}
	if len(animes) == 0 {
		return []*domain.AnimeRecord{}, nil
	}

	ids := make([]int, 0, len(animes))
	for _, a := range animes {
		ids = append(ids, a.AnilistID)
	}
	var mappings []domain.Mapping
	if err := tx.Where("anilist_id IN ?", ids).Order("platform ASC").Find(&mappings).Error; err != nil {
		return nil, err
	}
	byAnime := make(map[int][]domain.Mapping, len(animes))
	for _, m := range mappings {
		byAnime[m.AnilistID] = append(byAnime[m.AnilistID], m)
	}

	records := make([]*domain.AnimeRecord, 0, len(animes))
	for _, a := range animes {
		records = append(records, &domain.AnimeRecord{Anime: a, Mappings: byAnime[a.AnilistID]})
	}
	return records, nil
}

// ImportRecords overwrites store rows with the imported snapshot
// (overwrite-by-import conflict policy).
func (r *animeRepo) ImportRecords(dbc dbctx.Context, records []*domain.AnimeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.conn(dbc).WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			anime := rec.Anime
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "anilist_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"media_type", "titles", "year", "season", "start_date",
					"episode_count", "season_number", "updated_at",
				}),
			}).Create(&anime).Error; err != nil {
				return err
			}
			for _, m := range rec.Mappings {
				mapping := m
				mapping.AnilistID = anime.AnilistID
				if err := tx.Clauses(clause.OnConflict{
					Columns: []clause.Column{{Name: "anilist_id"}, {Name: "platform"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"platform_id", "review_status", "score", "updated_at",
					}),
				}).Create(&mapping).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
