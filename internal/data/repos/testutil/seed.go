package testutil

import (
	"testing"

	"gorm.io/gorm"

	"github.com/animap/animap-backend/internal/domain"
)

func SeedAnime(tb testing.TB, tx *gorm.DB, anilistID, year int, titles ...string) *domain.Anime {
	tb.Helper()
	if len(titles) == 0 {
		titles = []string{"anime"}
	}
	a := &domain.Anime{
		AnilistID: anilistID,
		MediaType: domain.MediaTV,
		Titles:    domain.TitlesJSON(titles),
		Year:      year,
	}
	if err := tx.Create(a).Error; err != nil {
		tb.Fatalf("seed anime: %v", err)
	}
	return a
}

func SeedMapping(tb testing.TB, tx *gorm.DB, anilistID int, platform domain.Platform, platformID *string, status domain.ReviewStatus, score int) *domain.Mapping {
	tb.Helper()
	m := &domain.Mapping{
		AnilistID:    anilistID,
		Platform:     platform,
		PlatformID:   platformID,
		ReviewStatus: status,
		Score:        score,
	}
	if err := tx.Create(m).Error; err != nil {
		tb.Fatalf("seed mapping: %v", err)
	}
	return m
}

func PtrStr(v string) *string { return &v }

func PtrInt(v int) *int { return &v }
