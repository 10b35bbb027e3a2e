package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Anime is one AniList entry. AnilistID is the external key and never
// auto-increments.
type Anime struct {
	AnilistID    int            `gorm:"column:anilist_id;primaryKey;autoIncrement:false" json:"anilist_id"`
	MediaType    MediaType      `gorm:"column:media_type;not null;default:Unknown" json:"media_type"`
	Titles       datatypes.JSON `gorm:"column:titles" json:"titles"`
	Year         int            `gorm:"column:year;not null;index" json:"year"`
	Season       *string        `gorm:"column:season" json:"season,omitempty"`
	StartDate    *string        `gorm:"column:start_date" json:"start_date,omitempty"`
	EpisodeCount *int           `gorm:"column:episode_count" json:"episode_count,omitempty"`
	SeasonNumber *int           `gorm:"column:season_number" json:"season_number,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Anime) TableName() string { return "animes" }

// TitleList decodes the titles column; the first entry is the display title.
func (a *Anime) TitleList() []string {
	var titles []string
	if len(a.Titles) == 0 {
		return titles
	}
	_ = json.Unmarshal(a.Titles, &titles)
	return titles
}

func TitlesJSON(titles []string) datatypes.JSON {
	b, _ := json.Marshal(titles)
	return datatypes.JSON(b)
}

// Mapping associates an anime with one platform's entry. At most one row
// exists per (anilist_id, platform); PlatformID nil means UnMatched.
type Mapping struct {
	AnilistID    int          `gorm:"column:anilist_id;primaryKey;autoIncrement:false" json:"anilist_id"`
	Platform     Platform     `gorm:"column:platform;primaryKey" json:"platform"`
	PlatformID   *string      `gorm:"column:platform_id" json:"id"`
	ReviewStatus ReviewStatus `gorm:"column:review_status;not null;index" json:"review_status"`
	Score        int          `gorm:"column:score;not null;default:0" json:"score"`
	CreatedAt    time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Mapping) TableName() string { return "mappings" }

// AnimeRecord is the durable export representation of one anime and its
// mappings; also the unit returned by paged queries.
type AnimeRecord struct {
	Anime
	Mappings []Mapping `json:"mappings"`
}
