package domain

// Summary is the store-wide matching overview. Matched counts mappings in
// Ready/Accepted/Rejected, unmatched counts UnMatched, dropped counts
// Dropped; the three buckets partition each platform's mappings.
type Summary struct {
	TotalAnimes         int `json:"total_animes"`
	TotalTmdbMatched    int `json:"total_tmdb_matched"`
	TotalTmdbUnmatched  int `json:"total_tmdb_unmatched"`
	TotalTmdbDropped    int `json:"total_tmdb_dropped"`
	TotalBgmtvMatched   int `json:"total_bgmtv_matched"`
	TotalBgmtvUnmatched int `json:"total_bgmtv_unmatched"`
	TotalBgmtvDropped   int `json:"total_bgmtv_dropped"`
}

// YearStatistic is the same breakdown for a single year.
type YearStatistic struct {
	Year           int `json:"year"`
	TotalAnimes    int `json:"total_animes"`
	TmdbMatched    int `json:"tmdb_matched"`
	TmdbUnmatched  int `json:"tmdb_unmatched"`
	TmdbDropped    int `json:"tmdb_dropped"`
	BgmtvMatched   int `json:"bgmtv_matched"`
	BgmtvUnmatched int `json:"bgmtv_unmatched"`
	BgmtvDropped   int `json:"bgmtv_dropped"`
}

// YearStatistics rows are ordered by year descending.
type YearStatistics struct {
	Statistics []YearStatistic `json:"statistics"`
}
