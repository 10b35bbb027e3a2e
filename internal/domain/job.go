package domain

import "time"

// MatchJob is the persisted record of one matching job. The (platform, year)
// pair is the registry key; CurrentIndex is the resume cursor into the
// deterministic candidate list and only advances after an item is durably
// counted.
type MatchJob struct {
	ID               uint      `gorm:"column:id;primaryKey" json:"-"`
	Platform         Platform  `gorm:"column:platform;uniqueIndex:idx_match_jobs_key" json:"platform"`
	Year             int       `gorm:"column:year;uniqueIndex:idx_match_jobs_key" json:"year"`
	Provider         string    `gorm:"column:provider;not null" json:"provider"`
	Model            string    `gorm:"column:model;not null" json:"model"`
	NumAnimesToMatch int       `gorm:"column:num_animes_to_match;not null;default:0" json:"num_animes_to_match"`
	NumProcessed     int       `gorm:"column:num_processed;not null;default:0" json:"num_processed"`
	NumMatched       int       `gorm:"column:num_matched;not null;default:0" json:"num_matched"`
	NumFailed        int       `gorm:"column:num_failed;not null;default:0" json:"num_failed"`
	CurrentIndex     int       `gorm:"column:current_index;not null;default:0" json:"current_index"`
	Status           JobStatus `gorm:"column:status;not null" json:"status"`
	JobStartTime     time.Time `gorm:"column:job_start_time" json:"job_start_time"`
	CreatedAt        time.Time `gorm:"column:created_at;not null" json:"-"`
	UpdatedAt        time.Time `gorm:"column:updated_at;not null" json:"-"`
}

func (MatchJob) TableName() string { return "match_jobs" }

// Clone returns a copy safe to hand out while the runner keeps mutating the
// original under its lock.
func (j *MatchJob) Clone() *MatchJob {
	cp := *j
	return &cp
}
