package repos

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/pkg/dbctx"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

// JobRepo persists match-job rows so counters and the resume cursor survive
// a process restart. The in-memory registry stays authoritative while the
// process lives.
type JobRepo interface {
	Create(dbc dbctx.Context, job *domain.MatchJob) error
	List(dbc dbctx.Context) ([]*domain.MatchJob, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uint) error
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  db,
		log: baseLog.With("repo", "JobRepo"),
	}
}

func (r *jobRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *jobRepo) Create(dbc dbctx.Context, job *domain.MatchJob) error {
	err := r.conn(dbc).WithContext(dbc.Ctx).Create(job).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: job %s/%d", apperrors.ErrConflict, job.Platform, job.Year)
	}
	return err
}

func (r *jobRepo) List(dbc dbctx.Context) ([]*domain.MatchJob, error) {
	var out []*domain.MatchJob
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Order("year DESC, platform ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.MatchJob{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: job id %d", apperrors.ErrNotFound, id)
	}
	return nil
}

func (r *jobRepo) Delete(dbc dbctx.Context, id uint) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Delete(&domain.MatchJob{}, "id = ?", id).Error
}
