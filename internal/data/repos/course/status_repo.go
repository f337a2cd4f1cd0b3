package course

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type StatusRepo interface {
	UpsertStatus(ctx context.Context, st *types.ProcessingStatus) error
	GetStatus(ctx context.Context, jobID string) (*types.ProcessingStatus, error)
}

type statusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatusRepo(db *gorm.DB, baseLog *logger.Logger) StatusRepo {
	return &statusRepo{db: db, log: baseLog.With("repo", "StatusRepo")}
}

// UpsertStatus overwrites the whole record for the job.
func (r *statusRepo) UpsertStatus(ctx context.Context, st *types.ProcessingStatus) error {
	if st == nil || st.JobID == "" {
		return fmt.Errorf("status job id required")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			UpdateAll: true,
		}).
		Create(st).Error
}

func (r *statusRepo) GetStatus(ctx context.Context, jobID string) (*types.ProcessingStatus, error) {
	var st types.ProcessingStatus
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Take(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
