package course

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

// ErrModuleNotFound is returned by updates that match no row.
var ErrModuleNotFound = errors.New("course module not found")

type ModuleRepo interface {
	// Upsert creates the module or resets an existing one for reprocessing.
	Upsert(ctx context.Context, m *types.Module) error
	GetModule(ctx context.Context, courseID, moduleID string) (*types.Module, error)
	GetByID(ctx context.Context, moduleID string) (*types.Module, error)
	ListByCourse(ctx context.Context, courseID string) ([]*types.Module, error)
	SetModuleSourceURL(ctx context.Context, courseID, moduleID, url string) error
	SetModuleVideoURL(ctx context.Context, courseID, moduleID, url string) error
	SetModuleNotesURL(ctx context.Context, courseID, moduleID, url string) error
	SetModuleAnalysis(ctx context.Context, courseID, moduleID string, points []types.InteractionPoint, materials types.StudyMaterials) error
	SetModuleState(ctx context.Context, courseID, moduleID, state string) error
}

type moduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleRepo(db *gorm.DB, baseLog *logger.Logger) ModuleRepo {
	return &moduleRepo{db: db, log: baseLog.With("repo", "ModuleRepo")}
}

func (r *moduleRepo) Upsert(ctx context.Context, m *types.Module) error {
	if m == nil || m.ID == "" || m.CourseID == "" {
		return fmt.Errorf("module id and course id required")
	}
	// A reprocessed module starts without the previous run's analysis.
	m.NotesURL = ""
	m.InteractionPoints = datatypes.NewJSONType([]types.InteractionPoint{})
	m.Materials = datatypes.NewJSONType(types.StudyMaterials{})
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"course_id",
				"title",
				"resource_type",
				"source_filename",
				"source_mime_type",
				"status",
				"notes_url",
				"interaction_points",
				"materials",
				"updated_at",
			}),
		}).
		Create(m).Error
}

// GetModule returns nil, nil when the module does not exist in the course.
func (r *moduleRepo) GetModule(ctx context.Context, courseID, moduleID string) (*types.Module, error) {
	var m types.Module
	err := r.db.WithContext(ctx).
		Where("id = ? AND course_id = ?", moduleID, courseID).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *moduleRepo) GetByID(ctx context.Context, moduleID string) (*types.Module, error) {
	var m types.Module
	err := r.db.WithContext(ctx).Where("id = ?", moduleID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *moduleRepo) ListByCourse(ctx context.Context, courseID string) ([]*types.Module, error) {
	var out []*types.Module
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleRepo) update(ctx context.Context, courseID, moduleID string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&types.Module{}).
		Where("id = ? AND course_id = ?", moduleID, courseID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("module %s in course %s: %w", moduleID, courseID, ErrModuleNotFound)
	}
	return nil
}

func (r *moduleRepo) SetModuleSourceURL(ctx context.Context, courseID, moduleID, url string) error {
	return r.update(ctx, courseID, moduleID, map[string]interface{}{"source_url": url})
}

func (r *moduleRepo) SetModuleVideoURL(ctx context.Context, courseID, moduleID, url string) error {
	return r.update(ctx, courseID, moduleID, map[string]interface{}{"video_url": url})
}

func (r *moduleRepo) SetModuleNotesURL(ctx context.Context, courseID, moduleID, url string) error {
	return r.update(ctx, courseID, moduleID, map[string]interface{}{"notes_url": url})
}

func (r *moduleRepo) SetModuleAnalysis(ctx context.Context, courseID, moduleID string, points []types.InteractionPoint, materials types.StudyMaterials) error {
	if points == nil {
		points = []types.InteractionPoint{}
	}
	return r.update(ctx, courseID, moduleID, map[string]interface{}{
		"interaction_points": datatypes.NewJSONType(points),
		"materials":          datatypes.NewJSONType(materials),
	})
}

func (r *moduleRepo) SetModuleState(ctx context.Context, courseID, moduleID, state string) error {
	return r.update(ctx, courseID, moduleID, map[string]interface{}{"status": state})
}
