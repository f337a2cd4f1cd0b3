package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursemedia-backend/internal/data/repos/course"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type ModuleRepo = course.ModuleRepo
type StatusRepo = course.StatusRepo

var ErrModuleNotFound = course.ErrModuleNotFound

type Repos struct {
	Modules  ModuleRepo
	Statuses StatusRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Modules:  course.NewModuleRepo(db, log),
		Statuses: course.NewStatusRepo(db, log),
	}
}
