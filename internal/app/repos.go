package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursemedia-backend/internal/data/repos"
	httpH "github.com/yungbote/coursemedia-backend/internal/http/handlers"
	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/platform/gcp"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

// Repos is the record backend. Modules and Courses are the same store seen
// through the HTTP and pipeline interfaces.
type Repos struct {
	Modules httpH.ModuleStore
	Courses content.CourseRepository
	Status  content.StatusStore
}

func wireRepos(db *gorm.DB, log *logger.Logger, cfg Config, cl Clients) (Repos, error) {
	log.Info("Wiring repos...", "backend", cfg.StatusBackend)
	switch cfg.StatusBackend {
	case StatusBackendFirestore:
		if cl.Firestore == nil {
			return Repos{}, fmt.Errorf("firestore backend selected without a firestore client")
		}
		courses := gcp.NewFirestoreCourses(log, cl.Firestore, cfg.CourseCollection)
		return Repos{
			Modules: courses,
			Courses: courses,
			Status:  gcp.NewFirestoreStatusStore(log, cl.Firestore, cfg.StatusCollection),
		}, nil
	case StatusBackendSQL, "":
		if db == nil {
			return Repos{}, fmt.Errorf("sql backend selected without a database")
		}
		r := repos.New(db, log)
		return Repos{Modules: r.Modules, Courses: r.Modules, Status: r.Statuses}, nil
	default:
		return Repos{}, fmt.Errorf("unsupported STATUS_BACKEND %q", cfg.StatusBackend)
	}
}
