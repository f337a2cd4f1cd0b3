package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

const (
	DefaultCoursesCollection = "courses"
	DefaultStatusCollection  = "processing_logs"
)

// NewFirestoreClient honours FIRESTORE_EMULATOR_HOST through the client
// library itself.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

func isNotFound(err error) bool { return status.Code(err) == codes.NotFound }

// FirestoreStatusStore keeps one overwritable document per job.
type FirestoreStatusStore struct {
	log        *logger.Logger
	client     *firestore.Client
	collection string
}

func NewFirestoreStatusStore(log *logger.Logger, client *firestore.Client, collection string) *FirestoreStatusStore {
	if collection == "" {
		collection = DefaultStatusCollection
	}
	return &FirestoreStatusStore{log: log.With("service", "FirestoreStatusStore"), client: client, collection: collection}
}

func (s *FirestoreStatusStore) UpsertStatus(ctx context.Context, st *course.ProcessingStatus) error {
	if st == nil || st.JobID == "" {
		return fmt.Errorf("status job id required")
	}
	_, err := s.client.Collection(s.collection).Doc(st.JobID).Set(ctx, st)
	return err
}

func (s *FirestoreStatusStore) GetStatus(ctx context.Context, jobID string) (*course.ProcessingStatus, error) {
	snap, err := s.client.Collection(s.collection).Doc(jobID).Get(ctx)
	if isNotFound(err) {
		return nil, course.ErrStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	var st course.ProcessingStatus
	if err := snap.DataTo(&st); err != nil {
		return nil, fmt.Errorf("decode status %s: %w", jobID, err)
	}
	if st.JobID == "" {
		st.JobID = jobID
	}
	return &st, nil
}

var errModuleNotInCourse = errors.New("module not found in course")

// FirestoreCourses reads and patches modules stored as the course_modules
// array of a course document. Patches run in a transaction so concurrent
// jobs on sibling modules do not overwrite each other.
type FirestoreCourses struct {
	log        *logger.Logger
	client     *firestore.Client
	collection string
}

func NewFirestoreCourses(log *logger.Logger, client *firestore.Client, collection string) *FirestoreCourses {
	if collection == "" {
		collection = DefaultCoursesCollection
	}
	return &FirestoreCourses{log: log.With("service", "FirestoreCourses"), client: client, collection: collection}
}

func (r *FirestoreCourses) GetModule(ctx context.Context, courseID, moduleID string) (*course.Module, error) {
	snap, err := r.client.Collection(r.collection).Doc(courseID).Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := snap.DataAt(modulesField)
	if err != nil {
		return nil, nil
	}
	mods, _ := raw.([]interface{})
	i := findModule(mods, moduleID)
	if i < 0 {
		return nil, nil
	}
	m, err := moduleFromMap(courseID, mods[i].(map[string]interface{}))
	if err != nil {
		return nil, fmt.Errorf("decode module %s: %w", moduleID, err)
	}
	return m, nil
}

// ListByCourse returns the modules of a course in array order; an unknown
// course has none.
func (r *FirestoreCourses) ListByCourse(ctx context.Context, courseID string) ([]*course.Module, error) {
	snap, err := r.client.Collection(r.collection).Doc(courseID).Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := snap.DataAt(modulesField)
	if err != nil {
		return nil, nil
	}
	mods, _ := raw.([]interface{})
	out := make([]*course.Module, 0, len(mods))
	for _, entry := range mods {
		mm, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		m, err := moduleFromMap(courseID, mm)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Upsert appends the module to its course, creating the course document when
// needed. An existing entry keeps its place and has its upload fields reset.
func (r *FirestoreCourses) Upsert(ctx context.Context, m *course.Module) error {
	if m == nil || m.ID == "" || m.CourseID == "" {
		return fmt.Errorf("module id and course id required")
	}
	ref := r.client.Collection(r.collection).Doc(m.CourseID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var mods []interface{}
		snap, err := tx.Get(ref)
		switch {
		case isNotFound(err):
		case err != nil:
			return err
		default:
			if raw, err := snap.DataAt(modulesField); err == nil {
				mods, _ = raw.([]interface{})
			}
		}
		mods = upsertModule(mods, m)
		return tx.Set(ref, map[string]interface{}{modulesField: mods}, firestore.MergeAll)
	})
}

func (r *FirestoreCourses) SetModuleSourceURL(ctx context.Context, courseID, moduleID, url string) error {
	return r.patch(ctx, courseID, moduleID, map[string]interface{}{fieldSourceURL: url})
}

func (r *FirestoreCourses) SetModuleVideoURL(ctx context.Context, courseID, moduleID, url string) error {
	return r.patch(ctx, courseID, moduleID, map[string]interface{}{fieldMediaURL: url})
}

func (r *FirestoreCourses) SetModuleNotesURL(ctx context.Context, courseID, moduleID, url string) error {
	return r.patch(ctx, courseID, moduleID, map[string]interface{}{fieldNotesURL: url})
}

func (r *FirestoreCourses) SetModuleAnalysis(ctx context.Context, courseID, moduleID string, points []course.InteractionPoint, materials course.StudyMaterials) error {
	p, err := toFirestoreValue(points)
	if err != nil {
		return err
	}
	m, err := toFirestoreValue(materials)
	if err != nil {
		return err
	}
	return r.patch(ctx, courseID, moduleID, map[string]interface{}{
		fieldInteractionPoints: p,
		fieldStudyMaterials:    m,
	})
}

func (r *FirestoreCourses) SetModuleState(ctx context.Context, courseID, moduleID, state string) error {
	return r.patch(ctx, courseID, moduleID, map[string]interface{}{fieldStatus: state})
}

func (r *FirestoreCourses) patch(ctx context.Context, courseID, moduleID string, fields map[string]interface{}) error {
	ref := r.client.Collection(r.collection).Doc(courseID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if isNotFound(err) {
			return fmt.Errorf("course %s: %w", courseID, errModuleNotInCourse)
		}
		if err != nil {
			return err
		}
		raw, err := snap.DataAt(modulesField)
		if err != nil {
			return fmt.Errorf("course %s has no modules: %w", courseID, errModuleNotInCourse)
		}
		mods, _ := raw.([]interface{})
		if !patchModules(mods, moduleID, fields) {
			return fmt.Errorf("module %s in course %s: %w", moduleID, courseID, errModuleNotInCourse)
		}
		return tx.Update(ref, []firestore.Update{{Path: modulesField, Value: mods}})
	})
}
