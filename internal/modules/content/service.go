package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/jobs/worker"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

var (
	ErrJobActive = errors.New("a processing job for this module is already active")
	ErrQueueFull = errors.New("processing queue is full, try again later")
)

// Admission grants one active job per module.
type Admission interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Scheduler runs tasks in the background.
type Scheduler interface {
	Submit(t worker.Task) error
}

// Service accepts uploads and schedules pipeline runs without waiting for
// them.
type Service struct {
	log      *logger.Logger
	pipeline *Pipeline
	status   *StatusReporter
	courses  CourseRepository
	guard    Admission
	sched    Scheduler
}

func NewService(log *logger.Logger, pipeline *Pipeline, status *StatusReporter, courses CourseRepository, guard Admission, sched Scheduler) *Service {
	return &Service{
		log:      log.With("service", "ContentService"),
		pipeline: pipeline,
		status:   status,
		courses:  courses,
		guard:    guard,
		sched:    sched,
	}
}

// Submit takes ownership of u.LocalPath and schedules the job. It fails with
// ErrJobActive when the module already has a job, and with ErrQueueFull when
// the worker queue is saturated; in both cases the file is removed.
func (s *Service) Submit(ctx context.Context, u Upload) error {
	return s.SubmitWith(ctx, u, nil)
}

// SubmitWith is Submit with a prepare step that runs once the module's slot
// is held and before anything is scheduled, so a rejected upload never
// touches the module record.
func (s *Service) SubmitWith(ctx context.Context, u Upload, prepare func(ctx context.Context) error) error {
	jobID := u.JobID()
	ok, err := s.guard.Acquire(ctx, jobID)
	if err != nil {
		removeFile(s.log, u.LocalPath)
		return fmt.Errorf("admission: %w", err)
	}
	if !ok {
		removeFile(s.log, u.LocalPath)
		return ErrJobActive
	}
	if prepare != nil {
		if err := prepare(ctx); err != nil {
			removeFile(s.log, u.LocalPath)
			s.release(jobID)
			return err
		}
	}

	s.status.Begin(ctx, jobID, u.CourseID, u.MimeType, "Upload received, waiting for a worker")

	task := worker.Task{
		Name: "content:" + jobID,
		Run: func(ctx context.Context) {
			defer s.release(jobID)
			s.pipeline.Process(ctx, u)
		},
		OnDrop: func() {
			defer s.release(jobID)
			s.abandon(u, errors.New("server shutting down before the job started"))
		},
	}
	if err := s.sched.Submit(task); err != nil {
		defer s.release(jobID)
		if errors.Is(err, worker.ErrQueueFull) {
			s.abandon(u, ErrQueueFull)
			return ErrQueueFull
		}
		s.abandon(u, err)
		return fmt.Errorf("schedule: %w", err)
	}
	s.log.Info("job scheduled", "job_id", jobID, "course_id", u.CourseID)
	return nil
}

// Status is the read path for client polling.
func (s *Service) Status(ctx context.Context, jobID string) (*course.ProcessingStatus, error) {
	return s.status.Get(ctx, jobID)
}

func (s *Service) abandon(u Upload, cause error) {
	ctx := context.Background()
	removeFile(s.log, u.LocalPath)
	s.status.Fail(ctx, u.JobID(), cause)
	if s.courses != nil {
		if err := s.courses.SetModuleState(ctx, u.CourseID, u.ModuleID, course.ModuleStatusError); err != nil {
			s.log.Warn("module state update failed", "module_id", u.ModuleID, "error", err)
		}
	}
}

func (s *Service) release(jobID string) {
	if err := s.guard.Release(context.Background(), jobID); err != nil {
		s.log.Warn("admission release failed", "job_id", jobID, "error", err)
	}
}
