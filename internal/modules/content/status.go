package content

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

// StatusReporter keeps the status record of every live job and writes it
// through to the store on each change. Store and publish failures are logged
// and never surface to the caller. Progress within a run never decreases.
type StatusReporter struct {
	log   *logger.Logger
	store StatusStore
	pub   StatusPublisher
	now   func() time.Time

	mu   sync.Mutex
	live map[string]*course.ProcessingStatus
}

// NewStatusReporter; pub may be nil.
func NewStatusReporter(log *logger.Logger, store StatusStore, pub StatusPublisher) *StatusReporter {
	return &StatusReporter{
		log:   log.With("service", "StatusReporter"),
		store: store,
		pub:   pub,
		now:   time.Now,
		live:  map[string]*course.ProcessingStatus{},
	}
}

// Begin starts a fresh run for jobID at 0%, discarding any earlier progress.
func (r *StatusReporter) Begin(ctx context.Context, jobID, courseID, mimeType, message string) {
	r.mu.Lock()
	st := &course.ProcessingStatus{
		JobID:          jobID,
		CourseID:       courseID,
		SourceMimeType: mimeType,
		Stage:          course.StageReceived,
		Status:         course.StatusQueued,
		Message:        message,
	}
	r.live[jobID] = st
	snap := r.touch(st)
	r.mu.Unlock()
	r.write(ctx, snap)
}

// Report records a stage transition. pct is clamped to [last, 100].
func (r *StatusReporter) Report(ctx context.Context, jobID string, stage course.Stage, message string, pct int) {
	r.mu.Lock()
	st := r.entry(jobID)
	st.Stage = stage
	st.Status = statusFor(stage)
	st.Message = message
	if pct > 100 {
		pct = 100
	}
	if pct > st.Progress {
		st.Progress = pct
	}
	snap := r.touch(st)
	if stage.Terminal() {
		delete(r.live, jobID)
	}
	r.mu.Unlock()
	r.write(ctx, snap)
}

// SetVideoURL attaches the playable video to the status record.
func (r *StatusReporter) SetVideoURL(ctx context.Context, jobID, url string) {
	r.mu.Lock()
	st := r.entry(jobID)
	st.VideoURL = url
	snap := r.touch(st)
	r.mu.Unlock()
	r.write(ctx, snap)
}

func (r *StatusReporter) Complete(ctx context.Context, jobID, message string) {
	r.Report(ctx, jobID, course.StageCompleted, message, 100)
}

// Fail marks jobID as terminally failed with err's message.
func (r *StatusReporter) Fail(ctx context.Context, jobID string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	r.mu.Lock()
	st := r.entry(jobID)
	st.Stage = course.StageError
	st.Status = course.StatusError
	st.Message = msg
	st.Error = msg
	snap := r.touch(st)
	delete(r.live, jobID)
	r.mu.Unlock()
	r.write(ctx, snap)
}

// Get returns the persisted record, or course.ErrStatusNotFound.
func (r *StatusReporter) Get(ctx context.Context, jobID string) (*course.ProcessingStatus, error) {
	st, err := r.store.GetStatus(ctxutil.Default(ctx), jobID)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (r *StatusReporter) entry(jobID string) *course.ProcessingStatus {
	st, ok := r.live[jobID]
	if !ok {
		st = &course.ProcessingStatus{JobID: jobID}
		r.live[jobID] = st
	}
	return st
}

func (r *StatusReporter) touch(st *course.ProcessingStatus) course.ProcessingStatus {
	st.UpdatedAt = r.now().UTC()
	return *st
}

func (r *StatusReporter) write(ctx context.Context, st course.ProcessingStatus) {
	ctx = ctxutil.Default(ctx)
	if err := r.store.UpsertStatus(ctx, &st); err != nil {
		r.log.Warn("status write failed", "job_id", st.JobID, "stage", st.Stage, "error", err)
	}
	if r.pub != nil {
		if err := r.pub.PublishStatus(ctx, st); err != nil {
			r.log.Warn("status publish failed", "job_id", st.JobID, "error", err)
		}
	}
	r.log.Debug("status", "job_id", st.JobID, "stage", st.Stage, "progress", st.Progress, "message", st.Message)
}

// statusFor maps a reported stage to its status. Only Begin reports Queued;
// any stage reported after it means the job is running.
func statusFor(stage course.Stage) string {
	switch stage {
	case course.StageCompleted:
		return course.StatusCompleted
	case course.StageError:
		return course.StatusError
	default:
		return course.StatusProcessing
	}
}
