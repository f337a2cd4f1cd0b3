package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/platform/envutil"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests    *CounterVec
	apiLatency     *HistogramVec
	apiInflight    *Gauge
	apiReqTotal    *Counter
	apiReqError    *Counter
	jobsTotal      *CounterVec
	jobDuration    *HistogramVec
	stageDuration  *HistogramVec
	stageTotal     *CounterVec
	providerCalls  *CounterVec
	providerTime   *HistogramVec
	uploadBytes    *Counter
	admissionDeny  *CounterVec
	jobsByStatus   *GaugeVec
	workerQueued   *Gauge
	workerInflight *Gauge
	dbStats        *GaugeVec
	redisUp        *Gauge
	redisPing      *Gauge
	bootstrap      *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	d := envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Init builds the process-wide registry. It returns nil when METRICS_ENABLED
// is off; every method is nil-safe.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	slow := []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200}
	return &Metrics{
		apiRequests:    NewCounterVec("cm_api_requests_total", "API requests by method, route and status", []string{"method", "route", "status"}),
		apiLatency:     NewHistogramVec("cm_api_request_duration_seconds", "API request latency", []string{"method", "route", "status"}, nil),
		apiInflight:    NewGauge("cm_api_inflight_requests", "API requests in flight"),
		apiReqTotal:    NewCounter("cm_api_requests_all_total", "API requests, all routes"),
		apiReqError:    NewCounter("cm_api_requests_5xx_total", "API requests answered with 5xx"),
		jobsTotal:      NewCounterVec("cm_pipeline_jobs_total", "Finished pipeline jobs by media kind and outcome", []string{"kind", "outcome"}),
		jobDuration:    NewHistogramVec("cm_pipeline_job_duration_seconds", "Wall time of pipeline jobs", []string{"kind", "outcome"}, slow),
		stageDuration:  NewHistogramVec("cm_pipeline_stage_duration_seconds", "Wall time per pipeline stage", []string{"stage", "outcome"}, slow),
		stageTotal:     NewCounterVec("cm_pipeline_stages_total", "Pipeline stage runs by outcome", []string{"stage", "outcome"}),
		providerCalls:  NewCounterVec("cm_provider_calls_total", "Calls to external providers", []string{"provider", "op", "outcome"}),
		providerTime:   NewHistogramVec("cm_provider_call_duration_seconds", "External provider call latency", []string{"provider", "op"}, []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}),
		uploadBytes:    NewCounter("cm_upload_bytes_total", "Bytes accepted through uploads"),
		admissionDeny:  NewCounterVec("cm_admission_rejected_total", "Uploads rejected before scheduling", []string{"reason"}),
		jobsByStatus:   NewGaugeVec("cm_jobs", "Status records by status", []string{"status"}),
		workerQueued:   NewGauge("cm_worker_queued", "Tasks waiting for a worker"),
		workerInflight: NewGauge("cm_worker_inflight", "Tasks running on workers"),
		dbStats:        NewGaugeVec("cm_db_pool", "database/sql pool stats", []string{"stat"}),
		redisUp:        NewGauge("cm_redis_up", "1 when the last Redis ping succeeded"),
		redisPing:      NewGauge("cm_redis_ping_seconds", "Latency of the last Redis ping"),
		bootstrap:      NewCounterVec("cm_provider_bootstrap_total", "Provider selection at startup", []string{"component", "mode", "outcome", "code"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.jobsTotal, m.jobDuration, m.stageDuration, m.stageTotal,
		m.providerCalls, m.providerTime, m.uploadBytes, m.admissionDeny,
		m.jobsByStatus, m.workerQueued, m.workerInflight,
		m.dbStats, m.redisUp, m.redisPing, m.bootstrap,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if len(status) == 3 && status[0] == '5' {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveJob(kind, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobsTotal.Inc(kind, outcome)
	m.jobDuration.Observe(dur.Seconds(), kind, outcome)
}

func (m *Metrics) ObserveStage(stage string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeOf(err)
	m.stageTotal.Inc(stage, outcome)
	m.stageDuration.Observe(dur.Seconds(), stage, outcome)
}

func (m *Metrics) ObserveProvider(provider, op string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.Inc(provider, op, outcomeOf(err))
	m.providerTime.Observe(dur.Seconds(), provider, op)
}

func (m *Metrics) AddUploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}

func (m *Metrics) IncAdmissionRejected(reason string) {
	if m == nil {
		return
	}
	m.admissionDeny.Inc(reason)
}

// ObserveBootstrap records one provider selection; code is "none" on success.
func (m *Metrics) ObserveBootstrap(component, mode, outcome, code string) {
	if m == nil {
		return
	}
	m.bootstrap.Inc(component, mode, outcome, code)
}

// WorkerStats is satisfied by the worker pool.
type WorkerStats interface {
	Queued() int
	InFlight() int
}

// sampleEvery runs fn on the scrape interval until ctx is done.
func sampleEvery(ctx context.Context, fn func()) {
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

func (m *Metrics) StartWorkerCollector(ctx context.Context, pool WorkerStats) {
	if m == nil || pool == nil {
		return
	}
	sampleEvery(ctx, func() {
		m.workerQueued.Set(float64(pool.Queued()))
		m.workerInflight.Set(float64(pool.InFlight()))
	})
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	sampleEvery(ctx, func() {
		sqlDB, err := db.DB()
		if err != nil {
			if log != nil {
				log.Warn("metrics: db stats unavailable", "error", err)
			}
			return
		}
		st := sqlDB.Stats()
		for stat, v := range map[string]float64{
			"open_connections":      float64(st.OpenConnections),
			"in_use":                float64(st.InUse),
			"idle":                  float64(st.Idle),
			"wait_count":            float64(st.WaitCount),
			"wait_duration_seconds": st.WaitDuration.Seconds(),
		} {
			m.dbStats.Set(v, stat)
		}
	})
}

// StartRedisCollector pings Redis; cm_redis_up drops to 0 on failure.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	sampleEvery(ctx, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

// StartJobStatusCollector samples status records per status from the SQL
// status table.
func (m *Metrics) StartJobStatusCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	sampleEvery(ctx, func() { m.collectJobStatuses(ctx, log, db) })
}

func (m *Metrics) collectJobStatuses(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	for _, s := range []string{course.StatusQueued, course.StatusProcessing, course.StatusCompleted, course.StatusError} {
		m.jobsByStatus.Set(0, s)
	}
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&course.ProcessingStatus{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		if log != nil {
			log.Warn("metrics: job status query failed", "error", err)
		}
		return
	}
	for _, row := range rows {
		status := strings.TrimSpace(row.Status)
		if status == "" {
			status = "unknown"
		}
		m.jobsByStatus.Set(float64(row.Count), status)
	}
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
