package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Estados de un trabajo de propagación asíncrono.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobPartial   = "partial"   // reanudar desde Report.ResumeFrom
	JobCancelled = "cancelled" // cancelado entre ventanas; también reanudable
	JobFailed    = "failed"
)

// JobFunc trabajo a ejecutar; debe reportar progreso por ventana.
type JobFunc func(ctx context.Context, onProgress ProgressFunc) (*entity.PropagationReport, error)

// JobSnapshot estado observable de un trabajo ("N de M días").
type JobSnapshot struct {
	ID         string
	Key        entity.LedgerKey
	Status     string
	DaysDone   int
	DaysTotal  int
	Report     *entity.PropagationReport
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

type job struct {
	snap   JobSnapshot
	cancel context.CancelFunc
}

// Jobs registro en memoria de propagaciones largas que corren en segundo plano.
// Los trabajos terminados se descartan pasado el TTL.
type Jobs struct {
	mu    sync.Mutex
	jobs  map[string]*job
	ttl   time.Duration
	clock Clock
	log   *logger.Logger
	wg    sync.WaitGroup
	base  context.Context
	stop  context.CancelFunc
}

// NewJobs construye el registro.
func NewJobs(ttl time.Duration, clock Clock, log *logger.Logger) *Jobs {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	base, stop := context.WithCancel(context.Background())
	return &Jobs{jobs: make(map[string]*job), ttl: ttl, clock: clock, log: log.Component("jobs"), base: base, stop: stop}
}

// Start lanza fn en una goroutine y devuelve el ID del trabajo.
func (j *Jobs) Start(key entity.LedgerKey, fn JobFunc) string {
	ctx, cancel := context.WithCancel(j.base)
	id := uuid.New().String()

	j.mu.Lock()
	j.evictLocked()
	j.jobs[id] = &job{
		snap:   JobSnapshot{ID: id, Key: key, Status: JobRunning, StartedAt: j.clock()},
		cancel: cancel,
	}
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer cancel()
		report, err := fn(ctx, func(done, total int) {
			j.mu.Lock()
			if jb, ok := j.jobs[id]; ok {
				jb.snap.DaysDone, jb.snap.DaysTotal = done, total
			}
			j.mu.Unlock()
		})
		j.finish(id, report, err)
	}()
	return id
}

// Get devuelve el estado del trabajo o domain.ErrNotFound.
func (j *Jobs) Get(id string) (JobSnapshot, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.evictLocked()
	jb, ok := j.jobs[id]
	if !ok {
		return JobSnapshot{}, domain.ErrNotFound
	}
	return jb.snap, nil
}

// Cancel pide la cancelación; el motor se detiene al terminar la ventana en curso.
func (j *Jobs) Cancel(id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	jb, ok := j.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	jb.cancel()
	return nil
}

// Shutdown cancela los trabajos en curso y espera a que terminen o a que ctx expire.
func (j *Jobs) Shutdown(ctx context.Context) error {
	j.stop()
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Jobs) finish(id string, report *entity.PropagationReport, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	jb, ok := j.jobs[id]
	if !ok {
		return
	}
	jb.snap.FinishedAt = j.clock()
	jb.snap.Report = report
	if report != nil {
		jb.snap.DaysDone, jb.snap.DaysTotal = report.DaysDone, report.DaysTotal
	}
	switch {
	case err == nil:
		jb.snap.Status = JobCompleted
	case errors.Is(err, context.Canceled):
		jb.snap.Status = JobCancelled
	case errors.Is(err, domain.ErrPropagationInterrupted):
		jb.snap.Status = JobPartial
	default:
		jb.snap.Status = JobFailed
	}
	if err != nil {
		jb.snap.Error = err.Error()
		j.log.Warn().Err(err).Str("job_id", id).Str("status", jb.snap.Status).Msg("trabajo de propagación terminado con error")
	}
}

func (j *Jobs) evictLocked() {
	if j.ttl <= 0 {
		return
	}
	now := j.clock()
	for id, jb := range j.jobs {
		if jb.snap.Status != JobRunning && now.Sub(jb.snap.FinishedAt) > j.ttl {
			delete(j.jobs, id)
		}
	}
}
