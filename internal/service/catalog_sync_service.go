package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/pkg/config"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
	"github.com/noah-isme/curriculum-planner-api/pkg/jobs"
)

// CatalogSyncJobType labels catalog synchronisation jobs in the queue.
const CatalogSyncJobType = "catalog.sync"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type catalogSyncer interface {
	SyncFromJob(ctx context.Context, program, catalog, trigger string) error
}

// CatalogSyncPayload is the queued unit of work.
type CatalogSyncPayload struct {
	Program string
	Catalog string
	Trigger string
}

// CatalogSyncJobID identifies the job of one program catalog; duplicates are rejected while pending.
func CatalogSyncJobID(program, catalog string) string {
	return fmt.Sprintf("%s:%s", strings.TrimSpace(program), strings.TrimSpace(catalog))
}

// CatalogSyncWorker executes queued catalog synchronisations.
type CatalogSyncWorker struct {
	catalogs catalogSyncer
	logger   *zap.Logger
}

// NewCatalogSyncWorker constructs a worker.
func NewCatalogSyncWorker(catalogs catalogSyncer, logger *zap.Logger) *CatalogSyncWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSyncWorker{catalogs: catalogs, logger: logger}
}

// Handle processes a queue job. Returning an error lets the queue retry it.
func (w *CatalogSyncWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(CatalogSyncPayload)
	if !ok {
		w.logger.Sugar().Errorw("dropping catalog job with unexpected payload", "job_id", job.ID, "payload_type", fmt.Sprintf("%T", job.Payload))
		return nil
	}
	if err := w.catalogs.SyncFromJob(ctx, payload.Program, payload.Catalog, payload.Trigger); err != nil {
		if appErrors.Is(err, appErrors.ErrBadRequest) {
			w.logger.Sugar().Warnw("catalog job rejected", "job_id", job.ID, "error", err)
			return nil
		}
		return err
	}
	return nil
}

// CatalogSyncScheduler enqueues catalog synchronisations on demand and on a cron schedule.
type CatalogSyncScheduler struct {
	queue    jobDispatcher
	programs []config.ProgramCatalog
	schedule string
	logger   *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewCatalogSyncScheduler constructs a scheduler. An empty schedule disables periodic runs.
func NewCatalogSyncScheduler(queue jobDispatcher, cfg config.CatalogConfig, logger *zap.Logger) *CatalogSyncScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSyncScheduler{
		queue:    queue,
		programs: cfg.SyncPrograms,
		schedule: strings.TrimSpace(cfg.SyncSchedule),
		logger:   logger,
	}
}

// Request enqueues one synchronisation and returns its job id. A job already
// pending for the same catalog is reported as accepted with the same id.
func (s *CatalogSyncScheduler) Request(program, catalog, trigger string) (string, error) {
	program = strings.TrimSpace(program)
	catalog = strings.TrimSpace(catalog)
	if program == "" || catalog == "" {
		return "", appErrors.Clone(appErrors.ErrBadRequest, "program and catalog are required")
	}
	id := CatalogSyncJobID(program, catalog)
	err := s.queue.Enqueue(jobs.Job{
		ID:      id,
		Type:    CatalogSyncJobType,
		Payload: CatalogSyncPayload{Program: program, Catalog: catalog, Trigger: trigger},
	})
	if err != nil && !errors.Is(err, jobs.ErrDuplicate) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue catalog sync")
	}
	return id, nil
}

// Start parses the schedule and begins periodic enqueueing.
func (s *CatalogSyncScheduler) Start() error {
	if s.schedule == "" || len(s.programs) == 0 {
		s.logger.Info("periodic catalog sync disabled")
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(s.schedule); err != nil {
		return fmt.Errorf("invalid catalog sync schedule %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(s.schedule, s.enqueueAll); err != nil {
		return fmt.Errorf("register catalog sync: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("periodic catalog sync scheduled", zap.String("schedule", s.schedule), zap.Int("catalogs", len(s.programs)))
	return nil
}

// Stop halts the cron loop and waits for a running tick to finish.
func (s *CatalogSyncScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *CatalogSyncScheduler) enqueueAll() {
	for _, pc := range s.programs {
		if _, err := s.Request(pc.Program, pc.Catalog, "cron"); err != nil {
			s.logger.Warn("failed to enqueue periodic catalog sync",
				zap.String("program", pc.Program),
				zap.String("catalog", pc.Catalog),
				zap.Error(err),
			)
		}
	}
}
