package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	"github.com/noah-isme/sma-adp-curriculum/internal/selection"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
	"github.com/noah-isme/sma-adp-curriculum/pkg/jobs"
)

const prefetchJobType = "prefetch"

// PrefetchConfig tunes the background prefetch queue.
type PrefetchConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// prefetchRequest is the payload carried by a prefetch job.
type prefetchRequest struct {
	Operation string
	Params    querycache.Params
	Guard     func() bool
}

// childQueries maps a selected level to the query listing its children.
var childQueries = map[selection.Level]struct {
	operation string
	param     string
}{
	selection.LevelCurriculum: {querycache.OpListGradeLevels, querycache.ParamCurriculumID},
	selection.LevelGradeLevel: {querycache.OpListClasses, querycache.ParamGradeLevelID},
	selection.LevelClass:      {querycache.OpListSubjects, querycache.ParamClassID},
	selection.LevelSubject:    {querycache.OpListMaterials, querycache.ParamSubjectID},
}

// PrefetchService warms the next level's list after a selection change.
type PrefetchService struct {
	queries   *querycache.Client
	selection *selection.Store
	queue     *jobs.Queue
	enabled   bool
	logger    *zap.Logger
}

// NewPrefetchService constructs the service and its worker queue.
func NewPrefetchService(queries *querycache.Client, sel *selection.Store, cfg PrefetchConfig, logger *zap.Logger) *PrefetchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PrefetchService{queries: queries, selection: sel, enabled: cfg.Enabled, logger: logger}
	s.queue = jobs.NewQueue("prefetch", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		Retryable:  retryablePrefetch,
	})
	return s
}

// Start launches the workers.
func (s *PrefetchService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *PrefetchService) Stop() {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Stop()
}

// Stats returns queue counters.
func (s *PrefetchService) Stats() jobs.Stats {
	if s == nil {
		return jobs.Stats{}
	}
	return s.queue.Stats()
}

// Schedule queues a prefetch of the children of id at level. The relevance
// guard is captured now, so a prefetch that finishes after the user moved on
// is dropped. It reports whether a job was queued.
func (s *PrefetchService) Schedule(level selection.Level, id models.ID) bool {
	if s == nil || !s.enabled || id == "" {
		return false
	}
	child, ok := childQueries[level]
	if !ok {
		return false
	}
	params := querycache.Params{child.param: string(id)}
	if s.queries.IsFresh(child.operation, params) {
		return false
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Key:  querycache.Key(child.operation, params),
		Type: prefetchJobType,
		Payload: prefetchRequest{
			Operation: child.operation,
			Params:    params,
			Guard:     s.selection.Guard(level),
		},
	}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.logger.Debug("prefetch not scheduled", zap.String("key", job.Key), zap.Error(err))
		return false
	}
	return true
}

func (s *PrefetchService) handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(prefetchRequest)
	if !ok {
		return appErrors.Clone(appErrors.ErrInternal, "unexpected prefetch payload")
	}
	if req.Guard != nil && !req.Guard() {
		return nil
	}
	if s.queries.IsFresh(req.Operation, req.Params) {
		return nil
	}
	var opts []querycache.QueryOption
	if req.Guard != nil {
		opts = append(opts, querycache.WithGuard(req.Guard))
	}
	if _, err := s.queries.Query(ctx, req.Operation, req.Params, opts...); err != nil {
		if errors.Is(err, appErrors.ErrStaleResponse) {
			return nil
		}
		return err
	}
	s.logger.Debug("prefetched", zap.String("key", job.Key))
	return nil
}

// retryablePrefetch retries only server-side remote failures.
func retryablePrefetch(err error) bool {
	var typed *appErrors.Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Code == appErrors.KindRemoteFailure && typed.Status >= http.StatusInternalServerError
}
