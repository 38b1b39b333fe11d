// Package evaluator runs the metric pipeline as a service: it scores
// prediction batches, records each run and keeps recent reports in Redis.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/touchstone3d/semseg/internal/config"
	"github.com/touchstone3d/semseg/internal/evalstore"
	"github.com/touchstone3d/semseg/internal/utils/logger"
	"github.com/touchstone3d/semseg/internal/utils/redis"
	"github.com/touchstone3d/semseg/pkg/metrics"
)

const (
	reportKeyPrefix = "touchstone:report:"
	latestReportKey = reportKeyPrefix + "latest"
	recentRunsKey   = "touchstone:runs:recent"
	maxRecentRuns   = 100
)

// RunStore is the persistence the evaluator needs; *evalstore.Store
// satisfies it.
type RunStore interface {
	Insert(ctx context.Context, run *evalstore.Run) error
	Get(ctx context.Context, runID string) (*evalstore.Run, error)
	List(ctx context.Context, limit int) ([]*evalstore.Run, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Evaluator struct {
	Store RunStore
	Redis redis.RedisInterface

	NumClasses  int
	Similarity  *metrics.SimilarityMatrix // nil means identity
	CacheConfig *config.CacheConfig
	StoreConfig config.StoreEnvConfig

	Ctx    context.Context
	Cancel context.CancelFunc
	Wg     sync.WaitGroup
}

type Option func(*Evaluator)

func WithStore(s RunStore) Option {
	return func(e *Evaluator) { e.Store = s }
}

func WithRedis(r redis.RedisInterface) Option {
	return func(e *Evaluator) { e.Redis = r }
}

func WithSimilarity(sim *metrics.SimilarityMatrix) Option {
	return func(e *Evaluator) { e.Similarity = sim }
}

func WithCacheConfig(c *config.CacheConfig) Option {
	return func(e *Evaluator) { e.CacheConfig = c }
}

func WithStoreConfig(c config.StoreEnvConfig) Option {
	return func(e *Evaluator) { e.StoreConfig = c }
}

// ConfigOptions builds the options the environment configures. A similarity
// matrix is only set when SIMILARITY_FILE is given, so requests may still
// override the class count under the identity default.
func ConfigOptions(cfg *config.AppConfig) ([]Option, error) {
	opts := []Option{
		WithCacheConfig(config.NewCacheConfig(cfg.Environment)),
		WithStoreConfig(cfg.StoreEnvConfig),
	}
	if cfg.SimilarityFile != "" {
		sim, err := config.LoadSimilarityMatrix(cfg.SimilarityFile, cfg.NumClasses)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSimilarity(sim))
	}
	return opts, nil
}

func New(numClasses int, opts ...Option) (*Evaluator, error) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Evaluator{
		NumClasses:  numClasses,
		CacheConfig: config.DevCacheConfig,
		Ctx:         ctx,
		Cancel:      cancel,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.NumClasses <= 0 {
		cancel()
		return nil, fmt.Errorf("%w: got %d", metrics.ErrInvalidClassCount, e.NumClasses)
	}
	if e.Similarity != nil && e.Similarity.NumClasses() != e.NumClasses {
		cancel()
		return nil, fmt.Errorf("%w: similarity covers %d classes, want %d",
			metrics.ErrInvalidSimilarity, e.Similarity.NumClasses(), e.NumClasses)
	}
	return e, nil
}

func (e *Evaluator) pipeline(numClasses int) (*metrics.EvaluationPipeline, error) {
	if numClasses == 0 {
		numClasses = e.NumClasses
	}
	var opts []metrics.EvaluationPipelineOption
	if e.Similarity != nil {
		opts = append(opts, metrics.WithSimilarity(e.Similarity))
	}
	return metrics.NewEvaluationPipeline(numClasses, opts...)
}

// Evaluate scores one request and records it. A store failure fails the
// call; cache failures are only logged.
func (e *Evaluator) Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error) {
	p, err := e.pipeline(req.NumClasses)
	if err != nil {
		return nil, err
	}
	if req.Pred.Len() == 0 && req.Truth.Len() == 0 {
		logger.Sugar().Warnw("evaluating an empty batch", "dataset", req.Dataset)
	}

	report, err := p.Process([][]int32(req.Pred), [][]int32(req.Truth))
	if err != nil {
		return nil, err
	}

	run := evalstore.NewRun(req.Dataset, report)
	if e.Store != nil {
		if err := e.Store.Insert(ctx, run); err != nil {
			return nil, fmt.Errorf("record evaluation run: %w", err)
		}
	} else {
		evalstore.AssignIdentity(run)
	}

	logger.Sugar().Infow("evaluation recorded",
		"runID", run.RunID,
		"dataset", run.Dataset,
		"points", report.NumPoints,
		"oa", report.OverallAccuracy,
		"miou", report.MeanIoU,
		"msiou", report.MeanSIoU,
	)

	e.cacheRun(ctx, run)
	return resultFromRun(run), nil
}

func (e *Evaluator) cacheRun(ctx context.Context, run *evalstore.Run) {
	if e.Redis == nil {
		return
	}
	payload, err := sonic.MarshalString(run)
	if err != nil {
		log.Error().Err(err).Str("run_id", run.RunID).Msg("failed to marshal run for cache")
		return
	}
	err = e.Redis.SetMulti(ctx, map[string]string{
		reportKeyPrefix + run.RunID: payload,
		latestReportKey:             payload,
	}, e.CacheConfig.ReportTTL)
	if err != nil {
		log.Warn().Err(err).Str("run_id", run.RunID).Msg("failed to cache report")
		return
	}
	if err := e.Redis.PushCapped(ctx, recentRunsKey, run.RunID, maxRecentRuns); err != nil {
		log.Warn().Err(err).Str("run_id", run.RunID).Msg("failed to record recent run")
	}
}

func (e *Evaluator) cachedRun(ctx context.Context, key string) *evalstore.Run {
	if e.Redis == nil {
		return nil
	}
	payload, err := e.Redis.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		return nil
	}
	if payload == "" {
		return nil
	}
	var run evalstore.Run
	if err := sonic.UnmarshalString(payload, &run); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding unreadable cached report")
		return nil
	}
	return &run
}

// Run looks a run up in the cache first, then in the store.
func (e *Evaluator) Run(ctx context.Context, runID string) (*EvaluationResult, error) {
	if run := e.cachedRun(ctx, reportKeyPrefix+runID); run != nil {
		return resultFromRun(run), nil
	}
	if e.Store == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	run, err := e.Store.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, evalstore.ErrRunNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return resultFromRun(run), nil
}

// Latest returns the most recent run.
func (e *Evaluator) Latest(ctx context.Context) (*EvaluationResult, error) {
	if run := e.cachedRun(ctx, latestReportKey); run != nil {
		return resultFromRun(run), nil
	}
	runs, err := e.Runs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no runs recorded", ErrRunNotFound)
	}
	return runs[0], nil
}

// Runs lists recent runs, newest first. Without a store it falls back to the
// runs still held in the cache.
func (e *Evaluator) Runs(ctx context.Context, limit int) ([]*EvaluationResult, error) {
	if e.Store != nil {
		runs, err := e.Store.List(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]*EvaluationResult, len(runs))
		for i, r := range runs {
			out[i] = resultFromRun(r)
		}
		return out, nil
	}

	if e.Redis == nil {
		return []*EvaluationResult{}, nil
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := e.Redis.LRange(ctx, recentRunsKey, 0, stop)
	if err != nil {
		return nil, err
	}
	out := make([]*EvaluationResult, 0, len(ids))
	for _, id := range ids {
		if run := e.cachedRun(ctx, reportKeyPrefix+id); run != nil {
			out = append(out, resultFromRun(run))
		}
	}
	return out, nil
}

// runTicker runs fn every d until ctx is cancelled.
func (e *Evaluator) runTicker(ctx context.Context, d time.Duration, fn func()) {
	defer e.Wg.Done()
	t := time.NewTicker(d)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// Start launches background retention pruning when a store and a retention
// period are configured.
func (e *Evaluator) Start() {
	if e.Store == nil || e.StoreConfig.StoreRetention <= 0 || e.StoreConfig.PruneInterval <= 0 {
		return
	}
	e.Wg.Add(1)
	go e.runTicker(e.Ctx, e.StoreConfig.PruneInterval, func() {
		e.prune(e.Ctx)
	})
}

func (e *Evaluator) prune(ctx context.Context) {
	cutoff := time.Now().Add(-e.StoreConfig.StoreRetention)
	n, err := e.Store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune evaluation runs")
		return
	}
	if n > 0 {
		logger.Sugar().Infow("pruned evaluation runs", "removed", n, "cutoff", cutoff)
	}
}

// Stop cancels background routines and waits for them to finish.
func (e *Evaluator) Stop() {
	if e.Cancel != nil {
		e.Cancel()
	}
	e.Wg.Wait()
}
