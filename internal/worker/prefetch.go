package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CacheWarmer fetches an observation window and stores it in the cache.
type CacheWarmer interface {
	RefreshWindow(ctx context.Context, start, end time.Time) error
}

// PrefetchJob warms the observation cache for a set of recent windows so
// interactive estimate queries skip the upstream fetch.
type PrefetchJob struct {
	config  PrefetchConfig
	service CacheWarmer
	logger  zerolog.Logger

	mu      sync.RWMutex
	metrics PrefetchMetrics
}

// PrefetchMetrics tracks prefetch job statistics.
type PrefetchMetrics struct {
	TotalRuns         int64
	WindowsWarmed     int64
	WindowsFailed     int64
	LastRunAt         time.Time
	LastRunDuration   time.Duration
	LastRunSuccessful int
	LastRunFailed     int
}

// PrefetchJobConfig holds configuration for creating a PrefetchJob.
type PrefetchJobConfig struct {
	Config  PrefetchConfig
	Service CacheWarmer
	Logger  zerolog.Logger
}

// NewPrefetchJob creates a new prefetch job processor.
func NewPrefetchJob(cfg PrefetchJobConfig) *PrefetchJob {
	config := cfg.Config
	if config.LookbackDays <= 0 {
		config.LookbackDays = DefaultPrefetchConfig().LookbackDays
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultPrefetchConfig().Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultPrefetchConfig().Timeout
	}

	return &PrefetchJob{
		config:  config,
		service: cfg.Service,
		logger:  cfg.Logger,
	}
}

// PrefetchResult contains the outcome of one prefetch run.
type PrefetchResult struct {
	StartTime  time.Time
	Duration   time.Duration
	Windows    int
	Successful int
	Failed     int
	Errors     []WindowError
}

// WindowError records a failed window fetch.
type WindowError struct {
	Window Window
	Error  string
}

// Run warms every configured lookback window with bounded concurrency.
func (j *PrefetchJob) Run(ctx context.Context) *PrefetchResult {
	windows := j.config.Windows(time.Now())
	result := &PrefetchResult{
		StartTime: time.Now(),
		Windows:   len(windows),
	}

	j.logger.Info().
		Int("windows", len(windows)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting prefetch job")

	windowChan := make(chan Window, len(windows))
	resultChan := make(chan windowResult, len(windows))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.prefetchWorker(ctx, windowChan, resultChan)
		}()
	}

	for _, w := range windows {
		windowChan <- w
	}
	close(windowChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for wr := range resultChan {
		if wr.err == nil {
			result.Successful++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, WindowError{
				Window: wr.window,
				Error:  wr.err.Error(),
			})
		}
	}

	result.Duration = time.Since(result.StartTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("prefetch job completed")

	return result
}

// WarmWindow warms a single window, used for on-demand prefetch messages.
func (j *PrefetchJob) WarmWindow(ctx context.Context, w Window) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	return j.service.RefreshWindow(ctx, w.Start, w.End)
}

type windowResult struct {
	window Window
	err    error
}

func (j *PrefetchJob) prefetchWorker(ctx context.Context, windows <-chan Window, results chan<- windowResult) {
	for w := range windows {
		select {
		case <-ctx.Done():
			results <- windowResult{window: w, err: ctx.Err()}
		default:
			err := j.WarmWindow(ctx, w)
			if err != nil {
				j.logger.Warn().Err(err).
					Time("start", w.Start).
					Time("end", w.End).
					Msg("window prefetch failed")
			}
			results <- windowResult{window: w, err: err}
		}
	}
}

func (j *PrefetchJob) updateMetrics(result *PrefetchResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.WindowsWarmed += int64(result.Successful)
	j.metrics.WindowsFailed += int64(result.Failed)
	j.metrics.LastRunAt = result.StartTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.LastRunSuccessful = result.Successful
	j.metrics.LastRunFailed = result.Failed
}

// Metrics returns a copy of the current metrics.
func (j *PrefetchJob) Metrics() PrefetchMetrics {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.metrics
}
