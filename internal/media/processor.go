package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"mediad/internal/models"
	"mediad/internal/storage"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 60 * time.Second
	defaultWorkers     = 2
)

// Registry is the slice of the file store the processor writes through.
// Every write is field-scoped so concurrent metadata edits survive.
type Registry interface {
	GetFile(ctx context.Context, reference string) (*models.StoredFile, error)
	SetProcessingStatus(ctx context.Context, reference string, status models.ProcessingStatus) error
	CompleteProcessing(ctx context.Context, reference string, durationSeconds int) error
	FailProcessing(ctx context.Context, reference string, lastError string) error
}

// Extractor computes derived audio metadata from payload bytes.
type Extractor interface {
	Duration(r io.Reader, mediaType string) (int, error)
}

// Options tunes the processor pool and retry policy.
type Options struct {
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
	QueueSize   int
}

// Processor runs audio metadata extraction on a worker pool with bounded,
// delay-scheduled retries.
type Processor struct {
	registry  Registry
	backends  map[models.BackendKind]storage.Backend
	extractor Extractor
	queue     *Queue
	logger    *slog.Logger

	workers     int
	maxAttempts int
	retryDelay  time.Duration

	wg sync.WaitGroup
}

// NewProcessor constructs a processor. Zero option fields fall back to
// defaults (2 workers, 3 attempts, 60s retry delay).
func NewProcessor(registry Registry, backends map[models.BackendKind]storage.Backend, extractor Extractor, logger *slog.Logger, opts Options) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Processor{
		registry:    registry,
		backends:    backends,
		extractor:   extractor,
		queue:       NewQueue(opts.QueueSize),
		logger:      logger,
		workers:     opts.Workers,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
	}
}

// Start launches the worker pool. Workers drain the queue until Stop is
// called or ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			log := p.logger.With("worker", worker)
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.queue.Jobs():
					if !ok {
						return
					}
					p.process(ctx, job, log)
				}
			}
		}(i)
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Processor) Stop() {
	p.queue.Close()
	p.wg.Wait()
}

// Dispatch marks a file pending and enqueues a fresh extraction job. This
// is the explicit event the orchestrator emits after a confirmed write; no
// persistence hook fires it implicitly.
func (p *Processor) Dispatch(ctx context.Context, reference string) error {
	if err := p.registry.SetProcessingStatus(ctx, reference, models.ProcessingPending); err != nil {
		return err
	}
	if !p.queue.Enqueue(reference) {
		return fmt.Errorf("processing queue unavailable for %s", reference)
	}
	return nil
}

// process runs one attempt. Status moves pending -> processing, then either
// completed (duration overwritten, errors cleared) or, after exhausting the
// attempt budget, failed with the last error verbatim. Retries re-enter
// processing; they never go back to pending.
func (p *Processor) process(ctx context.Context, job Job, log *slog.Logger) {
	file, err := p.registry.GetFile(ctx, job.Reference)
	if err != nil {
		log.Error("load file for processing", "reference", job.Reference, "error", err)
		return
	}
	if file == nil {
		log.Warn("file vanished before processing", "reference", job.Reference)
		return
	}
	if !file.IsAudio() {
		log.Warn("skipping non-audio payload", "reference", job.Reference, "media_type", file.MediaType)
		return
	}

	if err := p.registry.SetProcessingStatus(ctx, job.Reference, models.ProcessingInProgress); err != nil {
		log.Error("mark processing", "reference", job.Reference, "error", err)
		return
	}

	duration, err := p.extract(ctx, file)
	if err != nil {
		p.handleFailure(ctx, job, err, log)
		return
	}

	if err := p.registry.CompleteProcessing(ctx, job.Reference, duration); err != nil {
		log.Error("record completion", "reference", job.Reference, "error", err)
		return
	}
	log.Info("extracted audio metadata",
		"reference", job.Reference, "duration_seconds", duration, "attempt", job.Attempt)
}

func (p *Processor) extract(ctx context.Context, file *models.StoredFile) (int, error) {
	backend, ok := p.backends[file.Backend]
	if !ok {
		return 0, fmt.Errorf("no backend registered for kind %q", file.Backend)
	}
	rc, err := backend.Open(ctx, file.Location)
	if err != nil {
		return 0, fmt.Errorf("open payload: %w", err)
	}
	defer rc.Close()

	duration, err := p.extractor.Duration(rc, file.MediaType)
	if err != nil {
		return 0, fmt.Errorf("extract duration: %w", err)
	}
	return duration, nil
}

func (p *Processor) handleFailure(ctx context.Context, job Job, cause error, log *slog.Logger) {
	if job.Attempt < p.maxAttempts {
		log.Warn("extraction failed, scheduling retry",
			"reference", job.Reference, "attempt", job.Attempt, "max_attempts", p.maxAttempts,
			"retry_delay", p.retryDelay, "error", cause)
		if !p.queue.EnqueueAfter(Job{Reference: job.Reference, Attempt: job.Attempt + 1}, p.retryDelay) {
			log.Error("retry dropped: queue closed", "reference", job.Reference)
		}
		return
	}

	log.Error("extraction failed terminally",
		"reference", job.Reference, "attempt", job.Attempt, "error", cause)
	if err := p.registry.FailProcessing(ctx, job.Reference, cause.Error()); err != nil {
		log.Error("record terminal failure", "reference", job.Reference, "error", err)
	}
}
