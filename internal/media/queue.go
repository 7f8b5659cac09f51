package media

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sparkmatch/backend/internal/models"
)

// QueueConfig controls the concurrency characteristics of the upload queue.
type QueueConfig struct {
	QueueSize int
	Workers   int
}

// Queue runs media pipeline jobs off the request path. Each job owns a spooled
// temp file; the queue removes it once the pipeline finishes either way.
type Queue struct {
	pipeline *Pipeline
	logger   *slog.Logger

	jobs   chan models.UploadTask
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var errQueueClosed = errors.New("upload queue closed")

// NewQueue constructs a background worker pool executing upload tasks.
func NewQueue(pipeline *Pipeline, cfg QueueConfig, logger *slog.Logger) *Queue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		pipeline: pipeline,
		logger:   logger,
		jobs:     make(chan models.UploadTask, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}

	return q
}

// Enqueue schedules an upload task for background execution.
func (q *Queue) Enqueue(ctx context.Context, task models.UploadTask) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return errQueueClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return errQueueClosed
	case q.jobs <- task:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding tasks.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.once.Do(func() {
		q.cancel()
		close(q.jobs)
	})

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()

	// Draining the channel after Shutdown closes it lets queued tasks finish.
	for task := range q.jobs {
		q.handleTask(task)
	}
}

func (q *Queue) handleTask(task models.UploadTask) {
	if q.pipeline == nil {
		q.logger.Error("upload queue missing pipeline", "taskId", task.ID)
		return
	}

	defer os.Remove(task.SourcePath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	logger := q.logger.With("taskId", task.ID, "kind", string(task.Kind))
	status := func(msg string) {
		logger.Info("upload status", "status", msg)
	}

	var err error
	switch task.Kind {
	case models.MediaKindImage:
		src, openErr := os.Open(task.SourcePath)
		if openErr != nil {
			logger.Error("open upload source", "error", openErr)
			return
		}
		var size int64
		if fi, statErr := src.Stat(); statErr == nil {
			size = fi.Size()
		}
		_, err = q.pipeline.UploadProfileImage(ctx, task.FileName, src, size, status)
		src.Close()
	case models.MediaKindVideo:
		_, err = q.pipeline.UploadScreenRecording(ctx, task.SourcePath, status)
	default:
		logger.Error("unknown upload kind")
		return
	}

	if err != nil {
		logger.Error("upload task failed", "error", err)
	}
}
