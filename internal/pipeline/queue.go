package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey        = "plai:rag:process_queue"
	retrySuffix     = "|retry"
	dequeueInterval = 5 * time.Second
)

// Queue is the redis-backed processing job queue. A job is a document id;
// a retried job carries a marker so it is only requeued once.
type Queue struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewQueue(redisURL string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Queue{
		rdb:    rdb,
		logger: slog.Default().With("component", "process_queue"),
	}, nil
}

// Enqueue schedules a document for processing.
func (q *Queue) Enqueue(ctx context.Context, docID uuid.UUID) error {
	if err := q.rdb.LPush(ctx, queueKey, docID.String()).Err(); err != nil {
		return fmt.Errorf("enqueue document %s: %w", docID, err)
	}
	return nil
}

func (q *Queue) enqueueRetry(ctx context.Context, docID uuid.UUID) error {
	return q.rdb.LPush(ctx, queueKey, docID.String()+retrySuffix).Err()
}

// dequeue blocks up to dequeueInterval for the next job. A zero uuid with a
// nil error means the wait timed out.
func (q *Queue) dequeue(ctx context.Context) (uuid.UUID, int, error) {
	res, err := q.rdb.BRPop(ctx, dequeueInterval, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, 0, nil
		}
		return uuid.Nil, 0, err
	}

	payload := res[1]
	attempt := 0
	if strings.HasSuffix(payload, retrySuffix) {
		payload = strings.TrimSuffix(payload, retrySuffix)
		attempt = 1
	}

	docID, err := uuid.Parse(payload)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("malformed job payload %q: %w", res[1], err)
	}
	return docID, attempt, nil
}

func (q *Queue) Close() error {
	return q.rdb.Close()
}

// WorkerPool consumes the queue with a fixed number of workers. Jobs for
// different documents run concurrently with no cross-document ordering.
type WorkerPool struct {
	queue     *Queue
	processor *Processor
	workers   int
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWorkerPool(queue *Queue, processor *Processor, workers int) *WorkerPool {
	if workers <= 0 {
		workers = 4
	}
	return &WorkerPool{
		queue:     queue,
		processor: processor,
		workers:   workers,
		logger:    slog.Default().With("component", "worker_pool"),
	}
}

func (p *WorkerPool) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			p.run(ctx, worker)
		}(i)
	}

	p.logger.Info("worker pool started", "workers", p.workers)
}

func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) run(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		docID, attempt, err := p.queue.dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue failed", "worker", worker, "error", err)
			time.Sleep(time.Second)
			continue
		}
		if docID == uuid.Nil {
			continue
		}

		requeue, err := p.processor.Process(ctx, docID, attempt)
		if err != nil {
			p.logger.Error("job failed",
				"worker", worker, "document_id", docID, "attempt", attempt, "error", err)
		}
		if requeue {
			if err := p.queue.enqueueRetry(ctx, docID); err != nil {
				p.logger.Error("requeue failed", "document_id", docID, "error", err)
			}
		}
	}
}
