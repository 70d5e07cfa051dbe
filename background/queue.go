package background

import (
	"sync"

	"buchungsportal-backend/logging"
	"buchungsportal-backend/metrics"

	"github.com/rs/zerolog"
)

// Task is a unit of best-effort work. Errors are logged, never propagated.
type Task struct {
	Kind string // "audit" | "idempotency_complete"
	Run  func() error
}

// Queue is a bounded best-effort task queue for writes that must not block
// or fail the request path (audit entries, idempotency completion). Enqueue
// never blocks: when the buffer is full the task is dropped and counted.
type Queue struct {
	tasks  chan Task
	stopCh chan struct{}
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func NewQueue(size, workers int) *Queue {
	if size <= 0 {
		size = 1024
	}
	if workers <= 0 {
		workers = 1
	}

	q := &Queue{
		tasks:  make(chan Task, size),
		stopCh: make(chan struct{}),
		log:    logging.With().Str("component", "background").Logger(),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stopCh:
			// Drain what is already buffered before exiting.
			for {
				select {
				case task := <-q.tasks:
					q.run(task)
				default:
					return
				}
			}
		case task := <-q.tasks:
			q.run(task)
		}
	}
}

func (q *Queue) run(task Task) {
	metrics.QueueDepth.Set(float64(len(q.tasks)))
	if err := task.Run(); err != nil {
		q.log.Error().Str("kind", task.Kind).Err(err).Msg("background task failed")
	}
}

// Enqueue submits a task without blocking. Returns false if the task was
// dropped because the queue is full.
func (q *Queue) Enqueue(task Task) bool {
	select {
	case q.tasks <- task:
		metrics.QueueDepth.Set(float64(len(q.tasks)))
		return true
	default:
		metrics.QueueDropped.WithLabelValues(task.Kind).Inc()
		q.log.Warn().Str("kind", task.Kind).Msg("background queue full, task dropped")
		return false
	}
}

// Stop waits for the workers to finish the buffered tasks and exit.
func (q *Queue) Stop() {
	close(q.stopCh)
	q.wg.Wait()
}
