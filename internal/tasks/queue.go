// package tasks: serialized sync operation queue
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/machinemessiah/tagify-sub000/internal/metrics"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// Operation is one unit of remote-mutating work. Run receives a background
// context: once dequeued an operation always runs to completion, it is never
// cancelled mid-flight.
type Operation struct {
	ID    string
	Kind  string // models.SyncKindSingleItem or models.SyncKindFullReconcile
	Label string
	Run   func(ctx context.Context) error

	done chan error
}

// Done returns a channel that receives the operation's result exactly once.
func (op *Operation) Done() <-chan error {
	return op.done
}

// Queue serializes operations against the remote. Exactly one drainer
// goroutine runs at a time; it starts on demand when an operation lands in
// an idle queue and exits when the queue is empty again. FIFO order is
// strict, so an operation always observes the store state left behind by
// every operation enqueued before it.
type Queue struct {
	mu       sync.Mutex
	pending  []*Operation
	draining bool
	closed   bool
	idle     chan struct{}
	logger   *log.Logger
}

// NewQueue creates an idle queue.
func NewQueue(logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.Default()
	}

	idle := make(chan struct{})
	close(idle)

	return &Queue{idle: idle, logger: logger}
}

// Enqueue appends the operation and wakes the drainer if none is running.
func (q *Queue) Enqueue(op *Operation) error {
	if op == nil || op.Run == nil {
		return fmt.Errorf("%w: operation has no body", shared.ErrInvalidInput)
	}

	if op.ID == "" {
		op.ID = shared.GenerateID()
	}

	op.done = make(chan error, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return shared.ErrQueueClosed
	}

	q.pending = append(q.pending, op)
	metrics.QueueDepth.Set(float64(len(q.pending)))

	if !q.draining {
		q.draining = true
		q.idle = make(chan struct{})
		go q.drain()
	}
	q.mu.Unlock()

	return nil
}

// Submit enqueues the operation and blocks until it has run.
func (q *Queue) Submit(op *Operation) error {
	if err := q.Enqueue(op); err != nil {
		return err
	}
	return <-op.done
}

// Len returns the number of operations waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until the queue has fully drained.
func (q *Queue) Wait() {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	<-idle
}

// Close rejects further operations and waits for the in-flight drain to
// finish. Pending operations still run.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.Wait()
}

// drain runs queued operations one at a time. After each operation it
// re-checks the queue: operations enqueued mid-drain are picked up by the
// same goroutine, keeping execution single-file.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			close(q.idle)
			q.mu.Unlock()
			return
		}

		op := q.pending[0]
		q.pending = q.pending[1:]
		metrics.QueueDepth.Set(float64(len(q.pending)))
		q.mu.Unlock()

		err := q.runOne(op)
		if err != nil {
			q.logger.Error("sync operation failed", "op", op.Label, "error", err)
		}

		op.done <- err
		close(op.done)
	}
}

// runOne executes a single operation, converting a panic into an error so
// one bad operation cannot kill the drainer.
func (q *Queue) runOne(op *Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync operation panicked: %v", r)
		}
	}()

	return op.Run(context.Background())
}
