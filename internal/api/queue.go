package api

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrQueueNotRunning = errors.New("queue is not running")
	ErrQueueFull       = errors.New("queue is full")
)

// RequestQueue runs scenario tasks one at a time, since they share one browser
type RequestQueue struct {
	tasks     chan *RequestTask
	mu        sync.RWMutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processor TaskProcessor
}

// TaskProcessor defines the interface for processing tasks
type TaskProcessor interface {
	ProcessTask(ctx context.Context, task *RequestTask) *TaskResponse
}

// NewRequestQueue creates a queue holding up to size pending tasks
func NewRequestQueue(processor TaskProcessor, size int) *RequestQueue {
	if size <= 0 {
		size = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RequestQueue{
		tasks:     make(chan *RequestTask, size),
		ctx:       ctx,
		cancel:    cancel,
		processor: processor,
	}
}

// Start begins processing requests from the queue
func (q *RequestQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return errors.New("queue is already running")
	}

	q.running = true
	q.wg.Add(1)

	go q.processLoop()
	log.Debug("Request queue started")
	return nil
}

// Stop cancels the running task and waits for the worker to exit
func (q *RequestQueue) Stop() error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return ErrQueueNotRunning
	}
	q.running = false
	close(q.tasks)
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	log.Debug("Request queue stopped")
	return nil
}

// AddTask adds a new task to the queue
func (q *RequestQueue) AddTask(task *RequestTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.running {
		return ErrQueueNotRunning
	}

	select {
	case q.tasks <- task:
		log.Debugf("Task %s added to queue", task.ID)
		return nil
	default:
		return ErrQueueFull
	}
}

// processLoop is the main processing loop that handles tasks sequentially
func (q *RequestQueue) processLoop() {
	defer q.wg.Done()

	for task := range q.tasks {
		if q.ctx.Err() != nil {
			q.reply(task, &TaskResponse{Error: q.ctx.Err()})
			continue
		}

		log.Debugf("Processing task %s", task.ID)
		startTime := time.Now()

		parent := task.Context
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithCancel(parent)
		stop := context.AfterFunc(q.ctx, cancel)
		response := q.processor.ProcessTask(ctx, task)
		stop()
		cancel()

		response.Duration = time.Since(startTime)
		log.Debugf("Task %s completed in %v", task.ID, response.Duration)
		q.reply(task, response)
	}
}

// reply never blocks; Response is expected to be buffered.
func (q *RequestQueue) reply(task *RequestTask, response *TaskResponse) {
	select {
	case task.Response <- response:
	default:
		log.Debugf("Nobody is waiting for task %s", task.ID)
	}
}

// GetQueueLength returns the current number of tasks in the queue
func (q *RequestQueue) GetQueueLength() int {
	return len(q.tasks)
}

// IsRunning returns whether the queue is currently running
func (q *RequestQueue) IsRunning() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.running
}
