package systems

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Describes a job to be run. Run executes on a worker goroutine and
 * must not touch the GPU. OnComplete or OnFailure run later on the goroutine
 * that calls Update, which is the render thread.
 */
type JobTask struct {
	/** @brief Used in log lines. */
	Name string
	/** @brief Required. The context is cancelled when the system shuts down. */
	Run func(ctx context.Context) (interface{}, error)
	/** @brief Optional. Receives the value returned by Run. */
	OnComplete func(result interface{})
	/** @brief Optional. Receives the error returned by Run. */
	OnFailure func(err error)
}

type jobResult struct {
	id     uuid.UUID
	task   JobTask
	result interface{}
	err    error
}

type queuedJob struct {
	id   uuid.UUID
	task JobTask
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan queuedJob
	wg         sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// sendMu keeps the queue open while a Submit is sending.
	sendMu sync.RWMutex

	mu       sync.Mutex
	closed   bool
	results  []jobResult
	inFlight int
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = errors.New("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan queuedJob, channelSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	js.start()
	core.LogInfo("job system started with %d workers", numWorkers)

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				result, err := job.task.Run(js.ctx)
				if err != nil {
					core.LogError("job %s (%s) failed: %s", job.task.Name, core.ShortIdentifier(job.id), err)
				}
				js.mu.Lock()
				js.results = append(js.results, jobResult{id: job.id, task: job.task, result: result, err: err})
				js.mu.Unlock()
			}
		}()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run, but their
 * callbacks are dropped.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	js.mu.Unlock()

	js.cancel()
	js.sendMu.Lock()
	close(js.jobQueue)
	js.sendMu.Unlock()
	js.wg.Wait()

	js.mu.Lock()
	js.results = nil
	js.inFlight = 0
	js.mu.Unlock()
	return nil
}

/**
 * @brief Updates the job system. Should happen once an update cycle.
 * Runs the callbacks of every job finished since the last call, in
 * completion order.
 */
func (js *JobSystem) Update() {
	js.mu.Lock()
	results := js.results
	js.results = nil
	js.inFlight -= len(results)
	js.mu.Unlock()

	for _, r := range results {
		if r.err != nil {
			if r.task.OnFailure != nil {
				r.task.OnFailure(r.err)
			}
			continue
		}
		if r.task.OnComplete != nil {
			r.task.OnComplete(r.result)
		}
	}
}

// Pending is the number of submitted jobs whose callbacks have not run yet.
func (js *JobSystem) Pending() int {
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.inFlight
}

func (js *JobSystem) enqueue() (uuid.UUID, error) {
	js.mu.Lock()
	defer js.mu.Unlock()
	if js.closed {
		return uuid.Nil, ErrJobSystemClosed
	}
	js.inFlight++
	return core.NewIdentifier(), nil
}

// AddWorkNonBlocking queues the job from a new goroutine and returns
// immediately.
func (js *JobSystem) AddWorkNonBlocking(jt JobTask) {
	go func() {
		if _, err := js.Submit(jt); err != nil {
			core.LogWarn("job %s dropped: %s", jt.Name, err)
		}
	}()
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt JobTask) (uuid.UUID, error) {
	if jt.Run == nil {
		return uuid.Nil, errors.New("job has no Run function")
	}
	js.sendMu.RLock()
	defer js.sendMu.RUnlock()
	id, err := js.enqueue()
	if err != nil {
		return uuid.Nil, err
	}
	js.jobQueue <- queuedJob{id: id, task: jt}
	return id, nil
}
