package schedule

import (
	"bytes"
	"container/heap"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"log/slog"
	"sync"
	"time"
)

// ErrBufferAcquisition marks a task whose pixel buffer could not be
// obtained: undecodable image bytes or a missing page buffer. It is fatal to
// that single task only.
var ErrBufferAcquisition = errors.New("cannot acquire pixel buffer")

// ErrClosed is returned by Enqueue after the producer has signaled that no
// more tasks are coming.
var ErrClosed = errors.New("scheduler is no longer accepting tasks")

// Detector is the detection engine contract the scheduler drives.
type Detector interface {
	Detect(img image.Image) []string
}

type state int

const (
	stateOpen state = iota
	stateDraining
	stateClosed
)

// fileProgress tracks per-file fragment completion for progress events.
type fileProgress struct {
	expected  int
	processed int
}

// Scheduler owns the priority queue and the single processing loop. All
// mutable cross-task state (queue, counters, state flags) lives behind one
// mutex and is touched only at task boundaries; the task being processed is
// exclusively owned by the loop.
type Scheduler struct {
	detector Detector
	obs      Observer

	mu      sync.Mutex
	cond    *sync.Cond
	queue   entryHeap
	nextSeq uint64
	st      state

	processed int
	files     map[string]*fileProgress
}

// New creates a Scheduler in the Open state. Run must be called for tasks to
// be processed.
func New(detector Detector, obs Observer) *Scheduler {
	s := &Scheduler{
		detector: detector,
		obs:      obs,
		files:    make(map[string]*fileProgress),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Enqueue adds a task with the given priority. Higher priorities are
// processed first; equal priorities in arrival order. Enqueue fails with
// ErrClosed once SignalNoMoreTasks has been called.
func (s *Scheduler) Enqueue(task Task, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st != stateOpen {
		return ErrClosed
	}

	if pf, ok := task.(PageFragment); ok {
		if _, declared := s.files[pf.FileID]; !declared {
			s.files[pf.FileID] = &fileProgress{expected: pf.TotalPages}
		}
	}

	heap.Push(&s.queue, &entry{task: task, priority: priority, seq: s.nextSeq})
	s.nextSeq++
	s.cond.Signal()
	return nil
}

// SignalNoMoreTasks latches the producer-done flag. Queued tasks still run;
// once the queue drains, the run loop emits the single completion event and
// returns.
func (s *Scheduler) SignalNoMoreTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st == stateOpen {
		s.st = stateDraining
	}
	s.cond.Signal()
}

// Run processes tasks until the producer has signaled completion and the
// queue is empty, then emits OnAllDone and returns nil. Exactly one task is
// active at any moment; a popped task always runs to completion or failure.
//
// Cancelling ctx stops the loop between tasks and returns the context's
// error without emitting a completion event.
func (s *Scheduler) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && s.st == stateOpen && ctx.Err() == nil {
			s.cond.Wait()
		}
		if ctx.Err() != nil {
			s.mu.Unlock()
			return ctx.Err()
		}
		if len(s.queue) == 0 {
			// Producer done and queue drained: Draining -> Closed.
			s.st = stateClosed
			total := s.processed
			s.mu.Unlock()
			s.obs.OnAllDone(total)
			return nil
		}
		e := heap.Pop(&s.queue).(*entry)
		s.mu.Unlock()

		s.runTask(e.task)
	}
}

// runTask processes one task and emits its result and, for fragments, a
// progress event. Failures of any kind are converted into an error-status
// result; they never propagate.
func (s *Scheduler) runTask(task Task) {
	start := time.Now()
	payloads, err := s.detectTask(task)

	res := Result{
		Key:     task.Key(),
		Elapsed: time.Since(start),
	}
	switch {
	case err != nil:
		res.Status = StatusError
		res.Err = err.Error()
	case len(payloads) == 0:
		res.Status = StatusNoCode
	default:
		res.Status = StatusSuccess
		res.Payloads = payloads
	}

	var progress *fileProgress
	s.mu.Lock()
	s.processed++
	pf, isFragment := task.(PageFragment)
	if isFragment {
		res.FileID = pf.FileID
		res.Page = pf.Page
		res.TotalPages = pf.TotalPages
		fp := s.files[pf.FileID]
		fp.processed++
		progress = &fileProgress{expected: fp.expected, processed: fp.processed}
	}
	s.mu.Unlock()

	if res.Status == StatusError {
		slog.Warn("detection task failed", "key", res.Key, "error", res.Err)
	}

	s.obs.OnResult(res)
	if isFragment {
		s.obs.OnProgress(pf.FileID, progress.processed, progress.expected, pf.Page)
	}
}

// detectTask acquires the task's pixel buffer and runs it through the
// detection engine. A panic anywhere below is recovered into an error so one
// bad page never blocks the rest of the queue.
func (s *Scheduler) detectTask(task Task) (payloads []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Key(), r)
		}
	}()

	switch t := task.(type) {
	case SingleImage:
		img, _, derr := image.Decode(bytes.NewReader(t.Data))
		if derr != nil {
			return nil, fmt.Errorf("%w: decoding %s: %v", ErrBufferAcquisition, t.SourceID, derr)
		}
		return s.detector.Detect(img), nil
	case PageFragment:
		if t.Buffer == nil {
			return nil, fmt.Errorf("%w: page %d of %s has no buffer", ErrBufferAcquisition, t.Page, t.FileID)
		}
		return s.detector.Detect(t.Buffer), nil
	default:
		return nil, fmt.Errorf("unhandled task type %T", task)
	}
}
