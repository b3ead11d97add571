package mac

import (
	"container/heap"
	"sync"
	"time"
)

// TaskID names the kind of work a Task drives into the Engine, restoring
// just enough of modem_supervisor.h's task vocabulary to run an Engine
// end-to-end without reimplementing FUOTA/stream/ALCSync tasks.
type TaskID int

// Supported task kinds.
const (
	SendTask TaskID = iota
	JoinTask
	RetrieveDownlinkTask
)

func (id TaskID) String() string {
	switch id {
	case SendTask:
		return "SEND_TASK"
	case JoinTask:
		return "JOIN_TASK"
	case RetrieveDownlinkTask:
		return "RETRIEVE_DL_TASK"
	default:
		return "UNKNOWN_TASK"
	}
}

// TaskPriority orders ready tasks competing for the same RunAt slot.
// Lower values run first.
type TaskPriority int

// Supported priorities, highest to lowest.
const (
	PriorityHigh TaskPriority = iota
	PriorityNormal
	PriorityLow
)

// Task is a single unit of supervisor-scheduled work.
type Task struct {
	ID       TaskID
	Priority TaskPriority
	RunAt    time.Time

	// Confirmed/FPort/Payload are only meaningful for SendTask.
	Confirmed bool
	FPort     uint8
	Payload   []byte
}

// Supervisor is a minimal single-goroutine scheduler holding a priority
// queue of Tasks and driving an Engine at the earliest ready one,
// restoring modem_supervisor.h's role without its file-upload/stream
// tasks (no FUOTA, no application-layer clock sync).
type Supervisor struct {
	mu     sync.Mutex
	engine *Engine
	queue  taskQueue
	wake   chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup

	now func() time.Time
}

// NewSupervisor returns a Supervisor driving engine.
func NewSupervisor(engine *Engine) *Supervisor {
	return &Supervisor{
		engine: engine,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

// Enqueue adds a task to the schedule and wakes the run loop if it might
// now be the earliest ready task.
func (s *Supervisor) Enqueue(t Task) {
	s.mu.Lock()
	heap.Push(&s.queue, t)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drains the task queue until Close is called, dispatching each task
// to the Engine at its RunAt time in priority order.
func (s *Supervisor) Run() {
	s.wg.Add(1)
	defer s.wg.Done()

	for {
		s.mu.Lock()
		var next *Task
		if len(s.queue) > 0 {
			t := s.queue[0]
			next = &t
		}
		s.mu.Unlock()

		var timer <-chan time.Time
		if next != nil {
			d := next.RunAt.Sub(s.now())
			if d <= 0 {
				s.mu.Lock()
				t := heap.Pop(&s.queue).(Task)
				s.mu.Unlock()
				s.dispatch(t)
				continue
			}
			tm := time.NewTimer(d)
			defer tm.Stop()
			timer = tm.C
		}

		select {
		case <-s.stopCh:
			return
		case <-s.wake:
		case <-timer:
		}
	}
}

// Close stops the run loop and waits for it to exit.
func (s *Supervisor) Close() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Supervisor) dispatch(t Task) {
	switch t.ID {
	case JoinTask:
		_ = s.engine.BuildJoinRequest()
	case SendTask:
		_ = s.engine.Send(t.Confirmed, t.FPort, t.Payload)
	case RetrieveDownlinkTask:
		// a bare class-A device has no standing downlink to poll beyond
		// the RX1/RX2 windows already armed by the last uplink; this
		// task exists so a supervisor script can express "wait for the
		// current cycle to finish" without special-casing SendTask.
	}
}

// taskQueue is a container/heap.Interface ordered by RunAt, then Priority.
type taskQueue []Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if !q[i].RunAt.Equal(q[j].RunAt) {
		return q[i].RunAt.Before(q[j].RunAt)
	}
	return q[i].Priority < q[j].Priority
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x interface{}) {
	*q = append(*q, x.(Task))
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	*q = old[:n-1]
	return t
}
