// Package planner implements the Radio Planner: the single-radio
// cooperative scheduler. It serializes access to the shared radio,
// accepts tasks from N registered hooks, and delivers completion to
// the owning hook with a status code.
//
// Grounded on radio_planner_bsp.h's
// rp_bsp_critical_section_begin/end + rp_bsp_timer_start pairing for
// the "one mutex guards the busy flag and task queue" rule, and on a
// sync.Mutex-guarded-running + stopChan idiom for managing a driver
// goroutine's lifecycle.
package planner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/loraedge/lr1mac/bsp"
	"github.com/loraedge/lr1mac/ral"
)

// TaskType is the radio operation a task requests.
type TaskType int

// Supported task types.
const (
	TxLoRa TaskType = iota
	TxFSK
	RxLoRa
	RxFSK
)

// TaskState selects ASAP or SCHEDULED-at-deadline semantics.
type TaskState int

// Supported task states.
const (
	ASAP TaskState = iota
	SCHEDULED
)

// Status is the outcome the planner reports to a hook's callback.
type Status int

// Supported statuses.
const (
	TxDone Status = iota
	RxPacket
	RxTimeout
	RxCRCError
	Aborted
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case TxDone:
		return "TX_DONE"
	case RxPacket:
		return "RX_PACKET"
	case RxTimeout:
		return "RX_TIMEOUT"
	case RxCRCError:
		return "RX_CRC_ERROR"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// ErrBusy is returned by Enqueue when the radio is not free for the
// requested slot.
var ErrBusy = errors.New("planner: radio busy")

// ErrNoSlots is returned by RegisterHook when no hook slots remain.
var ErrNoSlots = errors.New("planner: out of hook slots")

const maxHooks = 8

// Task describes a single radio operation request.
type Task struct {
	Type           TaskType
	State          TaskState
	StartTimeMs    int64
	DurationTimeMs int64

	LoRaTX LoRaTXParams
	LoRaRX LoRaRXParams
	GFSKTX GFSKTXParams
	GFSKRX GFSKRXParams
}

// LoRaTXParams, LoRaRXParams, GFSKTXParams and GFSKRXParams alias the ral
// bundle types so callers do not need to import ral directly just to
// build a Task.
type (
	LoRaTXParams = ral.LoRaTXParams
	LoRaRXParams = ral.LoRaRXParams
	GFSKTXParams = ral.GFSKTXParams
	GFSKRXParams = ral.GFSKRXParams
)

// Callback is the narrow capability a hook supplies at registration: a
// single entry-point "on_radio_event(hook_id, status)", favoring a
// tagged-variant dispatcher over a wider interface.
type Callback func(hookID int, status Status, t0Ms int64, result ral.Result)

type hook struct {
	cb Callback
}

type pendingTask struct {
	hookID int
	task   Task
}

// Planner is the single-radio scheduler. It owns the radio exclusively;
// callers never talk to ral.Radio directly once a Planner exists.
type Planner struct {
	mu sync.Mutex // guards everything below — the single "radio busy" critical section

	radio ral.Radio
	clock bsp.Clock

	hooks []*hook
	busy  bool

	current *pendingTask

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New returns a Planner driving radio, using clock for scheduling
// decisions.
func New(radio ral.Radio, clock bsp.Clock) *Planner {
	p := &Planner{
		radio:  radio,
		clock:  clock,
		stopCh: make(chan struct{}),
	}
	return p
}

// RegisterHook reserves a hook slot and returns its id, or ErrNoSlots if
// none remain.
func (p *Planner) RegisterHook(cb Callback) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.hooks) >= maxHooks {
		return 0, ErrNoSlots
	}
	p.hooks = append(p.hooks, &hook{cb: cb})
	return len(p.hooks) - 1, nil
}

// Enqueue submits a task on behalf of hookID. SCHEDULED tasks win any
// overlap with a currently in-flight ASAP task: the in-flight task is
// aborted and Enqueue proceeds to arm the new one. Two requests that
// both land on an occupied SCHEDULED slot return ErrBusy.
func (p *Planner) Enqueue(hookID int, task Task) error {
	p.mu.Lock()

	if hookID < 0 || hookID >= len(p.hooks) {
		p.mu.Unlock()
		return errors.New("planner: unknown hook id")
	}

	if p.busy {
		if task.State != SCHEDULED || (p.current != nil && p.current.task.State == SCHEDULED) {
			p.mu.Unlock()
			return ErrBusy
		}
		// SCHEDULED wins on overlap: abort the loser in its own slot.
		loser := p.current
		p.abortLocked()
		p.mu.Unlock()
		if loser != nil {
			p.deliver(loser.hookID, Aborted, p.clock.NowMs(), ral.Result{})
		}
		p.mu.Lock()
	}

	p.busy = true
	p.current = &pendingTask{hookID: hookID, task: task}
	p.mu.Unlock()

	if err := p.configure(task); err != nil {
		return err
	}

	now := p.clock.NowMs()
	delay := time.Duration(0)
	if task.State == SCHEDULED && task.StartTimeMs > now {
		delay = time.Duration(task.StartTimeMs-now) * time.Millisecond
	}

	p.wg.Add(1)
	go p.run(hookID, task, delay)

	return nil
}

func (p *Planner) configure(task Task) error {
	switch task.Type {
	case TxLoRa:
		return p.radio.ConfigureTxLoRa(task.LoRaTX)
	case RxLoRa:
		return p.radio.ConfigureRxLoRa(task.LoRaRX)
	case TxFSK:
		return p.radio.ConfigureTxGFSK(task.GFSKTX)
	case RxFSK:
		return p.radio.ConfigureRxGFSK(task.GFSKRX)
	default:
		return errors.New("planner: unknown task type")
	}
}

func (p *Planner) run(hookID int, task Task, delay time.Duration) {
	defer p.wg.Done()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-p.stopCh:
			timer.Stop()
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(task.DurationTimeMs)*time.Millisecond)
	defer cancel()

	if err := p.radio.Start(ctx); err != nil {
		p.finishAborted(hookID)
		return
	}

	irq, result, err := p.radio.IRQStatus(ctx)
	t0 := p.clock.NowMs()

	p.mu.Lock()
	stillCurrent := p.current != nil && p.current.hookID == hookID
	if stillCurrent {
		p.busy = false
		p.current = nil
	}
	p.mu.Unlock()

	if !stillCurrent {
		// Aborted by a later SCHEDULED enqueue; that path already
		// delivered the Aborted status.
		return
	}

	if err != nil {
		p.deliver(hookID, RxTimeout, t0, ral.Result{})
		return
	}

	status, ok := statusForIRQ(irq)
	if !ok {
		// An unknown IRQ status is fatal.
		panic("planner: unknown IRQ status " + irq.String())
	}

	p.deliver(hookID, status, t0, result)
}

func statusForIRQ(irq ral.IRQ) (Status, bool) {
	switch irq {
	case ral.IRQTxDone:
		return TxDone, true
	case ral.IRQRxDone:
		return RxPacket, true
	case ral.IRQRxTimeout:
		return RxTimeout, true
	case ral.IRQCrcError:
		return RxCRCError, true
	default:
		return 0, false
	}
}

func (p *Planner) finishAborted(hookID int) {
	p.mu.Lock()
	if p.current != nil && p.current.hookID == hookID {
		p.busy = false
		p.current = nil
	}
	p.mu.Unlock()
	p.deliver(hookID, Aborted, p.clock.NowMs(), ral.Result{})
}

// abortLocked stops the in-flight radio operation. Caller holds p.mu.
func (p *Planner) abortLocked() {
	_ = p.radio.Stop()
	p.busy = false
	p.current = nil
}

func (p *Planner) deliver(hookID int, status Status, t0Ms int64, result ral.Result) {
	p.mu.Lock()
	var cb Callback
	if hookID >= 0 && hookID < len(p.hooks) {
		cb = p.hooks[hookID].cb
	}
	p.mu.Unlock()

	if cb != nil {
		cb(hookID, status, t0Ms, result)
	}
}

// Busy returns the current simulated time and whether the radio is
// currently busy. The last delivered status is not tracked centrally
// (delivery is push-based via Callback).
func (p *Planner) Busy() (t_current_ms int64, busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock.NowMs(), p.busy
}

// Close stops any in-flight operation and waits for the run goroutine to
// return.
func (p *Planner) Close() {
	close(p.stopCh)
	p.mu.Lock()
	if p.current != nil {
		_ = p.radio.Stop()
	}
	p.mu.Unlock()
	p.wg.Wait()
}
