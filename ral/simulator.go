package ral

import (
	"context"
	"errors"
	"sync"
	"time"
)

// opKind distinguishes the operation most recently configured.
type opKind int

const (
	opNone opKind = iota
	opTxLoRa
	opRxLoRa
	opTxGFSK
	opRxGFSK
)

// Simulator is a Radio implementation that fakes TxDone/RxDone/RxTimeout/
// CrcError delivery on a goroutine-driven timer, used by cmd/lr1mac-sim
// and by mac/planner tests in place of real SPI-attached hardware.
// Grounded on the worker-goroutine + IRQ-flag polling idiom of a real
// sx1276 driver's Radio.worker, reduced to a single timer since the
// simulator has no physical register IRQ to poll.
type Simulator struct {
	mu sync.Mutex

	op        opKind
	txParams  LoRaTXParams
	rxParams  LoRaRXParams
	timeoutMs int

	irqCh chan irqEvent

	// NextRxResult, when set, is delivered on the next RX completion
	// instead of a timeout; tests drive downlink scenarios by setting
	// this before calling Start.
	NextRxResult *Result

	cancel context.CancelFunc
}

type irqEvent struct {
	irq IRQ
	res Result
}

// NewSimulator returns a Simulator with no operation armed.
func NewSimulator() *Simulator {
	return &Simulator{irqCh: make(chan irqEvent, 1)}
}

// ConfigureTxLoRa implements Radio.
func (s *Simulator) ConfigureTxLoRa(p LoRaTXParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.op = opTxLoRa
	s.txParams = p
	return nil
}

// ConfigureRxLoRa implements Radio.
func (s *Simulator) ConfigureRxLoRa(p LoRaRXParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.op = opRxLoRa
	s.rxParams = p
	s.timeoutMs = p.TimeoutMs
	return nil
}

// ConfigureTxGFSK implements Radio.
func (s *Simulator) ConfigureTxGFSK(p GFSKTXParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.op = opTxGFSK
	return nil
}

// ConfigureRxGFSK implements Radio.
func (s *Simulator) ConfigureRxGFSK(p GFSKRXParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.op = opRxGFSK
	s.timeoutMs = p.TimeoutMs
	return nil
}

// Start implements Radio. It schedules a simulated IRQ on a goroutine
// timer: TxDone ~instantly for TX operations, RxDone/RxTimeout according
// to NextRxResult for RX operations.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	op := s.op
	next := s.NextRxResult
	s.NextRxResult = nil
	timeoutMs := s.timeoutMs
	s.mu.Unlock()

	if op == opNone {
		return errors.New("ral: no operation configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		switch op {
		case opTxLoRa, opTxGFSK:
			select {
			case <-runCtx.Done():
				return
			case <-time.After(time.Millisecond):
				s.deliver(IRQTxDone, Result{})
			}
		case opRxLoRa, opRxGFSK:
			d := time.Duration(timeoutMs) * time.Millisecond
			if next != nil {
				d = time.Millisecond
			}
			select {
			case <-runCtx.Done():
				return
			case <-time.After(d):
				if next != nil {
					s.deliver(IRQRxDone, *next)
				} else {
					s.deliver(IRQRxTimeout, Result{})
				}
			}
		}
	}()

	return nil
}

func (s *Simulator) deliver(irq IRQ, res Result) {
	select {
	case s.irqCh <- irqEvent{irq: irq, res: res}:
	default:
	}
}

// Stop implements Radio.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.op = opNone
	return nil
}

// IRQStatus implements Radio.
func (s *Simulator) IRQStatus(ctx context.Context) (IRQ, Result, error) {
	select {
	case ev := <-s.irqCh:
		return ev.irq, ev.res, nil
	case <-ctx.Done():
		return IRQNone, Result{}, ctx.Err()
	}
}
