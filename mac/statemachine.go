package mac

import (
	"github.com/loraedge/lr1mac/planner"
	"github.com/loraedge/lr1mac/ral"
)

// State is the per-uplink state of a single transmit/receive cycle. It is
// a closed enum with a total transition function: advance refuses any
// (state, event) pair that is structurally unreachable instead of
// silently ignoring it.
type State int

// Supported states.
const (
	Idle State = iota
	TxOn
	TxFinished
	Rx1Finished
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case TxOn:
		return "TXON"
	case TxFinished:
		return "TXFINISHED"
	case Rx1Finished:
		return "RX1FINISHED"
	default:
		return "UNKNOWN"
	}
}

// event is the input alphabet advance consumes: a planner status
// delivered for the radio operation armed in the current state.
type event int

const (
	evTxDone event = iota
	evRxPacket
	evRxTimeout
	evRxCRCError
	evAborted
)

func eventFromStatus(status planner.Status) event {
	switch status {
	case planner.TxDone:
		return evTxDone
	case planner.RxPacket:
		return evRxPacket
	case planner.RxTimeout:
		return evRxTimeout
	case planner.RxCRCError:
		return evRxCRCError
	case planner.Aborted:
		return evAborted
	default:
		return evAborted
	}
}

// advance is the total transition function. It never panics on the
// (state, event) pairs planner ordering guarantees (TxDone in TxOn;
// RxDone|Timeout|CRCError|Aborted in TxFinished or Rx1Finished); any
// other combination is reported as a Fatal *Error rather than silently
// ignored.
func (e *Engine) advance(ev event) error {
	switch e.state {
	case Idle:
		return newError(Fatal, "advance called in Idle with no pending uplink", nil)

	case TxOn:
		if ev != evTxDone {
			return newError(Fatal, "expected TxDone in TxOn, got event "+eventName(ev), nil)
		}
		e.isrTimestampMs = e.clock.NowMs()
		e.state = TxFinished
		e.downlinkValid = false
		return e.armRX1()

	case TxFinished:
		switch ev {
		case evRxPacket:
			e.rx1Valid = e.tryDecode()
		case evRxTimeout, evRxCRCError, evAborted:
			e.rx1Valid = false
		default:
			return newError(Fatal, "unexpected event in TxFinished: "+eventName(ev), nil)
		}
		e.state = Rx1Finished
		if e.rx1Valid {
			e.downlinkValid = true
			return e.closeUplink()
		}
		return e.armRX2()

	case Rx1Finished:
		switch ev {
		case evRxPacket:
			e.downlinkValid = e.tryDecode()
		case evRxTimeout, evRxCRCError, evAborted:
		default:
			return newError(Fatal, "unexpected event in Rx1Finished: "+eventName(ev), nil)
		}
		return e.closeUplink()

	default:
		return newError(Fatal, "advance called from unknown state", nil)
	}
}

func eventName(ev event) string {
	switch ev {
	case evTxDone:
		return "TxDone"
	case evRxPacket:
		return "RxPacket"
	case evRxTimeout:
		return "RxTimeout"
	case evRxCRCError:
		return "RxCRCError"
	case evAborted:
		return "Aborted"
	default:
		return "?"
	}
}

// onRadioEvent is the single entry point the planner invokes on radio
// completion.
func (e *Engine) onRadioEvent(hookID int, status planner.Status, t0Ms int64, result ral.Result) {
	if hookID != e.hookID {
		return
	}

	e.lastResult = result

	if err := e.advance(eventFromStatus(status)); err != nil {
		if e.trace != nil {
			e.trace.Error("mac: state machine error", map[string]interface{}{"error": err.Error(), "state": e.state.String()})
		}
	}
}
