// Package mac implements the LoRaWAN Class A MAC engine: frame build and
// encrypt, frame decode and authenticate, RX window timing, MAC command
// parsing, ADR, confirmed-uplink retransmission, the Join procedure with
// regulatory back-off, and the per-uplink state machine. It consumes
// band.Band, seckeys, ral.Radio (via planner.Planner), nvm.Store and
// bsp.Clock/bsp.Trace as narrow, non-owning collaborators.
package mac

import "github.com/pkg/errors"

// ErrorKind tags an *Error with its error-handling category, so callers
// can decide policy (discard-and-continue vs. retry vs. fatal) without
// parsing message text.
type ErrorKind int

// Supported error kinds.
const (
	// Protocol covers wrong MType, bad DevAddr, bad MIC, replayed or
	// out-of-window FCnt, oversize FOpts: discard the frame, keep going.
	Protocol ErrorKind = iota
	// Config covers invalid DR/freq/power/offset in a MAC command:
	// answered with cleared status bits, session state unchanged.
	Config
	// SchedulerBusy means the planner refused an enqueue; the caller
	// should retry on the next tick.
	SchedulerBusy
	// LinkLost means the ADR fallback counters exceeded NO_RX_PACKET_CNT;
	// fatal to the current session, the caller should re-Join.
	LinkLost
	// Fatal covers unknown planner status, unsupported modulation, or an
	// unreachable internal state: reported via the platform panic hook.
	Fatal
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case Protocol:
		return "protocol"
	case Config:
		return "config"
	case SchedulerBusy:
		return "scheduler_busy"
	case LinkLost:
		return "link_lost"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the tagged-variant error the MAC engine raises, carrying
// enough context for trace logs without a bespoke error-object
// hierarchy.
type Error struct {
	Kind ErrorKind
	msg  string
	err  error
}

// newError builds an *Error of the given kind, wrapping cause if present.
func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, msg: msg, err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.Kind.String() + ": " + e.err.Error()
	}
	return e.Kind.String() + ": " + e.msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// wrap attaches call-chain context to err using pkg/errors, then tags the
// result with kind.
func wrap(kind ErrorKind, err error, msg string) *Error {
	return newError(kind, msg, errors.Wrap(err, msg))
}
