package bsp

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Trace is the tracing facility the MAC engine logs through. Tracing
// must be replaceable without changing engine behavior, so Trace is a
// thin, structured wrapper around a logrus.FieldLogger rather than a
// bespoke ad-hoc printf.
type Trace struct {
	log       logrus.FieldLogger
	sessionID string
}

// NewTrace builds a Trace backed by the given logger. A fresh per-session
// correlation id is minted so that a device's trace lines survive re-Join
// under a new Session without losing the ability to group by attempt.
func NewTrace(log logrus.FieldLogger) *Trace {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Trace{log: log, sessionID: uuid.NewString()}
}

// NewSession mints a fresh session id, called on every successful Join.
func (t *Trace) NewSession() {
	t.sessionID = uuid.NewString()
}

func (t *Trace) fields(extra logrus.Fields) logrus.Fields {
	f := logrus.Fields{"session_id": t.sessionID}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

// Debug logs a MAC-engine entry point.
func (t *Trace) Debug(msg string, fields logrus.Fields) {
	t.log.WithFields(t.fields(fields)).Debug(msg)
}

// Warn logs a protocol error that was locally recovered.
func (t *Trace) Warn(msg string, fields logrus.Fields) {
	t.log.WithFields(t.fields(fields)).Warn(msg)
}

// Error logs a fatal condition immediately before the platform panic hook
// fires.
func (t *Trace) Error(msg string, fields logrus.Fields) {
	t.log.WithFields(t.fields(fields)).Error(msg)
}
