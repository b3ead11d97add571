package mac

import (
	"github.com/loraedge/lr1mac/band"
	"github.com/loraedge/lr1mac/bsp"
	"github.com/loraedge/lr1mac/nvm"
	"github.com/loraedge/lr1mac/planner"
	"github.com/loraedge/lr1mac/ral"
)

// Config bundles the collaborators and provisioning data mac.New needs.
// There is no file/env parsing here: this is a library, embedded by
// cmd/lr1mac-sim or any other supervisor, not a daemon.
type Config struct {
	Identity DeviceIdentity
	Region   band.Band
	Planner  *planner.Planner
	Store    nvm.Store
	Clock    bsp.Clock
	Trace    *bsp.Trace

	// BypassJoin, when set, lets the engine emit data frames without a
	// prior successful Join. A test-only escape hatch; never set outside
	// test harnesses.
	BypassJoin bool
}

// Engine is the MAC engine: a value with explicit non-owning references
// to its collaborators rather than global-ish static state.
type Engine struct {
	identity DeviceIdentity
	region   band.Band
	planner  *planner.Planner
	store    nvm.Store
	clock    bsp.Clock
	trace    *bsp.Trace

	bypassJoin bool

	hookID int
	joined bool

	session *Session
	state   State

	pending pendingUplink

	joinAttempts  int
	firstJoinAtMs int64
	nextJoinAtMs  int64

	dutyCycleTimeOffMs   int64
	dutyCycleTimestampMs int64

	isrTimestampMs int64
	rx1Valid       bool
	downlinkValid  bool
	lastResult     ral.Result
}

// New builds an Engine, registers its planner hook, and loads any
// persisted session/device state from cfg.Store.
func New(cfg Config) (*Engine, error) {
	e := &Engine{
		identity:   cfg.Identity,
		region:     cfg.Region,
		planner:    cfg.Planner,
		store:      cfg.Store,
		clock:      cfg.Clock,
		trace:      cfg.Trace,
		bypassJoin: cfg.BypassJoin,
		state:      Idle,
	}

	hookID, err := e.planner.RegisterHook(e.onRadioEvent)
	if err != nil {
		return nil, wrap(Fatal, err, "mac: register planner hook")
	}
	e.hookID = hookID

	if st, err := e.store.Load(); err == nil {
		e.identity.DevNonce = st.DevNonce
		if st.Joined {
			e.session = &Session{
				DevAddr:           st.DevAddr,
				NwkSKey:           st.NwkSKey,
				AppSKey:           st.AppSKey,
				FCntUp:            st.FCntUp,
				FCntDown:          st.FCntDown,
				EnabledChannels:   st.EnabledChannels,
				TXDataRate:        st.TXDataRate,
				RX1DROffset:       st.RX1DROffset,
				RX2DataRate:       st.RX2DataRate,
				RX2Freq:           st.RX2Freq,
				RxDelay:           st.RXDelay,
				MaxEIRP:           st.MaxEIRP,
				UplinkDwellTime:   st.UplinkDwellTime,
				DownlinkDwellTime: st.DownlinkDwellTime,
				NbTrans:           st.NbTrans,
				NbTransCpt:        1,
			}
			e.joined = true
		}
	}

	return e, nil
}

// checkpoint persists the current device/session state to NVM.
func (e *Engine) checkpoint() error {
	st := nvm.State{
		DevNonce: e.identity.DevNonce,
		Joined:   e.joined,
	}
	if e.session != nil {
		st.NwkSKey = e.session.NwkSKey
		st.AppSKey = e.session.AppSKey
		st.DevAddr = e.session.DevAddr
		st.FCntUp = e.session.FCntUp
		st.FCntDown = e.session.FCntDown
		st.EnabledChannels = e.session.EnabledChannels
		st.TXDataRate = e.session.TXDataRate
		st.RX1DROffset = e.session.RX1DROffset
		st.RX2DataRate = e.session.RX2DataRate
		st.RX2Freq = e.session.RX2Freq
		st.RXDelay = e.session.RxDelay
		st.MaxEIRP = e.session.MaxEIRP
		st.UplinkDwellTime = e.session.UplinkDwellTime
		st.DownlinkDwellTime = e.session.DownlinkDwellTime
		st.NbTrans = e.session.NbTrans
	}
	return e.store.Save(st)
}
