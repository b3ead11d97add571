package mac

import (
	"github.com/loraedge/lr1mac/lorawan"
)

// unsetFCntDown is the sentinel value meaning "no downlink accepted yet
// in this session".
const unsetFCntDown uint32 = 0xFFFFFFFF

// DeviceIdentity is immutable after provisioning.
type DeviceIdentity struct {
	DevEUI   lorawan.EUI64
	JoinEUI  lorawan.EUI64
	AppKey   lorawan.AES128Key
	DevNonce lorawan.DevNonce
}

// Session is created on Join-Accept, mutated only by the engine under a
// planner callback, and destroyed/reset on the next successful Join.
type Session struct {
	DevAddr lorawan.DevAddr
	NwkSKey lorawan.AES128Key
	AppSKey lorawan.AES128Key

	FCntUp   uint32
	FCntDown uint32

	EnabledChannels []int
	TXDataRate      int
	TXPowerIndex    int
	NbTrans         uint8

	RX1DROffset int
	RX2DataRate int
	RX2Freq     int
	RxDelay     uint8

	MaxEIRP           float32
	UplinkDwellTime   bool
	DownlinkDwellTime bool
	MaxDutyCycleIndex uint8

	// Sticky answers persist across uplinks until an ACK is observed
	// from the network (RXParamSetupAns, DLChannelAns, RXTimingSetupAns,
	// TXParamSetupAns). Transient answers (LinkADRAns, DevStatusAns,
	// NewChannelAns) are cleared once sent.
	stickyAnswers    []lorawan.MACCommand
	transientAnswers []lorawan.MACCommand

	ADRAckCnt          int
	ADRAckCntConfirmed int
	NbTransCpt         uint8

	LinkCheckPending bool
	ResetIndPending  *lorawan.ResetIndPayload
}

// newSession returns a freshly reset Session, as required immediately
// after a successful Join-Accept: FCntUp=0, FCntDown=unset, FOpts
// queues empty, ADR counters zero.
func newSession() *Session {
	return &Session{
		FCntUp:     0,
		FCntDown:   unsetFCntDown,
		NbTrans:    1,
		NbTransCpt: 1,
	}
}

// queueSticky appends/replaces a sticky answer, keyed by CID so a later
// command of the same type supersedes an earlier unacknowledged one.
func (s *Session) queueSticky(cmd lorawan.MACCommand) {
	for i, c := range s.stickyAnswers {
		if c.CID == cmd.CID {
			s.stickyAnswers[i] = cmd
			return
		}
	}
	s.stickyAnswers = append(s.stickyAnswers, cmd)
}

func (s *Session) queueTransient(cmd lorawan.MACCommand) {
	s.transientAnswers = append(s.transientAnswers, cmd)
}

// clearSticky drops the sticky answer queue, called after a downlink is
// successfully authenticated.
func (s *Session) clearSticky() {
	s.stickyAnswers = nil
}

// pendingAnswers returns sticky+transient answers in queue order and
// clears the transient queue (sticky answers survive until explicitly
// cleared by clearSticky).
func (s *Session) pendingAnswers() []lorawan.MACCommand {
	out := append([]lorawan.MACCommand{}, s.stickyAnswers...)
	out = append(out, s.transientAnswers...)
	s.transientAnswers = nil
	return out
}
