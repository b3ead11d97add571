package mac

import (
	"github.com/loraedge/lr1mac/lorawan"
	"github.com/loraedge/lr1mac/seckeys"
)

// DecodeResult tags what DecodeFrame produced for a received downlink:
// a Join-Accept, a network downlink, a downlink carrying MAC commands
// in FOpts, or nothing decodable.
type DecodeResult int

// Supported decode results.
const (
	DecodeNone DecodeResult = iota
	DecodeJoinAccept
	DecodeNwkRx
	DecodeUserRxFOpts
)

const maxFCntGap uint32 = 16384

// fcntDownAccept is a pure function of (stored 32-bit counter, received
// 16-bit counter): it returns the reconstructed 32-bit counter and
// whether the frame should be accepted or rejected as a replay.
func fcntDownAccept(stored uint32, received16 uint16) (candidate uint32, ok bool) {
	r := uint32(received16)

	if stored == unsetFCntDown {
		return r, true
	}

	sLow := stored & 0xFFFF
	sHigh := stored &^ 0xFFFF

	if r > sLow {
		return sHigh | r, true
	}

	if sLow-r > maxFCntGap {
		return (sHigh + (1 << 16)) | r, true
	}

	return 0, false
}

// tryDecode runs DecodeFrame over the most recently received payload and
// reports whether it constitutes a valid downlink for the purposes of
// the state machine (RX1 success suppresses RX2 arming).
func (e *Engine) tryDecode() bool {
	result, err := e.DecodeFrame(e.lastResult.Payload)
	if err != nil {
		if e.trace != nil {
			e.trace.Warn("mac: rx decode rejected", map[string]interface{}{"error": err.Error()})
		}
		return false
	}
	return result != DecodeNone
}

// DecodeFrame runs the downlink pre-checks, Join-Accept handling, FCnt
// reconstruction, MIC verification, and payload dispatch.
func (e *Engine) DecodeFrame(raw []byte) (DecodeResult, error) {
	if len(raw) == 0 {
		return DecodeNone, newError(Protocol, "empty rx payload", nil)
	}

	var phy lorawan.PHYPayload
	if err := phy.UnmarshalBinary(raw); err != nil {
		return DecodeNone, wrap(Protocol, err, "unmarshal phy payload")
	}

	switch phy.MHDR.MType {
	case lorawan.JoinRequest, lorawan.UnconfirmedDataUp, lorawan.ConfirmedDataUp:
		// A device never legally receives its own uplink MTypes.
		return DecodeNone, newError(Protocol, "received an uplink MType on downlink", nil)

	case lorawan.JoinAccept:
		return e.decodeJoinAccept(&phy)

	case lorawan.UnconfirmedDataDown, lorawan.ConfirmedDataDown:
		return e.decodeDataDown(&phy)

	default:
		return DecodeNone, newError(Protocol, "unsupported downlink MType", nil)
	}
}

func (e *Engine) decodeDataDown(phy *lorawan.PHYPayload) (DecodeResult, error) {
	if e.session == nil {
		return DecodeNone, newError(Protocol, "data downlink received without a session", nil)
	}

	macPL, ok := phy.MACPayload.(*lorawan.MACPayload)
	if !ok {
		return DecodeNone, newError(Protocol, "MACPayload is not a data payload", nil)
	}

	if macPL.FHDR.DevAddr != e.session.DevAddr {
		return DecodeNone, newError(Protocol, "DevAddr mismatch", nil)
	}

	candidate, accept := fcntDownAccept(e.session.FCntDown, uint16(macPL.FHDR.FCnt))
	if !accept {
		return DecodeNone, newError(Protocol, "replayed or out-of-window FCnt", nil)
	}
	macPL.FHDR.FCnt = candidate

	ok, err := phy.ValidateDownlinkDataMIC(lorawan.LoRaWAN1_0, 0, e.session.NwkSKey)
	if err != nil {
		return DecodeNone, wrap(Fatal, err, "validate downlink MIC")
	}
	if !ok {
		return DecodeNone, newError(Protocol, "downlink MIC mismatch", nil)
	}

	e.session.FCntDown = candidate
	e.session.ADRAckCnt = 0
	e.session.ADRAckCntConfirmed = 0
	e.session.clearSticky()

	if macPL.FHDR.FCtrl.ACK && e.pending.confirmed {
		e.session.NbTransCpt = 1
	} else if !macPL.FHDR.FCtrl.ACK {
		e.session.NbTransCpt = 1
	}

	result := DecodeNwkRx

	fport := uint8(0)
	if macPL.FPort != nil {
		fport = *macPL.FPort
	}

	if len(macPL.FHDR.FOpts) > 0 {
		stream, err := marshalFOptsStream(macPL.FHDR.FOpts)
		if err == nil {
			if _, perr := e.ParseCommands(stream, &CommandContext{Downlink: true}); perr != nil && e.trace != nil {
				e.trace.Warn("mac: fopts command parse error", map[string]interface{}{"error": perr.Error()})
			}
		}
		result = DecodeUserRxFOpts
	}

	if fport == 0 {
		if err := phy.DecryptFRMPayload(e.session.NwkSKey); err == nil {
			if dp, ok := phy.MACPayload.(*lorawan.MACPayload); ok {
				if stream, serr := marshalMACFRMStream(dp); serr == nil {
					if _, perr := e.ParseCommands(stream, &CommandContext{Downlink: true}); perr != nil && e.trace != nil {
						e.trace.Warn("mac: fport0 command parse error", map[string]interface{}{"error": perr.Error()})
					}
				}
			}
		}
	} else {
		_ = phy.DecryptFRMPayload(e.session.AppSKey)
	}

	return result, nil
}

func marshalFOptsStream(fopts []lorawan.Payload) ([]byte, error) {
	var out []byte
	for _, p := range fopts {
		b, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func marshalMACFRMStream(macPL *lorawan.MACPayload) ([]byte, error) {
	var out []byte
	for _, p := range macPL.FRMPayload {
		b, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// decodeJoinAccept handles a Join-Accept downlink: decrypt-by-encrypt,
// MIC check, field extraction, session-key derivation, RxDelay clamp,
// counter reset.
func (e *Engine) decodeJoinAccept(phy *lorawan.PHYPayload) (DecodeResult, error) {
	if err := phy.DecryptJoinAcceptPayload(e.identity.AppKey); err != nil {
		return DecodeNone, wrap(Protocol, err, "decrypt join-accept")
	}

	ok, err := phy.ValidateDownlinkJoinMIC(lorawan.JoinRequestType, e.identity.JoinEUI, e.identity.DevNonce, e.identity.AppKey)
	if err != nil {
		return DecodeNone, wrap(Fatal, err, "validate join-accept MIC")
	}
	if !ok {
		return DecodeNone, newError(Protocol, "join-accept MIC mismatch", nil)
	}

	ja, ok := phy.MACPayload.(*lorawan.JoinAcceptPayload)
	if !ok {
		return DecodeNone, newError(Protocol, "MACPayload is not a join-accept payload", nil)
	}

	netID, err := ja.HomeNetID.MarshalBinary()
	_ = netID
	if err != nil {
		return DecodeNone, wrap(Fatal, err, "marshal home net id")
	}

	nwkSKey, appSKey, err := seckeys.DeriveSessionKeys(e.identity.AppKey, ja.JoinNonce, ja.HomeNetID, e.identity.DevNonce)
	if err != nil {
		return DecodeNone, wrap(Fatal, err, "derive session keys")
	}

	rxDelay := ja.RXDelay
	if rxDelay == 0 {
		rxDelay = 1 // RxDelay of 0 clamps to 1
	}
	if rxDelay > 15 {
		rxDelay = 15
	}

	session := newSession()
	session.DevAddr = ja.DevAddr
	session.NwkSKey = nwkSKey
	session.AppSKey = appSKey
	session.RX1DROffset = int(ja.DLSettings.RX1DROffset)
	session.RX2DataRate = int(ja.DLSettings.RX2DataRate)
	session.RxDelay = rxDelay
	session.RX2Freq = e.region.GetDefaults().RX2Frequency

	if ja.CFList != nil {
		session.EnabledChannels = e.region.GetEnabledUplinkChannelIndices()
	}

	e.session = session
	e.joined = true
	e.identity.DevNonce++
	if e.trace != nil {
		e.trace.NewSession()
	}

	if err := e.checkpoint(); err != nil && e.trace != nil {
		e.trace.Warn("mac: checkpoint after join failed", map[string]interface{}{"error": err.Error()})
	}

	return DecodeJoinAccept, nil
}

// finishUplink runs the post-RX bookkeeping common to both "RX1 valid"
// and "RX1/RX2 both failed or RX2 decoded" exits from the state
// machine. It applies the nb_trans_cpt retransmission rule: a frame
// with no valid downlink at either window is retried in place (same
// FCntUp, same built bytes) until nb_trans_cpt reaches 1, at which point
// the engine gives up and moves FCntUp forward regardless. It reports
// whether it re-armed a retransmission so advance() knows not to return
// to Idle.
func (e *Engine) finishUplink() bool {
	retransmit := false

	if e.session != nil {
		if !e.downlinkValid && e.session.NbTransCpt > 1 {
			e.session.NbTransCpt--
			retransmit = true
		} else {
			e.session.FCntUp++
			e.session.NbTransCpt = e.session.NbTrans
		}
	}

	if err := e.checkpoint(); err != nil && e.trace != nil {
		e.trace.Warn("mac: checkpoint after uplink failed", map[string]interface{}{"error": err.Error()})
	}

	return retransmit
}
