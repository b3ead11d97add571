package mac

import (
	"github.com/loraedge/lr1mac/airtime"
	"github.com/loraedge/lr1mac/lorawan"
	"github.com/loraedge/lr1mac/planner"
	"github.com/loraedge/lr1mac/ral"
	"github.com/loraedge/lr1mac/seckeys"
)

// pendingUplink is the per-transmission transient state: the frame
// currently being built, encrypted, and scheduled.
type pendingUplink struct {
	isJoin     bool
	confirmed  bool
	fPort      uint8
	appPayload []byte

	mhdr  lorawan.MHDR
	fctrl lorawan.FCtrl
	fcnt  uint32
	fopts []byte

	built []byte // final MHDR||FHDR||FPort||FRMPayload||MIC
}

// Send stages an application payload for the next uplink. fPort==0 means
// a MAC-only frame (no application bytes); the caller is responsible for
// not calling Send while the engine is outside Idle.
func (e *Engine) Send(confirmed bool, fPort uint8, payload []byte) error {
	if e.state != Idle {
		return newError(SchedulerBusy, "send requested while engine busy", nil)
	}
	if !e.joined && !e.bypassJoin {
		return newError(Protocol, "send requested before Join", nil)
	}

	e.pending = pendingUplink{
		confirmed:  confirmed,
		fPort:      fPort,
		appPayload: payload,
	}
	if e.session != nil {
		e.session.NbTransCpt = e.session.NbTrans
	}
	return e.dispatch()
}

// closeUplink runs finishUplink's bookkeeping and either returns the
// engine to Idle or, if nb_trans_cpt demands a retry, re-schedules the
// already-built frame for another transmission attempt.
func (e *Engine) closeUplink() error {
	if e.pending.isJoin {
		e.state = Idle
		return nil
	}
	if e.finishUplink() {
		return e.TXRadioStart()
	}
	e.state = Idle
	return nil
}

// dispatch builds, encrypts, and schedules the currently staged uplink;
// it is also the retransmission entry point nb_trans_cpt drives.
func (e *Engine) dispatch() error {
	if err := e.UpdateADR(); err != nil {
		return err
	}
	if err := e.Build(); err != nil {
		return err
	}
	if err := e.Encrypt(); err != nil {
		return err
	}
	return e.TXRadioStart()
}

// Build assembles the frame's plaintext fields: MHDR, FHDR (DevAddr,
// FCtrl, FCntUp LSBs, FOpts), FPort, FRMPayload (still plaintext at this
// point; Encrypt fills in ciphertext and MIC).
func (e *Engine) Build() error {
	mtype := lorawan.UnconfirmedDataUp
	if e.pending.confirmed {
		mtype = lorawan.ConfirmedDataUp
	}
	e.pending.mhdr = lorawan.MHDR{MType: mtype, Major: lorawan.LoRaWANR1}

	var fopts []byte
	answers := []lorawan.MACCommand{}
	if e.session != nil {
		answers = e.session.pendingAnswers()
	}
	for _, cmd := range answers {
		b, err := cmd.MarshalBinary()
		if err != nil {
			return wrap(Protocol, err, "marshal mac command answer")
		}
		if len(fopts)+len(b) > 15 {
			break // FOpts never exceed 15 B in FHDR
		}
		fopts = append(fopts, b...)
	}
	e.pending.fopts = fopts

	adrAckReq := false
	fcnt := uint32(0)
	if e.session != nil {
		params := e.region.ADRParameters()
		adrAckReq = e.session.ADRAckCnt >= params.ACKLimit && e.session.ADRAckCnt <= params.ACKLimit+params.ACKDelay
		fcnt = e.session.FCntUp
	}

	e.pending.fctrl = lorawan.FCtrl{
		ADR:       e.session != nil,
		ADRACKReq: adrAckReq,
	}
	e.pending.fcnt = fcnt
	return nil
}

// Encrypt runs AES-CTR over FRMPayload (AppSKey if FPort != 0 else
// NwkSKey), then computes and appends the 4-byte MIC over
// MHDR||FHDR||FPort||FRMPayload using NwkSKey.
func (e *Engine) Encrypt() error {
	if e.session == nil {
		return newError(Protocol, "encrypt requested without a session", nil)
	}

	key := e.session.NwkSKey
	if e.pending.fPort != 0 {
		key = e.session.AppSKey
	}

	ct, err := seckeys.EncryptFRMPayload(key, seckeys.Uplink, e.session.DevAddr, e.pending.fcnt, e.pending.appPayload)
	if err != nil {
		return wrap(Fatal, err, "encrypt FRMPayload")
	}

	macPL := lorawan.MACPayload{
		FHDR: lorawan.FHDR{
			DevAddr: e.session.DevAddr,
			FCtrl:   e.pending.fctrl,
			FCnt:    e.pending.fcnt,
		},
		FRMPayload: []lorawan.Payload{&lorawan.DataPayload{Bytes: ct}},
	}
	fport := e.pending.fPort
	macPL.FPort = &fport
	if len(e.pending.fopts) > 0 {
		fopts, err := decodeFOptsStream(e.pending.fopts)
		if err != nil {
			return wrap(Protocol, err, "decode own FOpts stream")
		}
		macPL.FHDR.FOpts = fopts
	}

	mhdrB, err := e.pending.mhdr.MarshalBinary()
	if err != nil {
		return wrap(Fatal, err, "marshal MHDR")
	}
	macPLB, err := macPL.MarshalBinary()
	if err != nil {
		return wrap(Fatal, err, "marshal MACPayload")
	}

	msg := append(append([]byte{}, mhdrB...), macPLB...)
	mic, err := seckeys.ComputeDataMIC(e.session.NwkSKey, msg, seckeys.Uplink, e.session.DevAddr, e.pending.fcnt)
	if err != nil {
		return wrap(Fatal, err, "compute uplink MIC")
	}

	e.pending.built = append(msg, mic[:]...)
	return nil
}

// decodeFOptsStream turns a raw FOpts byte stream back into a []Payload
// of *lorawan.MACCommand, used to re-marshal a frame's own outgoing
// FOpts through FHDR's marshaler (which expects []Payload).
func decodeFOptsStream(stream []byte) ([]lorawan.Payload, error) {
	var out []lorawan.Payload
	for len(stream) > 0 {
		// a CID with no registered payload is taken as a 1-byte command
		n := 1
		if _, size, err := lorawan.GetMACPayloadAndSize(true, lorawan.CID(stream[0])); err == nil {
			n += size
		}
		if n > len(stream) {
			n = len(stream)
		}
		var cmd lorawan.MACCommand
		if err := cmd.UnmarshalBinary(true, stream[:n]); err != nil {
			return nil, err
		}
		out = append(out, &cmd)
		stream = stream[n:]
	}
	return out, nil
}

// TXRadioStart fills a radio-param bundle from regional parameters and
// enqueues a planner task. On successful enqueue it increments the
// appropriate ADR-ack counter and advances the state machine to TxOn.
func (e *Engine) TXRadioStart() error {
	dr := 0
	if e.session != nil {
		dr = e.session.TXDataRate
	}
	rate, err := e.region.GetDataRate(dr)
	if err != nil {
		return wrap(Config, err, "resolve tx data rate")
	}

	channels := e.region.GetEnabledUplinkChannelIndices()
	if len(channels) == 0 {
		return newError(Config, "no enabled uplink channels", nil)
	}
	ch, err := e.region.GetUplinkChannel(channels[0])
	if err != nil {
		return wrap(Config, err, "resolve uplink channel")
	}

	task := planner.Task{
		Type:           planner.TxLoRa,
		State:          planner.ASAP,
		DurationTimeMs: 2000,
		LoRaTX: ral.LoRaTXParams{
			FreqHz:      uint32(ch.Frequency),
			SF:          rate.SpreadFactor,
			BWHz:        uint32(rate.Bandwidth) * 1000,
			PayloadLen:  len(e.pending.built),
			CRC:         true,
			PreambleLen: 8,
		},
	}

	if err := e.planner.Enqueue(e.hookID, task); err != nil {
		return wrap(SchedulerBusy, err, "enqueue tx task")
	}

	if e.session != nil {
		if e.pending.confirmed {
			e.session.ADRAckCntConfirmed++
		} else {
			e.session.ADRAckCnt++
		}
	}

	if toa, err := airtime.CalculateLoRaAirtime(len(e.pending.built), rate.SpreadFactor, rate.Bandwidth, 8, airtime.CodingRate45, true, false); err == nil {
		e.noteTransmission(e.clock.NowMs(), toa.Milliseconds(), 100)
	}

	e.state = TxOn
	return nil
}
