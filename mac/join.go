package mac

import (
	"github.com/loraedge/lr1mac/airtime"
	"github.com/loraedge/lr1mac/lorawan"
	"github.com/loraedge/lr1mac/planner"
	"github.com/loraedge/lr1mac/ral"
	"github.com/loraedge/lr1mac/seckeys"
)

// BuildJoinRequest assembles and schedules a Join-Request frame:
// MHDR(0x00) || JoinEUI[8,LE] || DevEUI[8,LE] || DevNonce[2,LE] ||
// MIC[4] over the preceding 18 bytes, keyed on AppKey.
func (e *Engine) BuildJoinRequest() error {
	if e.joinAttempts == 0 {
		e.firstJoinAtMs = e.clock.NowMs()
	}

	mhdr := lorawan.MHDR{MType: lorawan.JoinRequest, Major: lorawan.LoRaWANR1}
	jr := lorawan.JoinRequestPayload{
		JoinEUI:  e.identity.JoinEUI,
		DevEUI:   e.identity.DevEUI,
		DevNonce: e.identity.DevNonce,
	}

	mhdrB, err := mhdr.MarshalBinary()
	if err != nil {
		return wrap(Fatal, err, "marshal join-request MHDR")
	}
	jrB, err := jr.MarshalBinary()
	if err != nil {
		return wrap(Fatal, err, "marshal join-request payload")
	}

	msg := append(mhdrB, jrB...)
	mic, err := seckeys.ComputeJoinRequestMIC(e.identity.AppKey, msg)
	if err != nil {
		return wrap(Fatal, err, "compute join-request MIC")
	}

	e.pending = pendingUplink{isJoin: true, built: append(msg, mic[:]...)}
	e.joinAttempts++

	return e.txJoinRadioStart()
}

// txJoinRadioStart enqueues the built join-request on the lowest
// configured uplink channel/DR, mirroring TXRadioStart but without a
// session to source parameters from.
func (e *Engine) txJoinRadioStart() error {
	channels := e.region.GetEnabledUplinkChannelIndices()
	if len(channels) == 0 {
		return newError(Config, "no enabled uplink channels", nil)
	}
	ch, err := e.region.GetUplinkChannel(channels[0])
	if err != nil {
		return wrap(Config, err, "resolve uplink channel")
	}
	rate, err := e.region.GetDataRate(ch.MinDR)
	if err != nil {
		return wrap(Config, err, "resolve join data rate")
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
		return wrap(SchedulerBusy, err, "enqueue join-request tx task")
	}

	e.state = TxOn
	return nil
}

// NextJoinBackoff implements a three-tier ETSI-style back-off, grounded
// on next_time_to_join_seconds: the theoretical
// time-on-air at SF5 is computed once and scaled by 2^(SF-5) to
// approximate the higher SF's actual air time, then divided into
// 1%/0.1%/0.01% duty-cycle tiers by elapsed time since the first attempt.
func (e *Engine) NextJoinBackoff(nowMs int64) (int64, error) {
	sf := 12
	if e.session != nil {
		if rate, err := e.region.GetDataRate(e.session.TXDataRate); err == nil && rate.SpreadFactor > 0 {
			sf = rate.SpreadFactor
		}
	}

	toa, err := airtime.CalculateLoRaAirtime(18+4, 5, 125, 8, airtime.CodingRate45, true, false)
	if err != nil {
		return 0, wrap(Fatal, err, "compute join time-on-air")
	}
	toaMs := toa.Milliseconds() << uint(sf-5)

	elapsedMs := nowMs - e.firstJoinAtMs

	var next int64
	switch {
	case elapsedMs < 3600_000:
		next = nowMs + toaMs/10
	case elapsedMs < 11*3600_000:
		next = nowMs + toaMs
	default:
		next = nowMs + 10*toaMs
	}

	e.nextJoinAtMs = next
	return next, nil
}
