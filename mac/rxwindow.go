package mac

import (
	"math"

	"github.com/loraedge/lr1mac/planner"
	"github.com/loraedge/lr1mac/ral"
)

// Window identifies which of the two fixed-delay receive windows a call
// to computeRxWindow targets.
type Window int

// Supported windows.
const (
	RX1 Window = iota
	RX2
)

// rxWindowPlan is the outcome of computeRxWindow: when to arm the radio
// and how wide a capture window to request, or ok=false if the window
// has already passed and is declared missed.
type rxWindowPlan struct {
	armedAtMs    int64
	widthSymbols int
	dr           int
	freqHz       uint32
	ok           bool
}

const minSymbLoRa = 6

// computeRxWindow reproduces the RX1/RX2 timing formulas exactly,
// sourcing SF/BW/clock-accuracy/board-delay from band.Band. Grounded
// line-for-line on compute_rx_window_parameters in lr1_stack_mac_layer.c.
func (e *Engine) computeRxWindow(w Window, t0Ms int64, nowMs int64) (rxWindowPlan, error) {
	var delayMs int64
	var dr int
	var freqHz uint32

	rxDelay := int64(1)
	joinDelay1 := e.region.GetDefaults().JoinAcceptDelay1
	joinDelay2 := e.region.GetDefaults().JoinAcceptDelay2
	switch {
	case e.session != nil && e.session.RxDelay > 0:
		rxDelay = int64(e.session.RxDelay)
	case e.session == nil:
		rxDelay = int64(joinDelay1.Milliseconds() / 1000)
	}

	switch w {
	case RX1:
		delayMs = rxDelay * 1000
		if e.session == nil {
			delayMs = joinDelay1.Milliseconds()
		}
		if e.session != nil {
			dr = e.session.TXDataRate
			if rx1dr, err := e.region.GetRX1DataRateIndex(e.session.TXDataRate, e.session.RX1DROffset); err == nil {
				dr = rx1dr
			}
		}
		channels := e.region.GetEnabledUplinkChannelIndices()
		if len(channels) > 0 {
			if ch, err := e.region.GetDownlinkChannel(channels[0]); err == nil {
				freqHz = uint32(ch.Frequency)
			}
		}
	case RX2:
		delayMs = rxDelay*1000 + 1000
		if e.session == nil {
			delayMs = joinDelay2.Milliseconds()
		}
		dr = e.region.GetDefaults().RX2DataRate
		freqHz = uint32(e.region.GetDefaults().RX2Frequency)
		if e.session != nil {
			dr = e.session.RX2DataRate
			if e.session.RX2Freq != 0 {
				freqHz = uint32(e.session.RX2Freq)
			}
		}
	}

	tsymUs, err := e.region.SymbolTimeUs(dr)
	if err != nil {
		return rxWindowPlan{}, wrap(Config, err, "resolve symbol time")
	}
	tsymMs := tsymUs / 1000

	errMs := float64(e.region.ClockAccuracyPPT()) * float64(delayMs) / 1000.0

	rate, err := e.region.GetDataRate(dr)
	if err != nil {
		return rxWindowPlan{}, wrap(Config, err, "resolve rx data rate")
	}

	var n int
	if rate.Modulation == "FSK" {
		n = int(math.Ceil(2 * errMs * float64(rate.BitRate) / 8))
	} else {
		bwKHz := float64(rate.Bandwidth)
		n = minSymbLoRa*2 - 8 + int(math.Ceil(2*errMs*bwKHz/math.Pow(2, float64(rate.SpreadFactor)))) + 1
	}
	if n < minSymbLoRa {
		n = minSymbLoRa
	}

	offsetMs := int64(math.Ceil(float64(n)/2*tsymMs - 4*tsymMs + float64(e.region.BoardDelayMs())))

	armedAt := t0Ms + delayMs - offsetMs
	if armedAt-nowMs <= 0 {
		return rxWindowPlan{ok: false}, nil
	}

	return rxWindowPlan{
		armedAtMs:    armedAt,
		widthSymbols: n,
		dr:           dr,
		freqHz:       freqHz,
		ok:           true,
	}, nil
}

// armRX1 is called on entry to TxFinished.
func (e *Engine) armRX1() error {
	return e.armWindow(RX1)
}

// armRX2 is called on entry to Rx1Finished if RX1 produced no valid
// downlink.
func (e *Engine) armRX2() error {
	return e.armWindow(RX2)
}

func (e *Engine) armWindow(w Window) error {
	plan, err := e.computeRxWindow(w, e.isrTimestampMs, e.clock.NowMs())
	if err != nil {
		return err
	}
	if !plan.ok {
		// Window missed: advance without arming a radio task.
		return e.advance(evRxTimeout)
	}

	rate, err := e.region.GetDataRate(plan.dr)
	if err != nil {
		return wrap(Config, err, "resolve rx window data rate")
	}

	task := planner.Task{
		Type:           planner.RxLoRa,
		State:          planner.SCHEDULED,
		StartTimeMs:    plan.armedAtMs,
		DurationTimeMs: int64(plan.widthSymbols) * 100,
		LoRaRX: ral.LoRaRXParams{
			FreqHz:      plan.freqHz,
			SF:          rate.SpreadFactor,
			BWHz:        uint32(rate.Bandwidth) * 1000,
			SymbTimeout: plan.widthSymbols,
			TimeoutMs:   int(int64(plan.widthSymbols) * 100),
			MaxPayload:  255,
		},
	}

	if err := e.planner.Enqueue(e.hookID, task); err != nil {
		return wrap(SchedulerBusy, err, "arm rx window")
	}
	return nil
}
