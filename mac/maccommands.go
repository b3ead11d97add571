package mac

import (
	"github.com/loraedge/lr1mac/lorawan"
)

// CommandContext carries the direction/session hints ParseCommands needs
// that aren't recoverable from the command stream alone.
type CommandContext struct {
	Downlink bool
}

// ParseCommands walks a MAC command stream (either the FOpts field or a
// decrypted FPort==0 FRMPayload, both use the identical command
// encoding) and applies each recognized command to the engine's
// session, queuing an answer command where the protocol defines one.
// Commands this build doesn't recognize are skipped rather than
// aborting the whole stream.
func (e *Engine) ParseCommands(stream []byte, ctx *CommandContext) ([]byte, error) {
	if e.session == nil {
		return nil, newError(Protocol, "mac command received without a session", nil)
	}

	var linkADRBlock []lorawan.LinkADRReqPayload

	for len(stream) > 0 {
		// a CID with no registered payload is taken as a 1-byte command
		n := 1
		if _, size, err := lorawan.GetMACPayloadAndSize(false, lorawan.CID(stream[0])); err == nil {
			n += size
		}
		if n > len(stream) {
			n = len(stream)
		}
		var cmd lorawan.MACCommand
		if err := cmd.UnmarshalBinary(false, stream[:n]); err != nil {
			return nil, wrap(Protocol, err, "unmarshal mac command")
		}
		stream = stream[n:]

		switch cmd.CID {
		case lorawan.LinkCheckAns:
			// informational only; no session state to update beyond
			// clearing the pending flag raised by RequestLinkCheck.
			e.session.LinkCheckPending = false

		case lorawan.LinkADRReq:
			pl, ok := cmd.Payload.(*lorawan.LinkADRReqPayload)
			if ok {
				linkADRBlock = append(linkADRBlock, *pl)
			}

		case lorawan.DutyCycleReq:
			if pl, ok := cmd.Payload.(*lorawan.DutyCycleReqPayload); ok {
				e.handleDutyCycleReq(pl)
			}

		case lorawan.RXParamSetupReq:
			if pl, ok := cmd.Payload.(*lorawan.RXParamSetupReqPayload); ok {
				e.handleRXParamSetupReq(pl)
			}

		case lorawan.DevStatusReq:
			e.handleDevStatusReq()

		case lorawan.NewChannelReq:
			if pl, ok := cmd.Payload.(*lorawan.NewChannelReqPayload); ok {
				e.handleNewChannelReq(pl)
			}

		case lorawan.RXTimingSetupReq:
			if pl, ok := cmd.Payload.(*lorawan.RXTimingSetupReqPayload); ok {
				e.handleRXTimingSetupReq(pl)
			}

		case lorawan.TXParamSetupReq:
			if pl, ok := cmd.Payload.(*lorawan.TXParamSetupReqPayload); ok {
				e.handleTXParamSetupReq(pl)
			}

		case lorawan.DLChannelReq:
			if pl, ok := cmd.Payload.(*lorawan.DLChannelReqPayload); ok {
				e.handleDLChannelReq(pl)
			}

		default:
			// unrecognized or application-layer CID: ignore.
		}
	}

	if len(linkADRBlock) > 0 {
		e.handleLinkADRBlock(linkADRBlock)
	}

	return nil, nil
}

func (e *Engine) queueAns(cid lorawan.CID, payload lorawan.MACCommandPayload) {
	cmd := lorawan.MACCommand{CID: cid, Payload: payload}
	switch cid {
	case lorawan.RXParamSetupAns, lorawan.DLChannelAns, lorawan.RXTimingSetupAns, lorawan.TXParamSetupAns:
		e.session.queueSticky(cmd)
	default:
		e.session.queueTransient(cmd)
	}
}

// handleLinkADRBlock applies a run of consecutive LinkADRReq commands as
// a single atomic block: the ChMask of every command in the block is
// applied in order, then DataRate/TXPower/NbTrans from the last command
// in the block take effect, and one LinkADRAns answers the whole block.
func (e *Engine) handleLinkADRBlock(block []lorawan.LinkADRReqPayload) {
	ans := lorawan.LinkADRAnsPayload{ChannelMaskACK: true, DataRateACK: true, PowerACK: true}

	enabled := append([]int{}, e.session.EnabledChannels...)
	for _, req := range block {
		indices, err := e.region.GetEnabledUplinkChannelIndicesForLinkADRReqPayloads(enabled, []lorawan.LinkADRReqPayload{req})
		if err != nil {
			ans.ChannelMaskACK = false
			continue
		}
		enabled = indices
	}

	last := block[len(block)-1]
	if _, err := e.region.GetDataRate(int(last.DataRate)); err != nil {
		ans.DataRateACK = false
	}
	if _, err := e.region.GetTXPowerOffset(int(last.TXPower)); err != nil {
		ans.PowerACK = false
	}

	if ans.ChannelMaskACK && ans.DataRateACK && ans.PowerACK {
		e.session.EnabledChannels = enabled
		e.session.TXDataRate = int(last.DataRate)
		e.session.TXPowerIndex = int(last.TXPower)
		if last.Redundancy.NbRep > 0 {
			e.session.NbTrans = last.Redundancy.NbRep
		}
	}

	e.queueAns(lorawan.LinkADRAns, &ans)
}

func (e *Engine) handleDutyCycleReq(pl *lorawan.DutyCycleReqPayload) {
	e.session.MaxDutyCycleIndex = pl.MaxDCycle
	e.queueAns(lorawan.DutyCycleAns, nil)
}

func (e *Engine) handleRXParamSetupReq(pl *lorawan.RXParamSetupReqPayload) {
	ans := lorawan.RXParamSetupAnsPayload{ChannelACK: true, RX2DataRateACK: true, RX1DROffsetACK: true}

	if _, err := e.region.GetDataRate(int(pl.DLSettings.RX2DataRate)); err != nil {
		ans.RX2DataRateACK = false
	}
	if _, err := e.region.GetRX1DataRateIndex(0, int(pl.DLSettings.RX1DROffset)); err != nil {
		ans.RX1DROffsetACK = false
	}

	if ans.ChannelACK && ans.RX2DataRateACK && ans.RX1DROffsetACK {
		e.session.RX2Freq = int(pl.Frequency)
		e.session.RX2DataRate = int(pl.DLSettings.RX2DataRate)
		e.session.RX1DROffset = int(pl.DLSettings.RX1DROffset)
	}

	e.queueAns(lorawan.RXParamSetupAns, &ans)
}

func (e *Engine) handleDevStatusReq() {
	// 255: the device cannot measure its own battery level.
	// Margin is reported as 0 absent a link budget estimator.
	e.queueAns(lorawan.DevStatusAns, &lorawan.DevStatusAnsPayload{Battery: 255, Margin: 0})
}

func (e *Engine) handleNewChannelReq(pl *lorawan.NewChannelReqPayload) {
	ans := lorawan.NewChannelAnsPayload{ChannelFrequencyOK: true, DataRateRangeOK: true}

	if err := e.region.AddChannel(int(pl.Freq), int(pl.MinDR), int(pl.MaxDR)); err != nil {
		if _, getErr := e.region.GetUplinkChannel(int(pl.ChIndex)); getErr != nil {
			ans.ChannelFrequencyOK = false
			ans.DataRateRangeOK = false
		}
	}

	e.queueAns(lorawan.NewChannelAns, &ans)
}

func (e *Engine) handleRXTimingSetupReq(pl *lorawan.RXTimingSetupReqPayload) {
	delay := pl.Delay
	if delay == 0 {
		delay = 1
	}
	e.session.RxDelay = delay
	e.queueAns(lorawan.RXTimingSetupAns, nil)
}

func (e *Engine) handleTXParamSetupReq(pl *lorawan.TXParamSetupReqPayload) {
	e.session.UplinkDwellTime = pl.UplinkDwellTime == lorawan.DwellTime400ms
	e.session.DownlinkDwellTime = pl.DownlinkDwelltime == lorawan.DwellTime400ms
	if eirp, err := lorawan.GetTXParamSetupEIRP(pl.MaxEIRP); err == nil {
		e.session.MaxEIRP = eirp
	}
	e.queueAns(lorawan.TXParamSetupAns, nil)
}

func (e *Engine) handleDLChannelReq(pl *lorawan.DLChannelReqPayload) {
	ans := lorawan.DLChannelAnsPayload{ChannelFrequencyOK: true, UplinkFrequencyExists: true}

	if _, err := e.region.GetUplinkChannel(int(pl.ChIndex)); err != nil {
		ans.UplinkFrequencyExists = false
	}

	e.queueAns(lorawan.DLChannelAns, &ans)
}

// RequestLinkCheck stages a LinkCheckReq for inclusion in the next
// outgoing FOpts.
func (e *Engine) RequestLinkCheck() {
	if e.session == nil {
		return
	}
	e.session.LinkCheckPending = true
	e.session.queueTransient(lorawan.MACCommand{CID: lorawan.LinkCheckReq})
}

// NoteReboot stages a ResetInd announcing this device's LoRaWAN minor
// version, to be sent after an unexpected restart.
func (e *Engine) NoteReboot(minorVersion uint8) {
	if e.session == nil {
		return
	}
	e.session.ResetIndPending = &lorawan.ResetIndPayload{DevLoRaWANVersion: lorawan.Version{Minor: minorVersion}}
	e.session.queueTransient(lorawan.MACCommand{
		CID:     lorawan.ResetInd,
		Payload: e.session.ResetIndPending,
	})
}
