package mac

// UpdateADR applies the adaptive-data-rate control loop. It is called
// on every uplink-dispatch tick, before TXRadioStart resolves the data
// rate that will actually go over the air.
func (e *Engine) UpdateADR() error {
	if e.session == nil {
		return nil
	}

	params := e.region.ADRParameters()
	s := e.session

	if s.ADRAckCnt >= params.ACKLimit+params.ACKDelay {
		if s.TXDataRate > params.MinDR {
			s.TXDataRate--
			s.ADRAckCnt = params.ACKLimit
		}
	}

	if s.ADRAckCntConfirmed >= params.LimitConfUp {
		if s.TXDataRate > params.MinDR {
			s.TXDataRate--
		}
		s.ADRAckCntConfirmed = 0
	}

	if s.ADRAckCnt+s.ADRAckCntConfirmed >= params.NoRxPacketCount {
		return newError(LinkLost, "no downlink received within NO_RX_PACKET_CNT uplinks", nil)
	}

	return nil
}
