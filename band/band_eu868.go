package band

import (
	"time"

	"github.com/loraedge/lr1mac/lorawan"
)

type eu868Band struct {
	band
}

func (b *eu868Band) Name() string { return string(EU868) }

func (b *eu868Band) GetDefaults() Defaults {
	return Defaults{
		RX2Frequency:     869525000,
		RX2DataRate:      0,
		MaxFCntGap:       16384,
		ReceiveDelay1:    time.Second,
		ReceiveDelay2:    time.Second * 2,
		JoinAcceptDelay1: time.Second * 5,
		JoinAcceptDelay2: time.Second * 6,
	}
}

func (b *eu868Band) GetDownlinkTXPower(freq int) int { return 14 }

func (b *eu868Band) GetDefaultMaxUplinkEIRP() float32 { return 16 }

func (b *eu868Band) GetRX1ChannelIndexForUplinkChannelIndex(uplinkChannel int) (int, error) {
	return uplinkChannel, nil
}

func (b *eu868Band) GetRX1FrequencyForUplinkFrequency(uplinkFrequency int) (int, error) {
	return uplinkFrequency, nil
}

func (b *eu868Band) GetCFList() *lorawan.CFList {
	var pl lorawan.CFListChannelPayload
	var i int
	for _, c := range b.uplinkChannels {
		if c.custom && i < len(pl.Channels) && c.MinDR == 0 && c.MaxDR == 5 {
			pl.Channels[i] = uint32(c.Frequency)
			i++
		}
	}
	if pl.Channels[0] == 0 {
		return nil
	}
	return &lorawan.CFList{CFListType: lorawan.CFListChannel, Payload: &pl}
}

func newEU868Band() (Band, error) {
	b := eu868Band{
		band: band{
			supportsExtraChannels: true,
			clockAccuracyPPT:      30, // 3%, crystal error budget typical for a TCXO-less end-device
			boardDelayMs:          10,
			adrParams: ADRParams{
				ACKLimit: 64, ACKDelay: 32, LimitConfUp: 24, NoRxPacketCount: 24000,
				MinDR: 0, MaxDR: 5,
			},
			dataRates: map[int]DataRate{
				0: {Modulation: LoRaModulation, SpreadFactor: 12, Bandwidth: 125, uplink: true, downlink: true},
				1: {Modulation: LoRaModulation, SpreadFactor: 11, Bandwidth: 125, uplink: true, downlink: true},
				2: {Modulation: LoRaModulation, SpreadFactor: 10, Bandwidth: 125, uplink: true, downlink: true},
				3: {Modulation: LoRaModulation, SpreadFactor: 9, Bandwidth: 125, uplink: true, downlink: true},
				4: {Modulation: LoRaModulation, SpreadFactor: 8, Bandwidth: 125, uplink: true, downlink: true},
				5: {Modulation: LoRaModulation, SpreadFactor: 7, Bandwidth: 125, uplink: true, downlink: true},
				6: {Modulation: LoRaModulation, SpreadFactor: 7, Bandwidth: 250, uplink: true, downlink: true},
				7: {Modulation: FSKModulation, BitRate: 50000, uplink: true, downlink: true},
			},
			rx1DataRateTable: map[int][]int{
				0: {0, 0, 0, 0, 0, 0},
				1: {1, 0, 0, 0, 0, 0},
				2: {2, 1, 0, 0, 0, 0},
				3: {3, 2, 1, 0, 0, 0},
				4: {4, 3, 2, 1, 0, 0},
				5: {5, 4, 3, 2, 1, 0},
				6: {6, 5, 4, 3, 2, 1},
				7: {7, 6, 5, 4, 3, 2},
			},
			txPowerOffsets: []int{0, -2, -4, -6, -8, -10, -12, -14},
			uplinkChannels: []Channel{
				{Frequency: 868100000, MinDR: 0, MaxDR: 5, enabled: true},
				{Frequency: 868300000, MinDR: 0, MaxDR: 5, enabled: true},
				{Frequency: 868500000, MinDR: 0, MaxDR: 5, enabled: true},
			},
			downlinkChannels: []Channel{
				{Frequency: 868100000, MinDR: 0, MaxDR: 5, enabled: true},
				{Frequency: 868300000, MinDR: 0, MaxDR: 5, enabled: true},
				{Frequency: 868500000, MinDR: 0, MaxDR: 5, enabled: true},
			},
			maxPayloadSizePerDR: map[int]MaxPayloadSize{
				0: {M: 59, N: 51},
				1: {M: 59, N: 51},
				2: {M: 59, N: 51},
				3: {M: 123, N: 115},
				4: {M: 250, N: 242},
				5: {M: 250, N: 242},
				6: {M: 250, N: 242},
				7: {M: 250, N: 242},
			},
		},
	}
	return &b, nil
}

func (b *eu868Band) JoinSF5TimeOnAirMs() uint32 {
	return joinSF5TimeOnAirMs(125)
}
