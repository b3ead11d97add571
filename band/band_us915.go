package band

import (
	"time"

	"github.com/loraedge/lr1mac/lorawan"
)

type us915Band struct {
	band
}

func (b *us915Band) Name() string { return string(US915) }

func (b *us915Band) GetDefaults() Defaults {
	return Defaults{
		RX2Frequency:     923300000,
		RX2DataRate:      8,
		MaxFCntGap:       16384,
		ReceiveDelay1:    time.Second,
		ReceiveDelay2:    time.Second * 2,
		JoinAcceptDelay1: time.Second * 5,
		JoinAcceptDelay2: time.Second * 6,
	}
}

func (b *us915Band) GetDownlinkTXPower(freq int) int { return 20 }

func (b *us915Band) GetDefaultMaxUplinkEIRP() float32 { return 30 }

func (b *us915Band) GetRX1ChannelIndexForUplinkChannelIndex(uplinkChannel int) (int, error) {
	return uplinkChannel % 8, nil
}

func (b *us915Band) GetRX1FrequencyForUplinkFrequency(uplinkFrequency int) (int, error) {
	uplinkChan, err := b.GetUplinkChannelIndex(uplinkFrequency, true)
	if err != nil {
		return 0, err
	}
	rx1Chan, err := b.GetRX1ChannelIndexForUplinkChannelIndex(uplinkChan)
	if err != nil {
		return 0, err
	}
	return b.downlinkChannels[rx1Chan].Frequency, nil
}

// GetCFList returns nil: US915 conveys its channel plan as a ChMask via
// LinkADRReq, not via the CFList join-accept field.
func (b *us915Band) GetCFList() *lorawan.CFList { return nil }

func newUS915Band() (Band, error) {
	b := us915Band{
		band: band{
			clockAccuracyPPT: 30,
			boardDelayMs:     10,
			adrParams: ADRParams{
				ACKLimit: 64, ACKDelay: 32, LimitConfUp: 24, NoRxPacketCount: 24000,
				MinDR: 0, MaxDR: 4,
			},
			dataRates: map[int]DataRate{
				0:  {Modulation: LoRaModulation, SpreadFactor: 10, Bandwidth: 125, uplink: true},
				1:  {Modulation: LoRaModulation, SpreadFactor: 9, Bandwidth: 125, uplink: true},
				2:  {Modulation: LoRaModulation, SpreadFactor: 8, Bandwidth: 125, uplink: true},
				3:  {Modulation: LoRaModulation, SpreadFactor: 7, Bandwidth: 125, uplink: true},
				4:  {Modulation: LoRaModulation, SpreadFactor: 8, Bandwidth: 500, uplink: true},
				8:  {Modulation: LoRaModulation, SpreadFactor: 12, Bandwidth: 500, downlink: true},
				9:  {Modulation: LoRaModulation, SpreadFactor: 11, Bandwidth: 500, downlink: true},
				10: {Modulation: LoRaModulation, SpreadFactor: 10, Bandwidth: 500, downlink: true},
				11: {Modulation: LoRaModulation, SpreadFactor: 9, Bandwidth: 500, downlink: true},
				12: {Modulation: LoRaModulation, SpreadFactor: 8, Bandwidth: 500, downlink: true},
				13: {Modulation: LoRaModulation, SpreadFactor: 7, Bandwidth: 500, downlink: true},
			},
			rx1DataRateTable: map[int][]int{
				0:  {10, 9, 8, 8},
				1:  {11, 10, 9, 8},
				2:  {12, 11, 10, 9},
				3:  {13, 12, 11, 10},
				4:  {13, 13, 12, 11},
				8:  {8, 8, 8, 8},
				9:  {9, 8, 8, 8},
				10: {10, 9, 8, 8},
				11: {11, 10, 9, 8},
				12: {12, 11, 10, 9},
				13: {13, 12, 11, 10},
			},
			txPowerOffsets:   []int{0, -2, -4, -6, -8, -10, -12, -14, -16, -18, -20},
			uplinkChannels:   make([]Channel, 72),
			downlinkChannels: make([]Channel, 8),
			maxPayloadSizePerDR: map[int]MaxPayloadSize{
				0:  {M: 19, N: 11},
				1:  {M: 61, N: 53},
				2:  {M: 133, N: 125},
				3:  {M: 250, N: 242},
				4:  {M: 250, N: 242},
				8:  {M: 61, N: 53},
				9:  {M: 137, N: 129},
				10: {M: 250, N: 242},
				11: {M: 250, N: 242},
				12: {M: 250, N: 242},
				13: {M: 250, N: 242},
			},
		},
	}

	for i := 0; i < 64; i++ {
		b.uplinkChannels[i] = Channel{Frequency: 902300000 + (i * 200000), MinDR: 0, MaxDR: 3, enabled: true}
	}
	for i := 0; i < 8; i++ {
		b.uplinkChannels[i+64] = Channel{Frequency: 903000000 + (i * 1600000), MinDR: 4, MaxDR: 4, enabled: true}
	}
	for i := 0; i < 8; i++ {
		b.downlinkChannels[i] = Channel{Frequency: 923300000 + (i * 600000), MinDR: 8, MaxDR: 13, enabled: true}
	}

	return &b, nil
}

func (b *us915Band) JoinSF5TimeOnAirMs() uint32 {
	return joinSF5TimeOnAirMs(125)
}
