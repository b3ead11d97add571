// Package band provides the regional parameter oracle (REAL) the MAC
// engine consults for everything that varies by region: channel plans,
// data-rate tables, TX power steps, RX2 defaults, and the ADR/back-off
// constants of the LoRaWAN Regional Parameters specification.
package band

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/loraedge/lr1mac/airtime"
	"github.com/loraedge/lr1mac/lorawan"
)

// Name identifies a supported region.
type Name string

// Supported regions. Only EU868 and US915 are carried in full; the
// remaining ISM bands are not reproduced here.
const (
	EU868 Name = "EU868"
	US915 Name = "US915"
)

// Modulation defines the modulation type of a data-rate.
type Modulation string

// Supported modulation types.
const (
	LoRaModulation Modulation = "LORA"
	FSKModulation  Modulation = "FSK"
)

// Errors returned by Band implementations.
var (
	ErrInvalidDataRate      = errors.New("band: invalid data-rate")
	ErrDataRateNotFound     = errors.New("band: data-rate not found")
	ErrInvalidRX1Offset     = errors.New("band: invalid RX1 data-rate offset")
	ErrInvalidTXPower       = errors.New("band: invalid tx-power index")
	ErrChannelNotSupported  = errors.New("band: region does not support extra channels")
	ErrInvalidChannel       = errors.New("band: invalid channel index")
	ErrChannelDoesNotExist  = errors.New("band: channel does not exist")
	ErrUnknownChannelFreq   = errors.New("band: unknown channel for frequency")
	ErrUnknownRegion        = errors.New("band: unknown region")
)

// DataRate defines a single data-rate table entry.
type DataRate struct {
	uplink       bool
	downlink     bool
	Modulation   Modulation
	SpreadFactor int // LoRa
	Bandwidth    int // LoRa, in kHz
	BitRate      int // FSK, in bits/s
}

// MaxPayloadSize defines the maximum MACPayload (M) and application (N)
// payload size for a data-rate.
type MaxPayloadSize struct {
	M int
	N int
}

// Channel defines a single uplink or downlink channel.
type Channel struct {
	Frequency int
	MinDR     int
	MaxDR     int
	enabled   bool
	custom    bool
}

// Defaults defines the region's fixed defaults.
type Defaults struct {
	RX2Frequency     int
	RX2DataRate      int
	MaxFCntGap       uint32
	ReceiveDelay1    time.Duration
	ReceiveDelay2    time.Duration
	JoinAcceptDelay1 time.Duration
	JoinAcceptDelay2 time.Duration
}

// ADRParams defines the region's ADR fallback constants.
type ADRParams struct {
	ACKLimit        int // ADR_ACK_LIMIT
	ACKDelay        int // ADR_ACK_DELAY
	LimitConfUp     int // ADR_LIMIT_CONF_UP
	NoRxPacketCount int // NO_RX_PACKET_CNT
	MinDR           int
	MaxDR           int
}

// Band defines the interface implemented by a regional parameter table
// (REAL — Regional Abstraction Layer).
type Band interface {
	// Name returns the region name.
	Name() string

	// GetDataRateIndex returns the index for the given data-rate parameters.
	GetDataRateIndex(uplink bool, dataRate DataRate) (int, error)

	// GetDataRate returns the data-rate for the given index.
	GetDataRate(dr int) (DataRate, error)

	// GetMaxPayloadSizeForDataRateIndex returns the max payload size for dr.
	GetMaxPayloadSizeForDataRateIndex(dr int) (MaxPayloadSize, error)

	// GetRX1DataRateIndex returns the RX1 data-rate given the uplink
	// data-rate and the RX1 data-rate offset.
	GetRX1DataRateIndex(uplinkDR, rx1DROffset int) (int, error)

	// GetTXPowerOffset returns the TX power offset (in dB, relative to
	// the default max EIRP) for the given TX power index.
	GetTXPowerOffset(txPower int) (int, error)

	// AddChannel registers an extra (network-configured) channel.
	AddChannel(frequency, minDR, maxDR int) error

	// GetUplinkChannel returns the uplink channel at the given index.
	GetUplinkChannel(channel int) (Channel, error)

	// GetUplinkChannelIndex returns the channel index for a frequency.
	GetUplinkChannelIndex(frequency int, defaultChannel bool) (int, error)

	// GetDownlinkChannel returns the downlink channel at the given index.
	GetDownlinkChannel(channel int) (Channel, error)

	// DisableUplinkChannelIndex disables the given uplink channel.
	DisableUplinkChannelIndex(channel int) error

	// EnableUplinkChannelIndex enables the given uplink channel.
	EnableUplinkChannelIndex(channel int) error

	// GetUplinkChannelIndices returns all known uplink channel indices.
	GetUplinkChannelIndices() []int

	// GetEnabledUplinkChannelIndices returns the enabled uplink channels.
	GetEnabledUplinkChannelIndices() []int

	// GetDisabledUplinkChannelIndices returns the disabled uplink channels.
	GetDisabledUplinkChannelIndices() []int

	// GetRX1ChannelIndexForUplinkChannelIndex maps an uplink channel to
	// the downlink channel used for its RX1 window.
	GetRX1ChannelIndexForUplinkChannelIndex(uplinkChannel int) (int, error)

	// GetRX1FrequencyForUplinkFrequency maps an uplink frequency to the
	// RX1 downlink frequency.
	GetRX1FrequencyForUplinkFrequency(uplinkFrequency int) (int, error)

	// GetCFList returns the CFList to request during OTAA, or nil if the
	// region's default channel plan needs none.
	GetCFList() *lorawan.CFList

	// GetLinkADRReqPayloadsForEnabledUplinkChannelIndices builds the
	// LinkADRReqPayloads needed to bring deviceEnabledChannels in line
	// with the currently enabled channels.
	GetLinkADRReqPayloadsForEnabledUplinkChannelIndices(deviceEnabledChannels []int) []lorawan.LinkADRReqPayload

	// GetEnabledUplinkChannelIndicesForLinkADRReqPayloads applies pls to
	// deviceEnabledChannels and returns the resulting channel set.
	GetEnabledUplinkChannelIndicesForLinkADRReqPayloads(deviceEnabledChannels []int, pls []lorawan.LinkADRReqPayload) ([]int, error)

	// GetDownlinkTXPower returns the network's downlink TX power (dBm)
	// for the given downlink frequency.
	GetDownlinkTXPower(frequency int) int

	// GetDefaultMaxUplinkEIRP returns the region's default max EIRP (dBm).
	GetDefaultMaxUplinkEIRP() float32

	// GetDefaults returns the region's fixed defaults.
	GetDefaults() Defaults

	// SymbolTimeUs returns the symbol time in microseconds for dr
	// (LoRa: (1<<SF)/BW_kHz ms; FSK: 8000/bitrate_bps ms).
	SymbolTimeUs(dr int) (float64, error)

	// ClockAccuracyPPT returns the crystal error budget in per-thousand,
	// consumed by the RX window error-budget computation.
	ClockAccuracyPPT() uint32

	// BoardDelayMs returns the fixed board/radio wake-up delay folded
	// into the RX window early-start offset.
	BoardDelayMs() uint32

	// MinRxSymbols returns the minimum RX window width in symbols (6).
	MinRxSymbols() int

	// ADRParameters returns the region's ADR fallback constants.
	ADRParameters() ADRParams

	// JoinSF5TimeOnAirMs returns the theoretical time-on-air, in
	// milliseconds, of a join-request sent at SF5 — the upper bound the
	// Join back-off schedule scales from.
	JoinSF5TimeOnAirMs() uint32
}

// band is the shared implementation behind the concrete per-region types.
type band struct {
	supportsExtraChannels bool
	dataRates             map[int]DataRate
	maxPayloadSizePerDR   map[int]MaxPayloadSize
	rx1DataRateTable      map[int][]int
	uplinkChannels        []Channel
	downlinkChannels      []Channel
	txPowerOffsets        []int
	clockAccuracyPPT      uint32
	boardDelayMs          uint32
	adrParams             ADRParams
}

func (b *band) GetDataRateIndex(uplink bool, dataRate DataRate) (int, error) {
	for i, d := range b.dataRates {
		if uplink && d.uplink && d.Modulation == dataRate.Modulation && d.Bandwidth == dataRate.Bandwidth && d.BitRate == dataRate.BitRate && d.SpreadFactor == dataRate.SpreadFactor {
			return i, nil
		}
		if !uplink && d.downlink && d.Modulation == dataRate.Modulation && d.Bandwidth == dataRate.Bandwidth && d.BitRate == dataRate.BitRate && d.SpreadFactor == dataRate.SpreadFactor {
			return i, nil
		}
	}
	return 0, ErrDataRateNotFound
}

func (b *band) GetDataRate(dr int) (DataRate, error) {
	d, ok := b.dataRates[dr]
	if !ok {
		return DataRate{}, ErrInvalidDataRate
	}
	return d, nil
}

func (b *band) GetMaxPayloadSizeForDataRateIndex(dr int) (MaxPayloadSize, error) {
	ps, ok := b.maxPayloadSizePerDR[dr]
	if !ok {
		return MaxPayloadSize{}, ErrInvalidDataRate
	}
	return ps, nil
}

func (b *band) GetRX1DataRateIndex(uplinkDR, rx1DROffset int) (int, error) {
	offsetSlice, ok := b.rx1DataRateTable[uplinkDR]
	if !ok {
		return 0, ErrInvalidDataRate
	}
	if rx1DROffset > len(offsetSlice)-1 {
		return 0, ErrInvalidRX1Offset
	}
	return offsetSlice[rx1DROffset], nil
}

func (b *band) GetTXPowerOffset(txPower int) (int, error) {
	if txPower < 0 || txPower > len(b.txPowerOffsets)-1 {
		return 0, ErrInvalidTXPower
	}
	return b.txPowerOffsets[txPower], nil
}

func (b *band) AddChannel(frequency, minDR, maxDR int) error {
	if !b.supportsExtraChannels {
		return ErrChannelNotSupported
	}
	c := Channel{
		Frequency: frequency,
		MinDR:     minDR,
		MaxDR:     maxDR,
		custom:    true,
		enabled:   frequency != 0,
	}
	b.uplinkChannels = append(b.uplinkChannels, c)
	b.downlinkChannels = append(b.downlinkChannels, c)
	return nil
}

func (b *band) GetUplinkChannel(channel int) (Channel, error) {
	if channel < 0 || channel > len(b.uplinkChannels)-1 {
		return Channel{}, ErrInvalidChannel
	}
	return b.uplinkChannels[channel], nil
}

func (b *band) GetUplinkChannelIndex(frequency int, defaultChannel bool) (int, error) {
	for i, channel := range b.uplinkChannels {
		if frequency == channel.Frequency && channel.custom != defaultChannel {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownChannelFreq, frequency)
}

func (b *band) GetDownlinkChannel(channel int) (Channel, error) {
	if channel < 0 || channel > len(b.downlinkChannels)-1 {
		return Channel{}, ErrInvalidChannel
	}
	return b.downlinkChannels[channel], nil
}

func (b *band) DisableUplinkChannelIndex(channel int) error {
	if channel < 0 || channel > len(b.uplinkChannels)-1 {
		return ErrChannelDoesNotExist
	}
	b.uplinkChannels[channel].enabled = false
	return nil
}

func (b *band) EnableUplinkChannelIndex(channel int) error {
	if channel < 0 || channel > len(b.uplinkChannels)-1 {
		return ErrChannelDoesNotExist
	}
	b.uplinkChannels[channel].enabled = true
	return nil
}

func (b *band) GetUplinkChannelIndices() []int {
	out := make([]int, len(b.uplinkChannels))
	for i := range b.uplinkChannels {
		out[i] = i
	}
	return out
}

func (b *band) GetEnabledUplinkChannelIndices() []int {
	var out []int
	for i, c := range b.uplinkChannels {
		if c.enabled {
			out = append(out, i)
		}
	}
	return out
}

func (b *band) GetDisabledUplinkChannelIndices() []int {
	var out []int
	for i, c := range b.uplinkChannels {
		if !c.enabled {
			out = append(out, i)
		}
	}
	return out
}

func (b *band) GetLinkADRReqPayloadsForEnabledUplinkChannelIndices(deviceEnabledChannels []int) []lorawan.LinkADRReqPayload {
	enabledChannels := b.GetEnabledUplinkChannelIndices()
	diff := intSliceDiff(deviceEnabledChannels, enabledChannels)
	if len(diff) == 0 {
		return nil
	}
	sort.Ints(diff)

	var payloads []lorawan.LinkADRReqPayload
	chMaskCntl := -1
	for _, c := range diff {
		if c/16 != chMaskCntl {
			chMaskCntl = c / 16
			pl := lorawan.LinkADRReqPayload{
				Redundancy: lorawan.Redundancy{ChMaskCntl: uint8(chMaskCntl)},
			}
			for _, ec := range enabledChannels {
				if ec >= chMaskCntl*16 && ec < (chMaskCntl+1)*16 {
					pl.ChMask[ec%16] = true
				}
			}
			payloads = append(payloads, pl)
		}
	}
	return payloads
}

func (b *band) GetEnabledUplinkChannelIndicesForLinkADRReqPayloads(deviceEnabledChannels []int, pls []lorawan.LinkADRReqPayload) ([]int, error) {
	chMask := make([]bool, len(b.uplinkChannels))
	for _, c := range deviceEnabledChannels {
		if c < len(chMask) {
			chMask[c] = true
		}
	}
	for _, pl := range pls {
		for i, enabled := range pl.ChMask {
			idx := int(pl.Redundancy.ChMaskCntl)*16 + i
			if idx >= len(chMask) {
				if enabled {
					return nil, ErrChannelDoesNotExist
				}
				continue
			}
			chMask[idx] = enabled
		}
	}

	var out []int
	for i, enabled := range chMask {
		if enabled {
			out = append(out, i)
		}
	}
	return out, nil
}

func (b *band) SymbolTimeUs(dr int) (float64, error) {
	d, ok := b.dataRates[dr]
	if !ok {
		return 0, ErrInvalidDataRate
	}
	if d.Modulation == FSKModulation {
		return 8000000.0 / float64(d.BitRate), nil
	}
	return float64(uint32(1)<<uint(d.SpreadFactor)) / float64(d.Bandwidth) * 1000, nil
}

func (b *band) ClockAccuracyPPT() uint32 { return b.clockAccuracyPPT }
func (b *band) BoardDelayMs() uint32     { return b.boardDelayMs }
func (b *band) MinRxSymbols() int        { return 6 }
func (b *band) ADRParameters() ADRParams { return b.adrParams }

// intSliceDiff returns the symmetric difference between x and y.
func intSliceDiff(x, y []int) []int {
	var out []int
	for _, cx := range x {
		if !channelIsActive(y, cx) {
			out = append(out, cx)
		}
	}
	for _, cy := range y {
		if !channelIsActive(x, cy) {
			out = append(out, cy)
		}
	}
	return out
}

func channelIsActive(channels []int, i int) bool {
	for _, c := range channels {
		if i == c {
			return true
		}
	}
	return false
}

// GetConfig returns the regional parameter table for the given region.
func GetConfig(name Name) (Band, error) {
	switch name {
	case EU868:
		return newEU868Band()
	case US915:
		return newUS915Band()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRegion, name)
	}
}

// joinSF5TimeOnAirMs computes the theoretical airtime of a 23-byte
// join-request at SF5/125kHz, used as the pessimistic upper bound for
// the Join back-off schedule.
func joinSF5TimeOnAirMs(bandwidthKHz int) uint32 {
	d, err := airtime.CalculateLoRaAirtime(23, 5, bandwidthKHz, 8, airtime.CodingRate45, false, false)
	if err != nil {
		return 0
	}
	return uint32(d.Milliseconds())
}
