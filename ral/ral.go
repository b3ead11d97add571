// Package ral defines the Radio Abstraction Layer: the capability
// surface needed to "configure for LoRa/GFSK TX or RX with a parameter
// bundle, start, stop, report IRQ cause". It is a narrow, chip-agnostic
// interface — the MAC engine and planner never talk to registers
// directly. Field naming and units are grounded on real Go LoRa/FSK
// chip drivers (sx1276, sx1231) and on a similar Config struct shape
// from a LoRa radio driver package.
package ral

import "context"

// IRQ is the interrupt cause the planner polls for after arming a radio
// operation.
type IRQ int

// Supported IRQ causes.
const (
	IRQNone IRQ = iota
	IRQTxDone
	IRQRxDone
	IRQRxTimeout
	IRQCrcError
)

// String implements fmt.Stringer.
func (i IRQ) String() string {
	switch i {
	case IRQNone:
		return "NONE"
	case IRQTxDone:
		return "TX_DONE"
	case IRQRxDone:
		return "RX_DONE"
	case IRQRxTimeout:
		return "RX_TIMEOUT"
	case IRQCrcError:
		return "CRC_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Result carries the outcome of a radio operation: RSSI/SNR and the
// received payload for an RX completion. The planner latches this
// before invoking the owning hook's callback.
type Result struct {
	RSSI       int
	SNR        float32
	PayloadLen int
	Payload    []byte
}

// LoRaTXParams is the LoRa TX radio-params bundle, field for field.
type LoRaTXParams struct {
	FreqHz      uint32
	SF          int // 5..12
	BWHz        uint32
	CodingRate  int
	SyncWord    uint8
	PreambleLen int
	PowerDBm    int
	PayloadLen  int
	InvertIQ    bool
	CRC         bool
}

// LoRaRXParams is the LoRa RX radio-params bundle.
type LoRaRXParams struct {
	FreqHz       uint32
	SF           int
	BWHz         uint32
	CodingRate   int
	SyncWord     uint8
	PreambleLen  int
	SymbTimeout  int
	TimeoutMs    int
	InvertIQ     bool
	CRC          bool
	MaxPayload   int
}

// GFSKTXParams is the GFSK TX radio-params bundle.
type GFSKTXParams struct {
	FreqHz       uint32
	BitrateBps   uint32
	BWSSBHz      uint32
	PreambleLen  int
	SyncWord     [3]byte
	WhiteningSeed uint16
	CRCInv       [2]byte
	DCFree       bool
	PayloadLen   int
}

// GFSKRXParams is the GFSK RX radio-params bundle.
type GFSKRXParams struct {
	FreqHz       uint32
	BitrateBps   uint32
	BWSSBHz      uint32
	PreambleLen  int
	SyncWord     [3]byte
	WhiteningSeed uint16
	CRCInv       [2]byte
	DCFree       bool
	TimeoutMs    int
	MaxPayload   int
}

// Radio is the capability surface the planner drives. Implementations own
// a single physical (or simulated) transceiver.
type Radio interface {
	ConfigureTxLoRa(p LoRaTXParams) error
	ConfigureRxLoRa(p LoRaRXParams) error
	ConfigureTxGFSK(p GFSKTXParams) error
	ConfigureRxGFSK(p GFSKRXParams) error

	// Start arms the radio for the operation selected by the most recent
	// Configure* call. It must not block past returning control once the
	// operation has been latched by hardware/simulation.
	Start(ctx context.Context) error

	// Stop aborts any in-flight operation.
	Stop() error

	// IRQStatus reports the interrupt cause of the most recently
	// completed operation and its result. It blocks until an IRQ is
	// available or ctx is done.
	IRQStatus(ctx context.Context) (IRQ, Result, error)
}
