package lorawan

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// DevAddr represents the device address.
type DevAddr [4]byte

var nwkIDBitsPerType = [8]int{6, 6, 9, 11, 12, 13, 15, 17}

// NetIDType returns the NetID type, derived from the leading bits of the
// DevAddr.
func (a DevAddr) NetIDType() int {
	for i := uint8(0); i < 7; i++ {
		if a[0]&(1<<(7-i)) == 0 {
			return int(i)
		}
	}
	return 7
}

// NwkID returns the NwkID part of the DevAddr.
func (a DevAddr) NwkID() []byte {
	t := a.NetIDType()
	nwkIDBits := nwkIDBitsPerType[t]

	v := binary.BigEndian.Uint32(a[:])
	v = v << uint(t+1)
	v = v >> uint(32-nwkIDBits)

	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)

	n := nwkIDBits / 8
	if nwkIDBits%8 != 0 {
		n++
	}
	return out[len(out)-n:]
}

// IsNetID returns true when the DevAddr carries the address prefix of the
// given NetID.
func (a DevAddr) IsNetID(netID NetID) bool {
	test := a
	test.SetAddrPrefix(netID)
	return test == a
}

// SetAddrPrefix sets the DevAddr address-prefix bits (identifying the
// issuing NetID) while leaving the NwkAddr bits untouched.
func (a *DevAddr) SetAddrPrefix(netID NetID) {
	t := netID.Type()
	prefixBits := t + 1
	nwkIDBits := nwkIDBitsPerType[t]

	var prefix uint32
	for i := 0; i < t; i++ {
		prefix = (prefix << 1) | 1
	}
	prefix = prefix << 1 // the (t+1)-th prefix bit is always 0
	prefix = prefix << uint(32-prefixBits)

	idBits := binary.BigEndian.Uint32(append([]byte{0}, netID[:]...))
	idBits = idBits << uint(32-nwkIDBits)
	idBits = idBits >> uint(prefixBits)

	mask := uint32(0xffffffff) >> uint(prefixBits+nwkIDBits)

	cur := binary.BigEndian.Uint32(a[:])
	cur = (cur & mask) | prefix | idBits

	binary.BigEndian.PutUint32(a[:], cur)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (a DevAddr) MarshalBinary() ([]byte, error) {
	out := make([]byte, len(a))
	for i, v := range a {
		// little endian
		out[len(a)-1-i] = v
	}
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (a *DevAddr) UnmarshalBinary(data []byte) error {
	if len(data) != len(a) {
		return fmt.Errorf("lorawan: %d bytes of data are expected", len(a))
	}
	for i, v := range data {
		a[len(a)-1-i] = v
	}
	return nil
}

// String implements fmt.Stringer.
func (a DevAddr) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a DevAddr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *DevAddr) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(a) {
		return fmt.Errorf("lorawan: exactly %d bytes are expected", len(a))
	}
	copy(a[:], b)
	return nil
}

// FCtrl represents the frame control field.
type FCtrl struct {
	ADR       bool
	ADRACKReq bool
	ACK       bool
	FPending  bool // only used in downlink frames
	ClassB    bool // only used in uplink frames, aliases the same bit as FPending
	fOptsLen  uint8
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c FCtrl) MarshalBinary() ([]byte, error) {
	if c.fOptsLen > 15 {
		return nil, errors.New("lorawan: max value of FOptsLen is 15")
	}

	var b uint8
	if c.ADR {
		b |= 1 << 7
	}
	if c.ADRACKReq {
		b |= 1 << 6
	}
	if c.ACK {
		b |= 1 << 5
	}
	if c.FPending || c.ClassB {
		b |= 1 << 4
	}
	b |= c.fOptsLen & 0x0f

	return []byte{b}, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *FCtrl) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("lorawan: 1 byte of data is expected")
	}

	c.ADR = data[0]&(1<<7) != 0
	c.ADRACKReq = data[0]&(1<<6) != 0
	c.ACK = data[0]&(1<<5) != 0
	c.FPending = data[0]&(1<<4) != 0
	c.ClassB = c.FPending
	c.fOptsLen = data[0] & 0x0f

	return nil
}

// FHDR represents the frame header.
type FHDR struct {
	DevAddr DevAddr
	FCtrl   FCtrl
	FCnt    uint32 // only the least-significant 16 bits are transmitted over the air
	FOpts   []Payload
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h FHDR) MarshalBinary() ([]byte, error) {
	var out []byte

	b, err := h.DevAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	var optsB []byte
	for _, opt := range h.FOpts {
		b, err := opt.MarshalBinary()
		if err != nil {
			return nil, err
		}
		optsB = append(optsB, b...)
	}
	if len(optsB) > 15 {
		return nil, errors.New("lorawan: max number of FOpts bytes is 15")
	}
	h.FCtrl.fOptsLen = uint8(len(optsB))

	b, err = h.FCtrl.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	fCnt := make([]byte, 2)
	binary.LittleEndian.PutUint16(fCnt, uint16(h.FCnt))
	out = append(out, fCnt...)

	out = append(out, optsB...)

	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. When FOptsLen > 0
// the FOpts field is populated with a single, undecoded DataPayload holding
// the plaintext FOpts bytes (otherwise it is nil); call
// decodeDataPayloadToMACCommands on it to parse the MAC commands.
func (h *FHDR) UnmarshalBinary(uplink bool, data []byte) error {
	if len(data) < 7 {
		return errors.New("lorawan: at least 7 bytes needed to decode FHDR")
	}

	if err := h.DevAddr.UnmarshalBinary(data[0:4]); err != nil {
		return err
	}
	if err := h.FCtrl.UnmarshalBinary(data[4:5]); err != nil {
		return err
	}
	h.FCnt = uint32(binary.LittleEndian.Uint16(data[5:7]))

	fOptsLen := int(h.FCtrl.fOptsLen)
	if len(data[7:]) < fOptsLen {
		return errors.New("lorawan: not enough bytes to decode FHDR")
	}

	h.FOpts = nil
	if fOptsLen > 0 {
		h.FOpts = []Payload{
			&DataPayload{Bytes: data[7 : 7+fOptsLen]},
		}
	}

	return nil
}
