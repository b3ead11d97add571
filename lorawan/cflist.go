package lorawan

import (
	"errors"
	"fmt"
)

// CFListType defines the format of the CFList field carried in a Join-Accept.
type CFListType byte

// Supported CFList types.
const (
	CFListChannel     CFListType = 0
	CFListChannelMask CFListType = 1
)

// CFListPayload must be implemented by the CFList's Payload field.
type CFListPayload interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// CFList represents the optional list of channel-plan information appended
// to a Join-Accept payload.
type CFList struct {
	CFListType CFListType    `json:"cfListType"`
	Payload    CFListPayload `json:"payload"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c CFList) MarshalBinary() ([]byte, error) {
	if c.Payload == nil {
		return nil, errors.New("lorawan: Payload must not be nil")
	}

	b, err := c.Payload.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if len(b) != 15 {
		return nil, fmt.Errorf("lorawan: CFList payload must be exactly 15 bytes, got %d", len(b))
	}

	return append(b, byte(c.CFListType)), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *CFList) UnmarshalBinary(data []byte) error {
	if len(data) != 16 {
		return errors.New("lorawan: 16 bytes of data are expected")
	}

	c.CFListType = CFListType(data[15])
	switch c.CFListType {
	case CFListChannelMask:
		c.Payload = &CFListChannelMaskPayload{}
	default:
		c.CFListType = CFListChannel
		c.Payload = &CFListChannelPayload{}
	}

	return c.Payload.UnmarshalBinary(data[0:15])
}

// CFListChannelPayload carries up to five additional uplink/downlink
// channel frequencies (used by e.g. EU868).
type CFListChannelPayload struct {
	Channels [5]uint32 // frequency in Hz, must be a multiple of 100
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p CFListChannelPayload) MarshalBinary() ([]byte, error) {
	var out []byte
	for _, freq := range p.Channels {
		if freq%100 != 0 {
			return nil, errors.New("lorawan: frequency must be a multiple of 100")
		}
		v := freq / 100
		out = append(out, byte(v), byte(v>>8), byte(v>>16))
	}
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *CFListChannelPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 15 {
		return errors.New("lorawan: 15 bytes of data are expected")
	}
	for i := 0; i < 5; i++ {
		b := data[i*3 : i*3+3]
		v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		p.Channels[i] = v * 100
	}
	return nil
}

// CFListChannelMaskPayload carries per-channel enable/disable masks (used by
// e.g. US915's channel plan).
type CFListChannelMaskPayload struct {
	ChannelMasks []ChMask
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p CFListChannelMaskPayload) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 15)
	for _, m := range p.ChannelMasks {
		b, err := m.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	if len(out) > 15 {
		return nil, errors.New("lorawan: max 7 ChMask entries fit in a CFList")
	}
	for len(out) < 15 {
		out = append(out, 0)
	}
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *CFListChannelMaskPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 15 {
		return errors.New("lorawan: 15 bytes of data are expected")
	}

	n := len(data) / 2
	masks := make([]ChMask, n)
	for i := 0; i < n; i++ {
		if err := masks[i].UnmarshalBinary(data[i*2 : i*2+2]); err != nil {
			return err
		}
	}

	// trailing all-zero masks carry no information, trim them
	last := -1
	for i, m := range masks {
		if m != (ChMask{}) {
			last = i
		}
	}
	p.ChannelMasks = masks[0 : last+1]

	return nil
}
