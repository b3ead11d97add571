package lorawan

import "errors"

// MACPayload represents the MAC payload of a data uplink or downlink frame:
// an FHDR, an optional FPort and an FRMPayload carrying either application
// data or (when FPort=0) encrypted MAC commands.
type MACPayload struct {
	FHDR       FHDR
	FPort      *uint8
	FRMPayload []Payload
}

// Clone returns a copy of the payload.
func (p MACPayload) Clone() Payload {
	c := p
	c.FHDR.FOpts = append([]Payload(nil), p.FHDR.FOpts...)
	c.FRMPayload = append([]Payload(nil), p.FRMPayload...)
	return &c
}

func (p MACPayload) marshalPayload() ([]byte, error) {
	var out []byte
	for _, pl := range p.FRMPayload {
		b, err := pl.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p MACPayload) MarshalBinary() ([]byte, error) {
	if p.FPort != nil && *p.FPort == 0 && len(p.FHDR.FOpts) != 0 {
		return nil, errors.New("lorawan: FPort must not be 0 when FOpts are set")
	}

	if p.FPort == nil || *p.FPort != 0 {
		for _, pl := range p.FRMPayload {
			if _, ok := pl.(*MACCommand); ok {
				return nil, errors.New("lorawan: a MAC command is only allowed when FPort=0")
			}
		}
	}

	if p.FPort == nil && len(p.FRMPayload) != 0 {
		return nil, errors.New("lorawan: FPort must be set when FRMPayload is not empty")
	}

	out, err := p.FHDR.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if p.FPort != nil {
		out = append(out, *p.FPort)
	}

	b, err := p.marshalPayload()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	return out, nil
}

// UnmarshalBinary decodes the object from binary form. FRMPayload is left as
// a single raw DataPayload; call decodeDataPayloadToMACCommands on it (after
// decryption, when FPort=0) to recover the individual MAC commands.
func (p *MACPayload) UnmarshalBinary(uplink bool, data []byte) error {
	if err := p.FHDR.UnmarshalBinary(uplink, data); err != nil {
		return err
	}

	fhdrLen := 7 + int(p.FHDR.FCtrl.fOptsLen)
	rest := data[fhdrLen:]

	if len(rest) == 0 {
		p.FPort = nil
		p.FRMPayload = nil
		return nil
	}

	fPort := rest[0]
	p.FPort = &fPort

	if len(rest) > 1 {
		p.FRMPayload = []Payload{&DataPayload{Bytes: rest[1:]}}
	} else {
		p.FRMPayload = nil
	}

	return nil
}
