package lorawan

// Payload is the interface that every (MAC or application) payload needs to
// implement. Decoding needs to know whether the surrounding frame is uplink
// or downlink, since several MAC commands are only valid in one direction,
// so UnmarshalBinary takes an extra bool rather than matching
// encoding.BinaryUnmarshaler.
type Payload interface {
	MarshalBinary() (data []byte, err error)
	UnmarshalBinary(uplink bool, data []byte) error
	Clone() Payload
}

// DataPayload represents a slice of bytes which have not (yet) been decoded
// into a more specific payload type.
type DataPayload struct {
	Bytes []byte
}

// Clone returns a copy of the payload.
func (p DataPayload) Clone() Payload {
	return &p
}

// MarshalBinary marshals the object in binary form.
func (p DataPayload) MarshalBinary() ([]byte, error) {
	return p.Bytes, nil
}

// UnmarshalBinary decodes the object from binary form.
func (p *DataPayload) UnmarshalBinary(uplink bool, data []byte) error {
	p.Bytes = make([]byte, len(data))
	copy(p.Bytes, data)
	return nil
}
