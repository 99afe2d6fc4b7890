package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gdp-net/gdp-go/pkg/name"
)

var (
	ErrPayloadTooLarge    = errors.New("payload exceeds maximum transmission unit")
	ErrFrameTooLarge      = errors.New("encoded frame exceeds maximum transmission unit")
	ErrInvalidDestination = errors.New("destination name is reserved or invalid")
	ErrBadMagic           = errors.New("not a gdp frame")
	ErrTruncated          = errors.New("frame too short")
	ErrNotOutcome         = errors.New("frame is not an ack or nack")
)

// Frame is one protocol unit: fixed header, payload, optional trailing
// detail block. Frames are transient; a frame built for a send is dropped
// once its outcome is observed.
type Frame struct {
	TTL     byte
	Action  byte
	Seq     uint32
	Src     name.Name
	Dst     name.Name
	LastHop name.Name
	Payload []byte
	Detail  []byte // raw msgpack, appended after the payload
}

// Detail is the decoded content of an outcome frame's trailing block.
type Detail struct {
	Code   int8   `msgpack:"code"`
	Reason string `msgpack:"reason"`
}

// DeliveryOutcome is a decoded ack or nack, correlated to a prior send by
// its sequence number.
type DeliveryOutcome struct {
	Seq      uint32
	Accepted bool
	Code     int8
	Reason   string
}

// Codec encodes and decodes frames against a fixed MTU. Encode and Decode
// are pure; the only state is the sequence counter handed out by NextSeq.
type Codec struct {
	mtu int
	seq atomic.Uint32
}

func NewCodec(mtu int) *Codec {
	if mtu <= HeaderSize {
		mtu = DefaultMTU
	}
	return &Codec{mtu: mtu}
}

func (c *Codec) MTU() int {
	return c.mtu
}

// MaxPayload is the largest payload Encode accepts for a frame with no
// detail block.
func (c *Codec) MaxPayload() int {
	return c.mtu - HeaderSize
}

// NextSeq hands out the identifier correlating a frame to its outcome.
func (c *Codec) NextSeq() uint32 {
	return c.seq.Add(1)
}

// Encode serializes a frame. It rejects the reserved zero destination and
// any payload that would not fit the MTU. It never mutates f.
func (c *Codec) Encode(f *Frame) ([]byte, error) {
	if f.Dst.IsZero() {
		return nil, ErrInvalidDestination
	}
	if len(f.Payload) > c.MaxPayload() {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(f.Payload), c.MaxPayload())
	}
	if len(f.Payload) > 0xffff {
		return nil, fmt.Errorf("%w: %d does not fit the length field", ErrPayloadTooLarge, len(f.Payload))
	}

	raw := make([]byte, HeaderSize, HeaderSize+len(f.Payload)+len(f.Detail))
	binary.BigEndian.PutUint16(raw[offMagic:], Magic)
	raw[offTTL] = f.TTL
	raw[offAction] = f.Action
	binary.BigEndian.PutUint32(raw[offSeq:], f.Seq)
	copy(raw[offSrc:], f.Src[:])
	copy(raw[offDst:], f.Dst[:])
	copy(raw[offLastHop:], f.LastHop[:])
	binary.BigEndian.PutUint16(raw[offDataLen:], uint16(len(f.Payload)))

	raw = append(raw, f.Payload...)
	raw = append(raw, f.Detail...)

	if len(raw) > c.mtu {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(raw), c.mtu)
	}
	return raw, nil
}

// Decode parses a frame. Payload and detail are copied out of raw, so the
// caller may reuse its buffer.
func (c *Codec) Decode(raw []byte) (*Frame, error) {
	if len(raw) < HeaderSize {
		return nil, ErrTruncated
	}
	if binary.BigEndian.Uint16(raw[offMagic:]) != Magic {
		return nil, ErrBadMagic
	}

	dlen := int(binary.BigEndian.Uint16(raw[offDataLen:]))
	if len(raw) < HeaderSize+dlen {
		return nil, fmt.Errorf("%w: header claims %d payload bytes, %d present",
			ErrTruncated, dlen, len(raw)-HeaderSize)
	}

	f := &Frame{
		TTL:    raw[offTTL],
		Action: raw[offAction],
		Seq:    binary.BigEndian.Uint32(raw[offSeq:]),
	}
	copy(f.Src[:], raw[offSrc:])
	copy(f.Dst[:], raw[offDst:])
	copy(f.LastHop[:], raw[offLastHop:])

	f.Payload = append([]byte(nil), raw[HeaderSize:HeaderSize+dlen]...)
	if rest := raw[HeaderSize+dlen:]; len(rest) > 0 {
		f.Detail = append([]byte(nil), rest...)
	}
	return f, nil
}

// EncodeDetail serializes an outcome detail block for the frame trailer.
func EncodeDetail(d *Detail) ([]byte, error) {
	return msgpack.Marshal(d)
}

// DecodeOutcome interprets an ack or nack frame returned by the transport.
// Frames with any other action are not outcomes.
func (c *Codec) DecodeOutcome(raw []byte) (*DeliveryOutcome, error) {
	f, err := c.Decode(raw)
	if err != nil {
		return nil, err
	}
	if f.Action != ActionAck && f.Action != ActionNack {
		return nil, fmt.Errorf("%w: action %#02x", ErrNotOutcome, f.Action)
	}

	out := &DeliveryOutcome{
		Seq:      f.Seq,
		Accepted: f.Action == ActionAck,
	}
	if len(f.Detail) > 0 {
		var d Detail
		if err := msgpack.Unmarshal(f.Detail, &d); err != nil {
			return nil, fmt.Errorf("decode outcome detail: %w", err)
		}
		out.Code = d.Code
		out.Reason = d.Reason
	}
	return out, nil
}
