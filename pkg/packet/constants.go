package packet

import "github.com/gdp-net/gdp-go/pkg/name"

// Frame actions
const (
	ActionNoop     = 0x00
	ActionPut      = 0x01
	ActionGet      = 0x02
	ActionRibGet   = 0x03
	ActionRibReply = 0x04
	ActionForward  = 0x05
	ActionNack     = 0x06
	ActionAck      = 0x07
)

const (
	// Magic marks the two leading bytes of every frame.
	Magic = 0x262a

	// DefaultTTL is the hop budget stamped on egress frames.
	DefaultTTL = 64

	// DefaultMTU bounds the full encoded frame. Conservative for UDP
	// paths that may cross tunnels.
	DefaultMTU = 1280
)

// Fixed header layout, big-endian:
//
//	magic   u16
//	ttl     u8
//	action  u8
//	seq     u32
//	src     [32]byte
//	dst     [32]byte
//	lasthop [32]byte
//	dlen    u16   payload length; anything after the payload is the
//	              msgpack-encoded detail block
const (
	offMagic   = 0
	offTTL     = 2
	offAction  = 3
	offSeq     = 4
	offSrc     = 8
	offDst     = offSrc + name.Size
	offLastHop = offDst + name.Size
	offDataLen = offLastHop + name.Size

	HeaderSize = offDataLen + 2
)
