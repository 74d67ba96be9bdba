// Package protocol implements the little-endian, cursor-based wire codec
// shared by every sub-server connection: a two-byte header (a reserved
// passthrough byte followed by a packet-type byte) followed by
// primitive-typed fields.
package protocol

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortPacket is returned by any read that would advance the cursor
// past the end of the buffer. It is always recoverable: the caller
// disconnects the offending peer (TCP) or drops the datagram (UDP), the
// process itself never panics on malformed input.
var ErrShortPacket = errors.New("protocol: packet too short")

// MaxTCPPayload is the largest payload a single length-prefixed TCP frame
// can carry: the length byte is a single u8.
const MaxTCPPayload = 255

// Packet is a little-endian byte buffer with a read cursor. Writes always
// append to the buffer; reads advance the cursor and fail with
// ErrShortPacket instead of panicking.
type Packet struct {
	buf []byte
	pos int
}

// New starts a packet for the given type: one reserved passthrough byte
// (0) followed by the type byte. Subsequent writes append fields.
func New(t PacketType) *Packet {
	return &Packet{buf: []byte{0, byte(t)}}
}

// NewPassthrough is like New but sets the passthrough byte to 1, used for
// packets a client expects to be echoed verbatim to other peers.
func NewPassthrough(t PacketType) *Packet {
	return &Packet{buf: []byte{1, byte(t)}}
}

// FromBytes wraps an already-received, unframed buffer (no length byte)
// for reading. The cursor starts at 0 so the caller can read the
// passthrough and type bytes itself via RU8/Type.
func FromBytes(raw []byte) *Packet {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &Packet{buf: cp}
}

// NewHeadless builds a packet from a body that was received without its
// passthrough/type prefix, synthesizing both so the result can be
// re-multicast to other peers.
func NewHeadless(t PacketType, body []byte) *Packet {
	buf := make([]byte, 0, len(body)+2)
	buf = append(buf, 0, byte(t))
	buf = append(buf, body...)
	return &Packet{buf: buf}
}

// Passthrough reports the packet's reserved first byte.
func (p *Packet) Passthrough() bool {
	if len(p.buf) == 0 {
		return false
	}
	return p.buf[0] != 0
}

// Type returns the packet's second byte as a PacketType, without moving
// the cursor.
func (p *Packet) Type() PacketType {
	if len(p.buf) < 2 {
		return PacketUnknown
	}
	return PacketType(p.buf[1])
}

// Rewind resets the read cursor to the given offset (e.g. 0, so a second
// handler can re-read the whole packet from scratch).
func (p *Packet) Rewind(pos int) { p.pos = pos }

// Len returns the number of bytes currently in the buffer.
func (p *Packet) Len() int { return len(p.buf) }

// Body returns the bytes after the two-byte header.
func (p *Packet) Body() []byte {
	if len(p.buf) <= 2 {
		return nil
	}
	return p.buf[2:]
}

// Sized produces the length-prefixed TCP wire form: one u8 length byte
// (the payload length, excluding the length byte itself) followed by the
// payload. The payload must be at most MaxTCPPayload bytes.
func (p *Packet) Sized() []byte {
	n := len(p.buf)
	if n > MaxTCPPayload {
		n = MaxTCPPayload
	}
	out := make([]byte, 0, n+1)
	out = append(out, byte(n))
	out = append(out, p.buf[:n]...)
	return out
}

// Raw produces the unframed UDP wire form: the payload with no length
// prefix.
func (p *Packet) Raw() []byte {
	return append([]byte(nil), p.buf...)
}

func (p *Packet) need(n int) error {
	if p.pos+n > len(p.buf) {
		return ErrShortPacket
	}
	return nil
}

// --- writers: writes never fail, they only grow the buffer ---

func (p *Packet) WU8(v uint8)   { p.buf = append(p.buf, v) }
func (p *Packet) WI8(v int8)    { p.buf = append(p.buf, byte(v)) }
func (p *Packet) WBool(v bool) {
	if v {
		p.WU8(1)
	} else {
		p.WU8(0)
	}
}

func (p *Packet) WU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	p.buf = append(p.buf, b[:]...)
}

func (p *Packet) WI16(v int16) { p.WU16(uint16(v)) }

func (p *Packet) WU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	p.buf = append(p.buf, b[:]...)
}

func (p *Packet) WI32(v int32) { p.WU32(uint32(v)) }

func (p *Packet) WU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	p.buf = append(p.buf, b[:]...)
}

func (p *Packet) WI64(v int64) { p.WU64(uint64(v)) }

func (p *Packet) WF32(v float32) { p.WU32(math.Float32bits(v)) }
func (p *Packet) WF64(v float64) { p.WU64(math.Float64bits(v)) }

// WStr writes a NUL-terminated UTF-8 string.
func (p *Packet) WStr(s string) {
	p.buf = append(p.buf, []byte(s)...)
	p.buf = append(p.buf, 0)
}

// --- readers: every read is bounds-checked and recoverable ---

func (p *Packet) RU8() (uint8, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}
	v := p.buf[p.pos]
	p.pos++
	return v, nil
}

func (p *Packet) RI8() (int8, error) {
	v, err := p.RU8()
	return int8(v), err
}

func (p *Packet) RBool() (bool, error) {
	v, err := p.RU8()
	return v != 0, err
}

func (p *Packet) RU16() (uint16, error) {
	if err := p.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(p.buf[p.pos:])
	p.pos += 2
	return v, nil
}

func (p *Packet) RI16() (int16, error) {
	v, err := p.RU16()
	return int16(v), err
}

func (p *Packet) RU32() (uint32, error) {
	if err := p.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v, nil
}

func (p *Packet) RI32() (int32, error) {
	v, err := p.RU32()
	return int32(v), err
}

func (p *Packet) RU64() (uint64, error) {
	if err := p.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v, nil
}

func (p *Packet) RI64() (int64, error) {
	v, err := p.RU64()
	return int64(v), err
}

func (p *Packet) RF32() (float32, error) {
	v, err := p.RU32()
	return math.Float32frombits(v), err
}

func (p *Packet) RF64() (float64, error) {
	v, err := p.RU64()
	return math.Float64frombits(v), err
}

// RStr reads a NUL-terminated, UTF-8-decoded string. It fails if the
// buffer is exhausted before a NUL terminator is found.
func (p *Packet) RStr() (string, error) {
	start := p.pos
	for {
		if p.pos >= len(p.buf) {
			return "", ErrShortPacket
		}
		if p.buf[p.pos] == 0 {
			s := string(p.buf[start:p.pos])
			p.pos++
			return s, nil
		}
		p.pos++
	}
}

// RType reads the packet-type byte at the current cursor.
func (p *Packet) RType() (PacketType, error) {
	v, err := p.RU8()
	return PacketType(v), err
}

// TruncateNickname truncates s to at most the given number of UTF-8
// scalar values (runes), never splitting a multi-byte sequence.
func TruncateNickname(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
