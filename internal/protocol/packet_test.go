package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalarRoundTrip(t *testing.T) {
	p := New(ServerHeartbeat)
	p.WU8(0xAB)
	p.WI8(-12)
	p.WU16(0xBEEF)
	p.WI16(-1234)
	p.WU32(0xDEADBEEF)
	p.WI32(-123456)
	p.WU64(0x1122334455667788)
	p.WI64(-1)
	p.WF32(3.25)
	p.WF64(-6.5)

	r := FromBytes(p.Raw())
	r.Rewind(2)

	u8, err := r.RU8()
	assert.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	i8, err := r.RI8()
	assert.NoError(t, err)
	assert.Equal(t, int8(-12), i8)

	u16, err := r.RU16()
	assert.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), u16)

	i16, err := r.RI16()
	assert.NoError(t, err)
	assert.Equal(t, int16(-1234), i16)

	u32, err := r.RU32()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	i32, err := r.RI32()
	assert.NoError(t, err)
	assert.Equal(t, int32(-123456), i32)

	u64, err := r.RU64()
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x1122334455667788), u64)

	i64, err := r.RI64()
	assert.NoError(t, err)
	assert.Equal(t, int64(-1), i64)

	f32, err := r.RF32()
	assert.NoError(t, err)
	assert.Equal(t, float32(3.25), f32)

	f64, err := r.RF64()
	assert.NoError(t, err)
	assert.Equal(t, float64(-6.5), f64)
}

func TestStringRoundTrip(t *testing.T) {
	p := New(ClientChatMessage)
	p.WStr("hello world")

	r := FromBytes(p.Raw())
	r.Rewind(2)
	s, err := r.RStr()
	assert.NoError(t, err)
	assert.Equal(t, "hello world", s)
}

func TestSizedTailReproducesBody(t *testing.T) {
	p := New(ClientLobbyReadyState)
	p.WBool(true)
	p.WU16(42)

	sized := p.Sized()
	n := sized[0]
	tail := sized[1 : 1+int(n)]

	reconstructed := FromBytes(tail)
	assert.Equal(t, p.Raw(), reconstructed.Raw())
}

func TestShortReadIsRecoverable(t *testing.T) {
	p := FromBytes([]byte{0, byte(Identity)})
	p.Rewind(2)
	_, err := p.RU32()
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestRStrMissingTerminatorFails(t *testing.T) {
	p := FromBytes([]byte{0, byte(Identity), 'a', 'b'})
	p.Rewind(2)
	_, err := p.RStr()
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestTruncateNicknameIsScalarSafe(t *testing.T) {
	name := "日本語のニックネームはとても長い"
	truncated := TruncateNickname(name, 15)
	assert.LessOrEqual(t, len([]rune(truncated)), 15)
	assert.Equal(t, []rune(name)[:15], []rune(truncated))
}

func TestNewHeadlessSynthesizesPrefix(t *testing.T) {
	body := []byte{1, 2, 3}
	p := NewHeadless(ServerPlayerData, body)
	assert.False(t, p.Passthrough())
	assert.Equal(t, ServerPlayerData, p.Type())
	assert.Equal(t, body, p.Body())
}
