package peer

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type discardConn struct{}

func (discardConn) Read(b []byte) (int, error)       { return 0, io.EOF }
func (discardConn) Write(b []byte) (int, error)      { return len(b), nil }
func (discardConn) Close() error                     { return nil }
func (discardConn) LocalAddr() net.Addr              { return &net.TCPAddr{} }
func (discardConn) RemoteAddr() net.Addr             { return &net.TCPAddr{} }
func (discardConn) SetDeadline(time.Time) error      { return nil }
func (discardConn) SetReadDeadline(time.Time) error  { return nil }
func (discardConn) SetWriteDeadline(time.Time) error { return nil }

func TestNextIDStartsAtOneAndIsMonotonic(t *testing.T) {
	tbl := NewTable()
	assert.Equal(t, uint16(1), tbl.NextID())
	assert.Equal(t, uint16(2), tbl.NextID())
	assert.Equal(t, uint16(3), tbl.NextID())
}

func TestNextIDSkipsZeroOnWrap(t *testing.T) {
	tbl := NewTable()
	tbl.nextID = 65535
	assert.Equal(t, uint16(65535), tbl.NextID())
	// the counter field itself wrapped to 0; NextID must hand out 1, not 0.
	assert.Equal(t, uint16(1), tbl.NextID())
}

func TestInsertGetRemove(t *testing.T) {
	tbl := NewTable()
	p := New(tbl.NextID(), discardConn{})
	tbl.Insert(p)

	got, ok := tbl.Get(p.ID())
	assert.True(t, ok)
	assert.Same(t, p, got)
	assert.Equal(t, 1, tbl.Len())

	tbl.Remove(p.ID())
	_, ok = tbl.Get(p.ID())
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestActiveFiltersPendingAndQueued(t *testing.T) {
	tbl := NewTable()

	pending := New(tbl.NextID(), discardConn{})
	tbl.Insert(pending)

	queued := New(tbl.NextID(), discardConn{})
	queued.Pending = false
	queued.InQueue = true
	tbl.Insert(queued)

	active := New(tbl.NextID(), discardConn{})
	active.Pending = false
	tbl.Insert(active)

	got := tbl.Active()
	assert.Len(t, got, 1)
	assert.Equal(t, active.ID(), got[0].ID())
	assert.Equal(t, 3, tbl.Len())
}

func TestAllReturnsEverySnapshottedPeer(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(New(tbl.NextID(), discardConn{}))
	tbl.Insert(New(tbl.NextID(), discardConn{}))

	assert.Len(t, tbl.All(), 2)
}
