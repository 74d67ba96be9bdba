package game

import (
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

// discardConn is a net.Conn that accepts writes silently and reads EOF;
// state tests only need a Peer to exist, never a real socket.
type discardConn struct{}

func (discardConn) Read(b []byte) (int, error)       { return 0, io.EOF }
func (discardConn) Write(b []byte) (int, error)      { return len(b), nil }
func (discardConn) Close() error                     { return nil }
func (discardConn) LocalAddr() net.Addr              { return &net.TCPAddr{} }
func (discardConn) RemoteAddr() net.Addr             { return &net.TCPAddr{} }
func (discardConn) SetDeadline(time.Time) error      { return nil }
func (discardConn) SetReadDeadline(time.Time) error  { return nil }
func (discardConn) SetWriteDeadline(time.Time) error { return nil }

// newTestPeer allocates and inserts an already-identified (non-pending)
// peer into table.
func newTestPeer(table *peer.Table) *peer.Peer {
	p := peer.New(table.NextID(), discardConn{})
	p.Pending = false
	table.Insert(p)
	return p
}

// rewound builds pkt's body via build, then returns a packet with the
// read cursor already past the two-byte header, matching the dispatch
// convention every State.GotTCPPacket relies on.
func rewound(t protocol.PacketType, build func(*protocol.Packet)) *protocol.Packet {
	pkt := protocol.New(t)
	build(pkt)
	r := protocol.FromBytes(pkt.Raw())
	r.Rewind(2)
	return r
}

// fakeHost is a minimal game.Host for driving State methods directly in
// tests: sends are discarded and nothing is recorded, with no real
// transport underneath.
type fakeHost struct {
	peers   *peer.Table
	udpPort uint16
}

func newFakeHost() *fakeHost {
	return &fakeHost{peers: peer.NewTable(), udpPort: 8606}
}

func (h *fakeHost) Peers() *peer.Table  { return h.peers }
func (h *fakeHost) Log() zerolog.Logger { return zerolog.Nop() }

func (h *fakeHost) Multicast(p *protocol.Packet)                          {}
func (h *fakeHost) MulticastReal(p *protocol.Packet)                      {}
func (h *fakeHost) MulticastExcept(p *protocol.Packet, except uint16)     {}
func (h *fakeHost) MulticastRealExcept(p *protocol.Packet, except uint16) {}

func (h *fakeHost) UDPSend(addr *net.UDPAddr, p *protocol.Packet)      {}
func (h *fakeHost) UDPMulticast(addrs []*net.UDPAddr, p *protocol.Packet) {}
func (h *fakeHost) UDPMulticastExcept(addrs []*net.UDPAddr, p *protocol.Packet, except *net.UDPAddr) {
}
func (h *fakeHost) UDPPort() uint16 { return h.udpPort }

func (h *fakeHost) DisconnectPeer(p *peer.Peer, reason string) {
	h.peers.Remove(p.ID())
}

func (h *fakeHost) Name() string { return "test" }
