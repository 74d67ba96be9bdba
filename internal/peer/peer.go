// Package peer implements the per-connection client record and the
// sub-server's peer table. A Peer is shared behind its own mutex because
// the tick loop, other peers' readers, and the UDP loop may all call
// Send concurrently; the table itself is a read-write-locked map per
// spec.md §5 ("Shared-resource policy").
package peer

import (
	"net"
	"sync"

	"github.com/foundry/ringserver/internal/protocol"
)

// MaxNickname is the maximum number of UTF-8 scalar values a nickname is
// truncated to at IDENTITY time.
const MaxNickname = 15

// Peer is one connected client: its TCP stream, learned UDP return
// address, display identity, and per-match role state once a Player is
// allocated.
type Peer struct {
	mu sync.Mutex

	id   uint16
	conn net.Conn

	udpAddr *net.UDPAddr

	Nickname  string
	LobbyIcon uint8
	Pet       int8
	OSType    uint8
	DeviceID  string

	ExeChance uint8 // weighted selection probability, clamped to [0,99]

	AFKSeconds float64 // seconds not ready in Lobby; reset on a ready-state change or lobby entry

	Pending bool // true until IDENTITY received and accepted
	InQueue bool // true when placed mid-match, awaiting next lobby
	Ready   bool // lobby readiness

	Player *Player // nil until CharacterSelect allocates one
}

// New returns a Peer wrapping an accepted TCP connection, pending
// identity.
func New(id uint16, conn net.Conn) *Peer {
	return &Peer{
		id:      id,
		conn:    conn,
		Pending: true,
	}
}

// ID returns the peer's server-assigned identifier.
func (p *Peer) ID() uint16 { return p.id }

// Addr returns the peer's remote TCP address.
func (p *Peer) Addr() net.Addr { return p.conn.RemoteAddr() }

// UDPAddr returns the learned UDP return address, or nil if the peer has
// not yet sent a UDP datagram this match.
func (p *Peer) UDPAddr() *net.UDPAddr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.udpAddr
}

// SetUDPAddr records addr as the peer's UDP return address, learned from
// the first UDP packet the sub-server receives from it.
func (p *Peer) SetUDPAddr(addr *net.UDPAddr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.udpAddr = addr
}

// Active reports whether the peer has completed identity and is not
// queued for the next lobby.
func (p *Peer) Active() bool {
	return !p.Pending && !p.InQueue
}

// Send serializes p with its TCP length prefix and writes it to the
// peer's stream. It reports false on any write error; the caller is
// responsible for treating that the same as a clean disconnect.
func (p *Peer) Send(pkt *protocol.Packet) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return false
	}
	_, err := p.conn.Write(pkt.Sized())
	return err == nil
}

// Disconnect sends SERVER_PLAYER_FORCE_DISCONNECT with reason and closes
// the TCP stream, causing the peer's reader goroutine to observe EOF.
func (p *Peer) Disconnect(reason string) {
	out := protocol.New(protocol.ServerPlayerForceDisconnect)
	out.WStr(reason)
	p.Send(out)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		if tcp, ok := p.conn.(*net.TCPConn); ok {
			tcp.CloseRead()
			tcp.CloseWrite()
		}
		p.conn.Close()
		p.conn = nil
	}
}
