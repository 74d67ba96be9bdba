// Package subserver implements the transport plumbing spec.md §4.3
// describes at the interface level: the dual TCP/UDP loop around one
// game.State machine. It is the concrete game.Host every State method
// in internal/game is ultimately called through.
package subserver

import (
	"bufio"
	"errors"
	"io"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/foundry/ringserver/internal/game"
	"github.com/foundry/ringserver/internal/metrics"
	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

// tickInterval is the period of the time.Ticker that drives the control
// loop: 15ms is spec.md §3's nominal 66.66Hz. The loop does not
// busy-sleep to a deadline, so a tick can fire late under scheduler load.
const tickInterval = 15 * time.Millisecond

// udpDatagramMax bounds a single inbound UDP read; the fast-path
// packets (CLIENT_PLAYER_DATA, CLIENT_PING) are always well under this.
const udpDatagramMax = 256

// SubServer owns one match's peer table, UDP socket, and current
// game.State. TCP connections are accepted by the dispatcher's shared
// front door and handed in via AcceptConn; the sub-server binds its own
// UDP socket so each match has a distinct UDP port to hand clients at
// identity time.
type SubServer struct {
	name string
	log  zerolog.Logger

	udpConn *net.UDPConn
	udpPort uint16

	peers *peer.Table

	mu    sync.Mutex
	state game.State

	stop chan struct{}
}

// New wires a fresh Lobby onto name/udpConn/log and resolves its Init
// chain before the sub-server accepts anything.
func New(name string, udpConn *net.UDPConn, log zerolog.Logger) *SubServer {
	s := &SubServer{
		name:    name,
		log:     log,
		udpConn: udpConn,
		peers:   peer.NewTable(),
		stop:    make(chan struct{}),
	}
	if addr, ok := udpConn.LocalAddr().(*net.UDPAddr); ok {
		s.udpPort = uint16(addr.Port)
	}
	s.state = game.ResolveInit(s, game.NewLobby(false))
	return s
}

// Len reports the sub-server's current peer count, used by the
// dispatcher's find-free-server load balancing.
func (s *SubServer) Len() int { return s.peers.Len() }

// Run starts the UDP receive loop and the tick loop; it blocks until
// Close is called.
func (s *SubServer) Run() {
	go s.udpLoop()
	s.tickLoop()
}

// Close stops the tick and UDP loops.
func (s *SubServer) Close() {
	close(s.stop)
	s.udpConn.Close()
}

// AcceptConn registers a TCP connection the dispatcher's front door
// just accepted. It enforces the per-sub-server capacity of
// game.MaxPeers before allocating a peer id.
func (s *SubServer) AcceptConn(conn net.Conn) {
	s.mu.Lock()
	if s.peers.Len() >= game.MaxPeers {
		s.mu.Unlock()
		reject := protocol.New(protocol.ServerPlayerForceDisconnect)
		reject.WStr(game.ServerFull)
		conn.Write(reject.Sized())
		conn.Close()
		return
	}

	id := s.peers.NextID()
	p := peer.New(id, conn)
	// spec.md's wire table never pins down where exe_chance starts; this
	// is the starting value, and Lobby.Init adds to it on every later
	// lobby entry.
	p.ExeChance = uint8(2 + rand.Intn(3))
	s.peers.Insert(p)

	next := s.state.Connect(s, p)
	s.installLocked(next)
	s.mu.Unlock()

	metrics.ConnectedPeers.WithLabelValues(s.name).Set(float64(s.peers.Len()))
	go s.readLoop(conn, p)
}

// readLoop implements the length-prefixed TCP framing: a single length
// byte followed by exactly that many payload bytes (spec.md §6).
func (s *SubServer) readLoop(conn net.Conn, p *peer.Peer) {
	defer s.onReaderClosed(p)

	r := bufio.NewReader(conn)
	lenByte := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, lenByte); err != nil {
			return
		}
		body := make([]byte, int(lenByte[0]))
		if len(body) > 0 {
			if _, err := io.ReadFull(r, body); err != nil {
				return
			}
		}

		pkt := protocol.FromBytes(body)
		pkt.Rewind(2)
		s.dispatchTCP(p, pkt)
	}
}

func (s *SubServer) dispatchTCP(p *peer.Peer, pkt *protocol.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.GotTCPPacket(s, p, pkt)
	if err != nil {
		reason := err.Error()
		metrics.ProtocolDisconnects.WithLabelValues(reason).Inc()
		s.log.Debug().Uint16("peer", p.ID()).Err(err).Msg("protocol violation")
		s.disconnectLocked(p, reason)
		return
	}
	metrics.PacketsProcessed.WithLabelValues("tcp").Inc()
	s.installLocked(next)
}

func (s *SubServer) onReaderClosed(p *peer.Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked(p, "")
}

// disconnectLocked requires s.mu held. reason is non-empty only when
// the sub-server itself is terminating the connection (protocol
// violation, AFK or character-selection timeout); an empty reason means the client already hung
// up and no SERVER_PLAYER_FORCE_DISCONNECT is owed.
func (s *SubServer) disconnectLocked(p *peer.Peer, reason string) {
	if _, ok := s.peers.Get(p.ID()); !ok {
		return
	}
	if reason != "" {
		p.Disconnect(reason)
	}
	s.peers.Remove(p.ID())
	next := s.state.Disconnect(s, p)
	s.installLocked(next)
	metrics.ConnectedPeers.WithLabelValues(s.name).Set(float64(s.peers.Len()))
}

func (s *SubServer) udpLoop() {
	buf := make([]byte, udpDatagramMax)
	for {
		n, addr, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
				if errors.Is(err, net.ErrClosed) {
					return
				}
				continue
			}
		}

		pkt := protocol.FromBytes(buf[:n])
		pkt.Rewind(2)

		s.mu.Lock()
		next, err := s.state.GotUDPPacket(s, addr, pkt)
		if err == nil {
			metrics.PacketsProcessed.WithLabelValues("udp").Inc()
			s.installLocked(next)
		}
		s.mu.Unlock()
	}
}

func (s *SubServer) tickLoop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.doTick(dt)
		}
	}
}

// entityCounter is implemented by game.Game; Lobby/MapVote/CharacterSelect
// have no entities to report.
type entityCounter interface {
	EntityCount() int
}

func (s *SubServer) doTick(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop := prometheus.NewTimer(metrics.TickDuration.WithLabelValues(s.name, s.state.Name()))
	next := s.state.Tick(s, dt)
	stop.ObserveDuration()
	s.installLocked(next)

	if ec, ok := s.state.(entityCounter); ok {
		metrics.EntitiesAlive.WithLabelValues(s.name).Set(float64(ec.EntityCount()))
	} else {
		metrics.EntitiesAlive.WithLabelValues(s.name).Set(0)
	}
}

// installLocked requires s.mu held. A nil next is "stay put"; otherwise
// the replacement's Init chain is resolved before it becomes current.
func (s *SubServer) installLocked(next game.State) {
	if next == nil {
		return
	}
	from := s.state.Name()
	resolved := game.ResolveInit(s, next)
	s.state = resolved
	s.log.Info().Str("from", from).Str("to", resolved.Name()).Msg("state transition")
}

// --- game.Host -----------------------------------------------------

func (s *SubServer) Peers() *peer.Table  { return s.peers }
func (s *SubServer) Log() zerolog.Logger { return s.log }

func (s *SubServer) Multicast(p *protocol.Packet) {
	for _, peer := range s.peers.All() {
		peer.Send(p)
	}
}

func (s *SubServer) MulticastReal(p *protocol.Packet) {
	for _, peer := range s.peers.Active() {
		peer.Send(p)
	}
}

func (s *SubServer) MulticastExcept(p *protocol.Packet, except uint16) {
	for _, peer := range s.peers.All() {
		if peer.ID() == except {
			continue
		}
		peer.Send(p)
	}
}

func (s *SubServer) MulticastRealExcept(p *protocol.Packet, except uint16) {
	for _, peer := range s.peers.Active() {
		if peer.ID() == except {
			continue
		}
		peer.Send(p)
	}
}

func (s *SubServer) UDPSend(addr *net.UDPAddr, p *protocol.Packet) {
	s.udpConn.WriteToUDP(p.Raw(), addr)
}

func (s *SubServer) UDPMulticast(addrs []*net.UDPAddr, p *protocol.Packet) {
	raw := p.Raw()
	for _, a := range addrs {
		s.udpConn.WriteToUDP(raw, a)
	}
}

func (s *SubServer) UDPMulticastExcept(addrs []*net.UDPAddr, p *protocol.Packet, except *net.UDPAddr) {
	raw := p.Raw()
	for _, a := range addrs {
		if except != nil && a.String() == except.String() {
			continue
		}
		s.udpConn.WriteToUDP(raw, a)
	}
}

func (s *SubServer) UDPPort() uint16 { return s.udpPort }

func (s *SubServer) DisconnectPeer(p *peer.Peer, reason string) {
	s.disconnectLocked(p, reason)
}

func (s *SubServer) Name() string { return s.name }
