package game

import (
	"math/rand"
	"net"

	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

// lobbyReadySeconds is how long the all-ready countdown runs before the
// match moves to MapVote.
const lobbyReadySeconds = 5

// lobbyAFKSeconds / lobbyPendingAFKSeconds are the AFK disconnect
// thresholds for not-ready peers: 30s once active, 2s while still
// pending identity.
const (
	lobbyAFKSeconds        = 30
	lobbyPendingAFKSeconds = 2
)

// Lobby is the entry state: readiness gathering and an all-ready
// countdown into MapVote.
type Lobby struct {
	heartbeatAccum float64
	countdown      int // 0 = not counting down
	wasMidMatch    bool
}

// NewLobby returns a fresh Lobby. wasMidMatch marks that some of the
// peers being installed into it were pulled out of an active match
// (Game ending) rather than arriving fresh.
func NewLobby(wasMidMatch bool) *Lobby {
	return &Lobby{wasMidMatch: wasMidMatch}
}

func (l *Lobby) Name() string { return "Lobby" }

func (l *Lobby) Init(h Host) State {
	for _, p := range h.Peers().All() {
		p.Ready = false
		p.AFKSeconds = 0

		if p.InQueue {
			p.InQueue = false
			resp := protocol.New(protocol.ServerIdentityResponse)
			resp.WBool(true)
			resp.WU16(h.UDPPort())
			resp.WU16(p.ID())
			p.Send(resp)
		} else if l.wasMidMatch {
			p.Send(protocol.New(protocol.ServerGameBackToLobby))
		}

		p.Player = nil

		gain := uint8(2 + rand.Intn(9)) // 2..10
		if int(p.ExeChance)+int(gain) > 99 {
			p.ExeChance = 99
		} else {
			p.ExeChance += gain
		}
		chance := protocol.New(protocol.ServerLobbyExeChance)
		chance.WU8(p.ExeChance)
		p.Send(chance)
	}
	return nil
}

func (l *Lobby) Tick(h Host, dt float64) State {
	l.heartbeatAccum += dt
	var next State
	for l.heartbeatAccum >= 1.0 {
		l.heartbeatAccum -= 1.0
		if s := l.second(h); s != nil {
			next = s
		}
	}
	return next
}

func (l *Lobby) second(h Host) State {
	h.MulticastReal(protocol.New(protocol.ServerHeartbeat))

	for _, p := range h.Peers().All() {
		if p.Ready || p.InQueue {
			continue
		}
		p.AFKSeconds++
		limit := float64(lobbyAFKSeconds)
		if p.Pending {
			limit = lobbyPendingAFKSeconds
		}
		if p.AFKSeconds >= limit {
			h.DisconnectPeer(p, "AFK timeout")
		}
	}

	if l.countdown == 0 {
		return nil
	}

	out := protocol.New(protocol.ServerLobbyCountdown)
	out.WBool(true)
	out.WU8(uint8(l.countdown))
	h.MulticastReal(out)

	l.countdown--
	if l.countdown <= 0 {
		return NewMapVote()
	}
	return nil
}

// refreshCountdown starts or cancels the all-ready countdown after any
// event that could change whether every active peer is ready (a ready
// state change or a disconnect).
func (l *Lobby) refreshCountdown(h Host) {
	active := h.Peers().Active()
	allReady := len(active) >= 2
	for _, p := range active {
		if !p.Ready {
			allReady = false
			break
		}
	}

	if allReady {
		if l.countdown == 0 {
			l.countdown = lobbyReadySeconds
		}
		return
	}

	if l.countdown != 0 {
		l.countdown = 0
		out := protocol.New(protocol.ServerLobbyCountdown)
		out.WBool(false)
		out.WU8(0)
		h.MulticastReal(out)
	}
}

func (l *Lobby) Connect(h Host, p *peer.Peer) State { return nil }

func (l *Lobby) Disconnect(h Host, p *peer.Peer) State {
	l.refreshCountdown(h)
	return nil
}

func (l *Lobby) GotTCPPacket(h Host, p *peer.Peer, pkt *protocol.Packet) (State, error) {
	switch pkt.Type() {
	case protocol.Identity:
		if err := HandleIdentity(h, p, pkt, true); err != nil {
			return nil, err
		}
		return nil, nil

	case protocol.ClientLobbyPlayersRequest:
		for _, other := range h.Peers().Active() {
			if other.ID() == p.ID() {
				continue
			}
			entry := protocol.New(protocol.ServerLobbyPlayer)
			entry.WU16(other.ID())
			entry.WStr(other.Nickname)
			entry.WU8(other.LobbyIcon)
			entry.WI8(other.Pet)
			entry.WBool(other.Ready)
			p.Send(entry)
		}
		p.Send(protocol.New(protocol.ServerLobbyCorrect))

		hint := protocol.New(protocol.ClientChatMessage)
		hint.WU16(0)
		hint.WStr("Ready up when you're set; the match starts once everyone is.")
		p.Send(hint)
		return nil, nil

	case protocol.ClientLobbyReadyState:
		ready, err := pkt.RBool()
		if err != nil {
			return nil, err
		}
		p.Ready = ready
		p.AFKSeconds = 0
		l.refreshCountdown(h)
		return nil, nil

	case protocol.ClientChatMessage:
		msg, err := pkt.RStr()
		if err != nil {
			return nil, err
		}
		out := protocol.New(protocol.ClientChatMessage)
		out.WU16(p.ID())
		out.WStr(msg)
		h.MulticastExcept(out, p.ID())
		return nil, nil

	default:
		return nil, nil
	}
}

func (l *Lobby) GotUDPPacket(h Host, addr *net.UDPAddr, pkt *protocol.Packet) (State, error) {
	return nil, nil
}
