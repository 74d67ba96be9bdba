// Package game implements the session lifecycle state machine (Lobby,
// MapVote, CharacterSelect, Game) and the Game engine's tick/entity/timer
// subsystem described in spec.md §4.4-4.9. States never touch a net.Conn
// directly; every transport action goes through the Host interface a
// sub-server implements, so this package has no dependency on the
// concrete TCP/UDP plumbing.
package game

import (
	"net"

	"github.com/rs/zerolog"

	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

// Host is everything a State needs from the sub-server that owns it:
// the peer table and the fan-out primitives of spec.md §4.3.
type Host interface {
	Peers() *peer.Table
	Log() zerolog.Logger

	Multicast(p *protocol.Packet)
	MulticastReal(p *protocol.Packet)
	MulticastExcept(p *protocol.Packet, except uint16)
	MulticastRealExcept(p *protocol.Packet, except uint16)

	UDPSend(addr *net.UDPAddr, p *protocol.Packet)
	UDPMulticast(addrs []*net.UDPAddr, p *protocol.Packet)
	UDPMulticastExcept(addrs []*net.UDPAddr, p *protocol.Packet, except *net.UDPAddr)
	UDPPort() uint16

	DisconnectPeer(p *peer.Peer, reason string)
	Name() string
}

// State is the trait-like contract every lifecycle phase implements.
// Returning a non-nil State from any method requests a transition; the
// caller (the sub-server's dispatch glue) is responsible for resolving
// an Init chain and atomically installing the final value.
type State interface {
	Name() string
	Init(h Host) State
	Tick(h Host, dt float64) State
	Connect(h Host, p *peer.Peer) State
	Disconnect(h Host, p *peer.Peer) State
	GotTCPPacket(h Host, p *peer.Peer, pkt *protocol.Packet) (State, error)
	GotUDPPacket(h Host, addr *net.UDPAddr, pkt *protocol.Packet) (State, error)
}

// ResolveInit runs s.Init repeatedly until it declines to replace
// itself, matching spec.md §4.3's "a state may decline to become
// current by returning a replacement from init".
func ResolveInit(h Host, s State) State {
	for {
		next := s.Init(h)
		if next == nil {
			return s
		}
		s = next
	}
}

// ServerFull is the disconnect reason used when a sub-server already
// holds the maximum of 7 peers.
const ServerFull = "Server is full: 7/7."

// MaxPeers is the capacity of one sub-server (spec.md §8).
const MaxPeers = 7

// protoErr is a short ASCII protocol-violation reason string: it is
// never process-fatal and always results in a single peer being
// disconnected with the string as the reported reason.
type protoErr string

func (e protoErr) Error() string { return string(e) }

// identityFields is the wire payload of CLIENT_IDENTITY.
type identityFields struct {
	buildVersion uint16
	nickname     string
	lobbyIcon    uint8
	pet          int8
	osType       uint8
	udid         string
}

func parseIdentity(pkt *protocol.Packet) (identityFields, error) {
	pkt.Rewind(2)
	var f identityFields
	var err error
	if f.buildVersion, err = pkt.RU16(); err != nil {
		return f, err
	}
	if f.nickname, err = pkt.RStr(); err != nil {
		return f, err
	}
	if f.lobbyIcon, err = pkt.RU8(); err != nil {
		return f, err
	}
	if f.pet, err = pkt.RI8(); err != nil {
		return f, err
	}
	if f.osType, err = pkt.RU8(); err != nil {
		return f, err
	}
	if f.udid, err = pkt.RStr(); err != nil {
		return f, err
	}
	return f, nil
}

// HandleIdentity is the behavior shared by all four states on receipt of
// CLIENT_IDENTITY: version check, nickname truncation, queued/accepted
// bookkeeping, and the SERVER_IDENTITY_RESPONSE reply. accept controls
// whether the peer becomes active immediately (Lobby) or is placed
// in_queue awaiting the next lobby (MapVote/CharacterSelect/Game).
func HandleIdentity(h Host, p *peer.Peer, pkt *protocol.Packet, accept bool) error {
	if !p.Pending {
		return protoErr("second identity attempt")
	}
	f, err := parseIdentity(pkt)
	if err != nil {
		return err
	}
	if f.buildVersion != protocol.BuildVersion {
		return protoErr("Version mismatch.")
	}

	p.Nickname = protocol.TruncateNickname(f.nickname, peer.MaxNickname)
	p.LobbyIcon = f.lobbyIcon
	p.Pet = f.pet
	p.OSType = f.osType
	p.DeviceID = f.udid
	p.InQueue = !accept
	p.Pending = false

	resp := protocol.New(protocol.ServerIdentityResponse)
	resp.WBool(accept)
	resp.WU16(h.UDPPort())
	resp.WU16(p.ID())
	p.Send(resp)

	h.Peers().Insert(p)
	return nil
}
