package game

import (
	"math/rand"
	"net"

	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

const characterSelectSeconds = 30

// CharacterSelect picks the killer by repeated weighted draws over
// exe_chance, allocates a Player on every active peer, and waits for
// everyone to choose a character.
type CharacterSelect struct {
	mapIndex    int
	killerID    uint16
	secondAccum float64
}

// NewCharacterSelect returns a CharacterSelect for the winning map
// index from MapVote.
func NewCharacterSelect(mapIndex int) *CharacterSelect {
	return &CharacterSelect{mapIndex: mapIndex}
}

func (c *CharacterSelect) Name() string { return "CharacterSelect" }

// pickKiller iterates active peers, electing each with probability
// exe_chance/100, looping until someone is elected (spec.md §4.7).
func pickKiller(active []*peer.Peer) *peer.Peer {
	if len(active) == 0 {
		return nil
	}
	for {
		for _, p := range active {
			if rand.Intn(100) < int(p.ExeChance) {
				return p
			}
		}
	}
}

func (c *CharacterSelect) Init(h Host) State {
	active := h.Peers().Active()
	killer := pickKiller(active)
	if killer == nil {
		return NewLobby(false)
	}
	c.killerID = killer.ID()

	out := protocol.New(protocol.ServerLobbyExe)
	out.WU16(c.killerID)
	out.WU8(uint8(c.mapIndex))
	h.MulticastReal(out)

	for _, p := range active {
		p.Player = peer.NewPlayer()
		p.Player.Exe = p.ID() == c.killerID
		p.Player.SelectSeconds = characterSelectSeconds
	}
	return nil
}

func (c *CharacterSelect) Tick(h Host, dt float64) State {
	c.secondAccum += dt
	var next State
	for c.secondAccum >= 1.0 {
		c.secondAccum -= 1.0
		if s := c.second(h); s != nil {
			next = s
		}
	}
	return next
}

func (c *CharacterSelect) second(h Host) State {
	h.MulticastReal(protocol.New(protocol.ServerHeartbeat))

	for _, p := range h.Peers().Active() {
		if p.Player == nil {
			continue
		}
		needsChoice := p.Player.Exe && p.Player.Ch2 == peer.ExeNone ||
			!p.Player.Exe && p.Player.Ch1 == peer.SurvivorNone
		if !needsChoice {
			continue
		}
		p.Player.SelectSeconds--
		if p.Player.SelectSeconds <= 0 {
			h.DisconnectPeer(p, "character selection timeout")
		}
	}

	return c.checkAllChosen(h)
}

func (c *CharacterSelect) checkAllChosen(h Host) State {
	active := h.Peers().Active()
	if len(active) == 0 {
		return nil
	}
	for _, p := range active {
		if p.Player == nil {
			return nil
		}
		if p.Player.Exe {
			if p.Player.Ch2 == peer.ExeNone {
				return nil
			}
		} else if p.Player.Ch1 == peer.SurvivorNone {
			return nil
		}
	}
	return NewGame(c.mapIndex, c.killerID)
}

func (c *CharacterSelect) Connect(h Host, p *peer.Peer) State { return nil }

func (c *CharacterSelect) Disconnect(h Host, p *peer.Peer) State {
	return c.checkAllChosen(h)
}

func (c *CharacterSelect) GotTCPPacket(h Host, p *peer.Peer, pkt *protocol.Packet) (State, error) {
	switch pkt.Type() {
	case protocol.Identity:
		if err := HandleIdentity(h, p, pkt, false); err != nil {
			return nil, err
		}
		return nil, nil

	case protocol.ClientRequestCharacter:
		if p.Player == nil {
			return nil, protoErr("no player record")
		}
		raw, err := pkt.RU8()
		if err != nil {
			return nil, err
		}
		choice := peer.SurvivorCharacter(raw)
		if p.Player.Exe {
			return nil, protoErr("killer cannot pick a survivor character")
		}
		if p.Player.Ch1 != peer.SurvivorNone {
			return nil, protoErr("character already chosen")
		}

		for _, other := range h.Peers().Active() {
			if other.Player != nil && !other.Player.Exe && other.Player.Ch1 == choice {
				resp := protocol.New(protocol.ServerLobbyCharacterResponse)
				resp.WU8(raw)
				resp.WBool(false)
				p.Send(resp)
				return nil, nil
			}
		}

		p.Player.Ch1 = choice
		changed := protocol.New(protocol.ServerLobbyCharacterChange)
		changed.WU16(p.ID())
		changed.WU8(raw)
		h.MulticastReal(changed)

		resp := protocol.New(protocol.ServerLobbyCharacterResponse)
		resp.WU8(raw)
		resp.WBool(true)
		p.Send(resp)

		return c.checkAllChosen(h), nil

	case protocol.ClientRequestExeCharacter:
		if p.Player == nil {
			return nil, protoErr("no player record")
		}
		raw, err := pkt.RU8()
		if err != nil {
			return nil, err
		}
		if !p.Player.Exe {
			return nil, protoErr("only the killer can pick a killer character")
		}
		if p.Player.Ch2 != peer.ExeNone {
			return nil, protoErr("character already chosen")
		}
		// wire contract: client sends the killer-character index 1-indexed.
		if raw == 0 {
			return nil, protoErr("invalid killer character")
		}
		choice := peer.ExeCharacter(raw - 1)

		p.Player.Ch2 = choice
		changed := protocol.New(protocol.ServerLobbyCharacterChange)
		changed.WU16(p.ID())
		changed.WU8(raw)
		h.MulticastReal(changed)

		resp := protocol.New(protocol.ServerLobbyCharacterResponse)
		resp.WU8(raw)
		resp.WBool(true)
		p.Send(resp)

		return c.checkAllChosen(h), nil

	default:
		return nil, nil
	}
}

func (c *CharacterSelect) GotUDPPacket(h Host, addr *net.UDPAddr, pkt *protocol.Packet) (State, error) {
	return nil, nil
}
