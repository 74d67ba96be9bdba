package game

import (
	"math/rand"
	"net"

	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

const mapVoteTotalSeconds = 20
const mapVoteFastSeconds = 3

// MapVote picks three ballot options from Maps (see NewMapVote) and
// runs a 20-second vote, clamped to 3 seconds once every active peer
// has voted.
type MapVote struct {
	options     [3]int
	tallies     [3]int
	voted       map[uint16]int
	secondAccum float64
	remaining   int
}

// NewMapVote draws three map indices: three independent random draws
// when at least three maps are configured (duplicates allowed, per
// spec.md §9's unresolved Open Question), otherwise every map once in
// order, with repetition of the last map to pad out to three.
func NewMapVote() *MapVote {
	mv := &MapVote{voted: make(map[uint16]int), remaining: mapVoteTotalSeconds}
	n := len(Maps)
	for i := range mv.options {
		switch {
		case n >= 3:
			mv.options[i] = rand.Intn(n)
		case i < n:
			mv.options[i] = i
		case n > 0:
			mv.options[i] = n - 1
		}
	}
	return mv
}

func (mv *MapVote) Name() string { return "MapVote" }

func (mv *MapVote) Init(h Host) State {
	out := protocol.New(protocol.ServerVoteMaps)
	for _, idx := range mv.options {
		out.WU8(uint8(idx))
	}
	h.MulticastReal(out)
	return nil
}

func (mv *MapVote) Tick(h Host, dt float64) State {
	mv.secondAccum += dt
	for mv.secondAccum >= 1.0 {
		mv.secondAccum -= 1.0
		sync := protocol.New(protocol.ServerVoteTimeSync)
		sync.WU16(uint16(mv.remaining))
		h.MulticastReal(sync)

		mv.remaining--
		if mv.remaining <= 0 {
			return mv.resolve()
		}
	}
	return nil
}

func (mv *MapVote) resolve() State {
	best := 0
	for i := 1; i < 3; i++ {
		if mv.tallies[i] > mv.tallies[best] {
			best = i
		}
	}
	ties := []int{best}
	for i := 0; i < 3; i++ {
		if i != best && mv.tallies[i] == mv.tallies[best] {
			ties = append(ties, i)
		}
	}
	winner := ties[rand.Intn(len(ties))]
	return NewCharacterSelect(mv.options[winner])
}

func (mv *MapVote) Connect(h Host, p *peer.Peer) State { return nil }

func (mv *MapVote) Disconnect(h Host, p *peer.Peer) State {
	delete(mv.voted, p.ID())
	return mv.checkAllVoted(h)
}

func (mv *MapVote) checkAllVoted(h Host) State {
	active := h.Peers().Active()
	if len(active) == 0 {
		return nil
	}
	for _, p := range active {
		if _, ok := mv.voted[p.ID()]; !ok {
			return nil
		}
	}
	if mv.remaining > mapVoteFastSeconds {
		mv.remaining = mapVoteFastSeconds
	}
	return nil
}

func (mv *MapVote) GotTCPPacket(h Host, p *peer.Peer, pkt *protocol.Packet) (State, error) {
	switch pkt.Type() {
	case protocol.Identity:
		if err := HandleIdentity(h, p, pkt, false); err != nil {
			return nil, err
		}
		return nil, nil

	case protocol.ClientVoteRequest:
		choice, err := pkt.RU8()
		if err != nil {
			return nil, err
		}
		if choice > 2 {
			return nil, protoErr("invalid vote choice")
		}
		if _, already := mv.voted[p.ID()]; already {
			return nil, protoErr("duplicate vote")
		}
		mv.voted[p.ID()] = int(choice)
		mv.tallies[choice]++

		out := protocol.New(protocol.ServerVoteSet)
		out.WU16(uint16(mv.tallies[0]))
		out.WU16(uint16(mv.tallies[1]))
		out.WU16(uint16(mv.tallies[2]))
		h.MulticastReal(out)

		return mv.checkAllVoted(h), nil

	default:
		return nil, nil
	}
}

func (mv *MapVote) GotUDPPacket(h Host, addr *net.UDPAddr, pkt *protocol.Packet) (State, error) {
	return nil, nil
}
