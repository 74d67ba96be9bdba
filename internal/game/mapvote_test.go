package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foundry/ringserver/internal/protocol"
)

func votePacket(choice uint8) *protocol.Packet {
	return rewound(protocol.ClientVoteRequest, func(p *protocol.Packet) {
		p.WU8(choice)
	})
}

func TestMapVoteResolvesToHighestTally(t *testing.T) {
	mv := NewMapVote()
	mv.tallies = [3]int{1, 5, 2}

	next := mv.resolve()
	cs, ok := next.(*CharacterSelect)
	assert.True(t, ok)
	assert.Equal(t, mv.options[1], cs.mapIndex)
}

func TestMapVoteFastForwardsCountdownOnceEveryoneVoted(t *testing.T) {
	h := newFakeHost()
	p1 := newTestPeer(h.peers)
	p2 := newTestPeer(h.peers)

	mv := NewMapVote()
	mv.remaining = mapVoteTotalSeconds

	_, err := mv.GotTCPPacket(h, p1, votePacket(0))
	assert.NoError(t, err)
	assert.Equal(t, mapVoteTotalSeconds, mv.remaining)

	_, err = mv.GotTCPPacket(h, p2, votePacket(1))
	assert.NoError(t, err)
	assert.Equal(t, mapVoteFastSeconds, mv.remaining)
}

func TestMapVoteDuplicateVoteIsRejected(t *testing.T) {
	h := newFakeHost()
	p1 := newTestPeer(h.peers)

	mv := NewMapVote()
	_, err := mv.GotTCPPacket(h, p1, votePacket(0))
	assert.NoError(t, err)

	_, err = mv.GotTCPPacket(h, p1, votePacket(1))
	assert.Error(t, err)
}

func TestMapVoteRejectsOutOfRangeChoice(t *testing.T) {
	h := newFakeHost()
	p1 := newTestPeer(h.peers)

	mv := NewMapVote()
	_, err := mv.GotTCPPacket(h, p1, votePacket(3))
	assert.Error(t, err)
}
