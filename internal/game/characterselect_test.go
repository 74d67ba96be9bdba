package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

func TestPickKillerHonorsFullChanceDeterministically(t *testing.T) {
	h := newFakeHost()
	certain := newTestPeer(h.peers)
	certain.ExeChance = 100
	never := newTestPeer(h.peers)
	never.ExeChance = 0

	killer := pickKiller(h.peers.Active())
	assert.Equal(t, certain.ID(), killer.ID())
}

func TestPickKillerOnEmptyActiveIsNil(t *testing.T) {
	assert.Nil(t, pickKiller(nil))
}

func TestCharacterSelectTransitionsToGameOnceAllChosen(t *testing.T) {
	h := newFakeHost()
	killer := newTestPeer(h.peers)
	killer.ExeChance = 100
	survivor := newTestPeer(h.peers)
	survivor.ExeChance = 0

	cs := NewCharacterSelect(0)
	assert.Nil(t, cs.Init(h))
	assert.Equal(t, killer.ID(), cs.killerID)
	assert.True(t, killer.Player.Exe)
	assert.False(t, survivor.Player.Exe)

	exePkt := rewound(protocol.ClientRequestExeCharacter, func(p *protocol.Packet) {
		p.WU8(1) // wire contract: 1-indexed, ExeOriginal
	})
	next, err := cs.GotTCPPacket(h, killer, exePkt)
	assert.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, peer.ExeOriginal, killer.Player.Ch2)

	survPkt := rewound(protocol.ClientRequestCharacter, func(p *protocol.Packet) {
		p.WU8(uint8(peer.SurvivorTails))
	})
	next, err = cs.GotTCPPacket(h, survivor, survPkt)
	assert.NoError(t, err)
	assert.NotNil(t, next)
	assert.Equal(t, "Game", next.Name())
}

func TestCharacterSelectRejectsDuplicateSurvivorCharacter(t *testing.T) {
	h := newFakeHost()
	killer := newTestPeer(h.peers)
	killer.ExeChance = 100
	s1 := newTestPeer(h.peers)
	s1.ExeChance = 0
	s2 := newTestPeer(h.peers)
	s2.ExeChance = 0

	cs := NewCharacterSelect(0)
	cs.Init(h)

	pkt := func() *protocol.Packet {
		return rewound(protocol.ClientRequestCharacter, func(p *protocol.Packet) {
			p.WU8(uint8(peer.SurvivorTails))
		})
	}
	_, err := cs.GotTCPPacket(h, s1, pkt())
	assert.NoError(t, err)
	assert.Equal(t, peer.SurvivorTails, s1.Player.Ch1)

	_, err = cs.GotTCPPacket(h, s2, pkt())
	assert.NoError(t, err)
	assert.Equal(t, peer.SurvivorNone, s2.Player.Ch1)
}
