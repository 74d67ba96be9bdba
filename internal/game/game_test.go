package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

// newSurvivor returns an active peer with a fresh, living survivor
// Player record.
func newSurvivor(h *fakeHost, ch1 peer.SurvivorCharacter) *peer.Peer {
	p := newTestPeer(h.peers)
	p.Player = peer.NewPlayer()
	p.Player.Ch1 = ch1
	return p
}

func newKiller(h *fakeHost, ch2 peer.ExeCharacter) *peer.Peer {
	p := newTestPeer(h.peers)
	p.Player = peer.NewPlayer()
	p.Player.Exe = true
	p.Player.Ch2 = ch2
	return p
}

func TestResolveDeathTimerDemonizesUnderHalfPopulationCap(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)

	dying := newSurvivor(h, peer.SurvivorTails)
	newSurvivor(h, peer.SurvivorKnuckles)
	newSurvivor(h, peer.SurvivorEggman)
	newSurvivor(h, peer.SurvivorAmy)

	dying.Player.Dead = true
	dying.Player.RevivalTimes = 1

	g.resolveDeathTimerExpiry(h, dying)
	assert.Equal(t, uint8(2), dying.Player.RevivalTimes)
	assert.True(t, dying.Player.Demonized())
}

func TestResolveDeathTimerFinalizesAtHalfPopulationCap(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)

	d1 := newSurvivor(h, peer.SurvivorTails)
	d1.Player.RevivalTimes = 2 // already demonized
	d2 := newSurvivor(h, peer.SurvivorKnuckles)
	d2.Player.RevivalTimes = 2 // already demonized
	dying := newSurvivor(h, peer.SurvivorEggman)
	dying.Player.Dead = true
	dying.Player.RevivalTimes = 1
	newSurvivor(h, peer.SurvivorAmy)

	// demonized=2, total=4: 2 < 4/2 is false, so this death is final.
	g.resolveDeathTimerExpiry(h, dying)
	assert.Equal(t, uint8(1), dying.Player.RevivalTimes)
	assert.False(t, dying.Player.Demonized())
}

func TestCheckStateFiresExeWinsWhenAllSurvivorsDead(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)

	newKiller(h, peer.ExeOriginal)
	s1 := newSurvivor(h, peer.SurvivorTails)
	s1.Player.Dead = true
	s2 := newSurvivor(h, peer.SurvivorKnuckles)
	s2.Player.Dead = true

	next := g.checkState(h)
	assert.Nil(t, next)
	assert.True(t, g.exeWinSent)
	assert.True(t, g.ending)
	assert.False(t, g.survivorWinSent)
}

func TestCheckStateFiresSurvivorWinWhenOneEscapes(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)

	newKiller(h, peer.ExeOriginal)
	s1 := newSurvivor(h, peer.SurvivorTails)
	s1.Player.Escaped = true
	s2 := newSurvivor(h, peer.SurvivorKnuckles)
	s2.Player.Dead = true

	next := g.checkState(h)
	assert.Nil(t, next)
	assert.True(t, g.survivorWinSent)
	assert.True(t, g.ending)
	assert.False(t, g.exeWinSent)
}

func TestCheckStateFallsBackToLobbyWhenOnlyOnePeerRemains(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)
	newKiller(h, peer.ExeOriginal)

	next := g.checkState(h)
	assert.NotNil(t, next)
	assert.Equal(t, "Lobby", next.Name())
}

func TestHandlePlayerEscapedRequiresBigRingReady(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)
	newKiller(h, peer.ExeOriginal)
	s := newSurvivor(h, peer.SurvivorTails)

	_, err := g.handlePlayerEscaped(h, s)
	assert.Error(t, err)

	g.bigRingReady = true
	_, err = g.handlePlayerEscaped(h, s)
	assert.NoError(t, err)
	assert.True(t, s.Player.Escaped)
}

func TestHandlePlayerEscapedRejectsDemonizedSurvivor(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)
	g.bigRingReady = true
	newKiller(h, peer.ExeOriginal)
	s := newSurvivor(h, peer.SurvivorTails)
	s.Player.RevivalTimes = 2

	_, err := g.handlePlayerEscaped(h, s)
	assert.Error(t, err)
}

func tProjectilePacket(x, y, dx, dy float32) *protocol.Packet {
	return rewound(protocol.ClientTProjectile, func(p *protocol.Packet) {
		p.WF32(x)
		p.WF32(y)
		p.WF32(dx)
		p.WF32(dy)
	})
}

func TestHandleTProjectileEnforcesRoleAndOneAtATime(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)
	notTails := newSurvivor(h, peer.SurvivorKnuckles)
	assert.Error(t, g.handleTProjectile(h, notTails, tProjectilePacket(0, 0, 1, 0)))

	tails := newSurvivor(h, peer.SurvivorTails)
	assert.NoError(t, g.handleTProjectile(h, tails, tProjectilePacket(0, 0, 1, 0)))
	assert.Equal(t, 1, g.countKindOwned("tproj", tails.ID()))

	// A second throw before the first is destroyed or its cooldown
	// clears is rejected.
	assert.Error(t, g.handleTProjectile(h, tails, tProjectilePacket(0, 0, 1, 0)))
}

func TestHandleExellerSpawnCloneCapsAtTwo(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)
	exeller := newKiller(h, peer.ExeExeller)

	spawn := func() error {
		return g.handleExellerSpawnClone(h, exeller, rewound(protocol.ClientExellerSpawnClone, func(p *protocol.Packet) {
			p.WF32(0)
			p.WF32(0)
		}))
	}

	assert.NoError(t, spawn())
	assert.NoError(t, spawn())
	assert.Error(t, spawn())
	assert.Equal(t, 2, g.countKind("exclone"))
}

func TestHandleErectorBRingSpawnRequiresExetior(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)
	notExetior := newKiller(h, peer.ExeChaos)

	err := g.handleErectorBRingSpawn(h, notExetior, rewound(protocol.ClientErectorBRingSpawn, func(p *protocol.Packet) {
		p.WF32(1)
		p.WF32(2)
	}))
	assert.Error(t, err)

	exetior := newKiller(h, peer.ExeExetior)
	err = g.handleErectorBRingSpawn(h, exetior, rewound(protocol.ClientErectorBRingSpawn, func(p *protocol.Packet) {
		p.WF32(1)
		p.WF32(2)
	}))
	assert.NoError(t, err)
	assert.Equal(t, 1, g.countKind("bring"))
}

func TestEntityDestroyDrainIsDeferredAcrossTick(t *testing.T) {
	h := newFakeHost()
	g := NewGame(0, 0)
	id := g.SpawnQuiet(h, &Ring{Slot: 0})
	assert.Equal(t, 1, len(g.entities))

	g.QueueDestroy(id)
	assert.Equal(t, 1, len(g.entities), "destroy is deferred until drainDestroy runs")

	g.drainDestroy(h)
	assert.Equal(t, 0, len(g.entities))
}
