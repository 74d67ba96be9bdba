package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

func readyPacket(ready bool) *protocol.Packet {
	return rewound(protocol.ClientLobbyReadyState, func(p *protocol.Packet) {
		p.WBool(ready)
	})
}

func setReady(t *testing.T, l *Lobby, h *fakeHost, p *peer.Peer, ready bool) {
	t.Helper()
	next, err := l.GotTCPPacket(h, p, readyPacket(ready))
	assert.NoError(t, err)
	assert.Nil(t, next)
}

func TestLobbyCountdownStartsWhenAllReadyAndTransitionsToMapVote(t *testing.T) {
	h := newFakeHost()
	p1 := newTestPeer(h.peers)
	p2 := newTestPeer(h.peers)

	l := NewLobby(false)
	assert.Nil(t, l.Init(h))

	setReady(t, l, h, p1, true)
	setReady(t, l, h, p2, true)
	assert.Equal(t, lobbyReadySeconds, l.countdown)

	var next State
	for i := 0; i < lobbyReadySeconds; i++ {
		next = l.Tick(h, 1.0)
	}
	assert.NotNil(t, next)
	assert.Equal(t, "MapVote", next.Name())
}

func TestLobbyCountdownCancelsWhenAPeerUnreadies(t *testing.T) {
	h := newFakeHost()
	p1 := newTestPeer(h.peers)
	p2 := newTestPeer(h.peers)

	l := NewLobby(false)
	l.Init(h)

	setReady(t, l, h, p1, true)
	setReady(t, l, h, p2, true)
	assert.NotZero(t, l.countdown)

	setReady(t, l, h, p2, false)
	assert.Zero(t, l.countdown)

	next := l.Tick(h, float64(lobbyReadySeconds))
	assert.Nil(t, next)
}

func TestLobbyNeedsAtLeastTwoReadyPeers(t *testing.T) {
	h := newFakeHost()
	p1 := newTestPeer(h.peers)

	l := NewLobby(false)
	l.Init(h)

	setReady(t, l, h, p1, true)
	assert.Zero(t, l.countdown)
}

func TestLobbyAFKTimeoutDisconnectsNotReadyPeer(t *testing.T) {
	h := newFakeHost()
	p1 := newTestPeer(h.peers)

	l := NewLobby(false)
	l.Init(h)

	for i := 0; i < lobbyAFKSeconds; i++ {
		l.Tick(h, 1.0)
	}
	_, stillPresent := h.peers.Get(p1.ID())
	assert.False(t, stillPresent)
}
