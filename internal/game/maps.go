package game

import (
	"math/rand"

	"github.com/foundry/ringserver/internal/geom"
	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
)

// MapConfig is the set of per-match tunables a Map resolves once, at
// Game install, from its own overrides layered on the shared defaults
// (original_source's map.rs formulas, see SPEC_FULL.md §12).
type MapConfig struct {
	MatchDurationSeconds     float64
	RingCooldownSeconds      float64
	BigRingEnabled           bool
	BigRingActivationSeconds float64 // match-clock seconds remaining when the big ring activates
	RingCount                int
	SpawnRedRings            bool
}

// defaultMapConfig applies original_source's map.rs formulas:
// playerTimeMultiplier = max(activePeers,3)/3; matchDuration = 180s *
// multiplier; ringCooldown = 5s - multiplier*0.5.
func defaultMapConfig(activePeers int) MapConfig {
	n := activePeers
	if n < 3 {
		n = 3
	}
	mult := float64(n) / 3.0
	return MapConfig{
		MatchDurationSeconds:     180 * mult,
		RingCooldownSeconds:      5 - mult*0.5,
		BigRingEnabled:           true,
		BigRingActivationSeconds: 120,
		RingCount:                25,
		SpawnRedRings:            true,
	}
}

// Map is the per-map scripted-content interface the Game engine calls
// into; it is the boundary spec.md §1 calls out as an external
// collaborator specified only at its interface.
type Map interface {
	Name() string
	Config(activePeers int) MapConfig
	Init(h Host, g *Game)
	Tick(h Host, g *Game, dt float64)
	GotTCPPacket(h Host, g *Game, p *peer.Peer, pkt *protocol.Packet) error
}

// Maps is the configured list of selectable maps; MapVote draws its
// three ballot options from this slice.
var Maps = []Map{
	&HideAndSeek2{},
	&RavineMist{},
}

// HideAndSeek2 has no map-specific entities or overrides; it runs the
// shared defaults verbatim.
type HideAndSeek2 struct{}

func (m *HideAndSeek2) Name() string                     { return "HideAndSeek2" }
func (m *HideAndSeek2) Config(activePeers int) MapConfig { return defaultMapConfig(activePeers) }
func (m *HideAndSeek2) Init(h Host, g *Game)             {}
func (m *HideAndSeek2) Tick(h Host, g *Game, dt float64) {}
func (m *HideAndSeek2) GotTCPPacket(h Host, g *Game, p *peer.Peer, pkt *protocol.Packet) error {
	return nil
}

// ravineMistShardPoints are the 12 fixed shard spawn points; 7 are
// shuffled-selected at init.
var ravineMistShardPoints = []geom.Vector2{
	{X: -40, Y: 12}, {X: -28, Y: -5}, {X: -10, Y: 30}, {X: 5, Y: -22},
	{X: 18, Y: 40}, {X: 33, Y: 2}, {X: 47, Y: -18}, {X: -50, Y: -30},
	{X: -15, Y: -45}, {X: 22, Y: 22}, {X: 60, Y: 10}, {X: -60, Y: 5},
}

// ravineMistSlugPoints are the 11 fixed slug NPC spawn points.
var ravineMistSlugPoints = []geom.Vector2{
	{X: -35, Y: 0}, {X: -20, Y: 20}, {X: -5, Y: -15}, {X: 10, Y: 35},
	{X: 25, Y: -8}, {X: 40, Y: 18}, {X: -45, Y: -20}, {X: 0, Y: 0},
	{X: 15, Y: -40}, {X: -10, Y: 45}, {X: 55, Y: -5},
}

// RavineMist overrides ring_count and owns shard + slug map NPCs along
// with the melee/projectile slug-hit resolution packet.
type RavineMist struct {
	shardIDs       []uint16
	nextSlugAt     float64 // seconds remaining until the next slug spawn
	slugTimerArmed bool
}

func (m *RavineMist) Name() string { return "RavineMist" }

func (m *RavineMist) Config(activePeers int) MapConfig {
	cfg := defaultMapConfig(activePeers)
	cfg.RingCount = 27
	return cfg
}

func (m *RavineMist) Init(h Host, g *Game) {
	perm := rand.Perm(len(ravineMistShardPoints))[:7]
	for _, idx := range perm {
		pos := ravineMistShardPoints[idx]
		id := g.SpawnQuiet(h, &Shard{Pos: pos})
		m.shardIDs = append(m.shardIDs, id)
	}

	// rand(2..17)*60 frames initially, at 60Hz that's rand(2..17) seconds.
	m.nextSlugAt = float64(2 + rand.Intn(16))
	m.slugTimerArmed = true
}

func (m *RavineMist) Tick(h Host, g *Game, dt float64) {
	if !m.slugTimerArmed {
		return
	}
	m.nextSlugAt -= dt
	if m.nextSlugAt > 0 {
		return
	}
	pos := ravineMistSlugPoints[rand.Intn(len(ravineMistSlugPoints))]
	g.Spawn(h, &Slug{Pos: pos, RedRing: rand.Intn(2) == 0})

	// rand(2..10)*60 + 900 frames between spawns, at 60Hz: rand(2..10) + 15 seconds.
	m.nextSlugAt = float64(2+rand.Intn(9)) + 15
}

func (m *RavineMist) GotTCPPacket(h Host, g *Game, p *peer.Peer, pkt *protocol.Packet) error {
	if pkt.Type() != protocol.ClientRmzSlimeHit {
		return nil
	}
	slugID, err := pkt.RU16()
	if err != nil {
		return err
	}
	melee, err := pkt.RBool()
	if err != nil {
		return err
	}

	ent, ok := g.entities[slugID]
	if !ok {
		return nil
	}
	slug, ok := ent.(*Slug)
	if !ok {
		return protoErr("not a slug")
	}

	g.QueueDestroy(slugID)

	// original_source (maps/ravinemist.rs) only pays the ring bonus on a
	// melee hit; a projectile hit destroys the slug silently.
	if !melee {
		return nil
	}

	bonus := protocol.New(protocol.ServerRmzSlimeRingBonus)
	bonus.WU16(p.ID())
	bonus.WBool(slug.RedRing)
	p.Send(bonus)
	return nil
}
