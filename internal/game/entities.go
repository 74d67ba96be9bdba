package game

import (
	"github.com/foundry/ringserver/internal/geom"
	"github.com/foundry/ringserver/internal/protocol"
)

// Entity is the tick-driven game object lifecycle contract of spec.md
// §4.9. Implementations get a mutable reference to both the Host and
// the owning Game, so they can queue their own destroy (self-destruct
// timers) instead of signaling it back through a return value; each
// method may still return at most one packet for the sub-server to
// broadcast.
//
// The server-side invariants that would otherwise require downcasting
// a generic Entity (reading a slug's ring color after a melee hit,
// matching a ring by slot+uid) are instead handled by type-switching on
// the concrete struct at the one or two call sites that need it
// (maps.go, game.go's privileged-action table).
type Entity interface {
	Kind() string
	Spawn(h Host, g *Game, id uint16) *protocol.Packet
	Tick(h Host, g *Game, id uint16) *protocol.Packet
	Destroy(h Host, g *Game, id uint16) *protocol.Packet
}

// entity state sub-ops: the first body byte, written before the entity
// id, that disambiguates spawn/tick/destroy sharing one opcode
// (spec.md §6).
const (
	subopSpawn   uint8 = 0
	subopTick    uint8 = 1
	subopDestroy uint8 = 2
)

// Ring is an ordinary ring-slot entity; Red marks a red ring (only
// collectible by a demonized survivor). Slot indexes the map's
// ring-slot table; CreamRing reuses this type's wire shape with
// Slot==255 so it is matched by entity uid alone at collection time.
type Ring struct {
	Pos  geom.Vector2
	Red  bool
	Slot uint8
}

func (r *Ring) Kind() string { return "ring" }

func (r *Ring) Spawn(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerRingState)
	p.WU8(subopSpawn)
	p.WU16(id)
	p.WF32(float32(r.Pos.X))
	p.WF32(float32(r.Pos.Y))
	p.WBool(r.Red)
	p.WU8(r.Slot)
	return p
}

func (r *Ring) Tick(h Host, g *Game, id uint16) *protocol.Packet { return nil }

func (r *Ring) Destroy(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerRingState)
	p.WU8(subopDestroy)
	p.WU16(id)
	return p
}

// BlackRing is the Exetior-killer-spawned ring. Its spawn packet is
// sent explicitly (SERVER_ERECTOR_BRING_SPAWN) by the CLIENT_ERECTOR_
// BRING_SPAWN handler via spawn_quiet, so Spawn returns nil here.
type BlackRing struct {
	Pos       geom.Vector2
	SpawnedBy uint16
}

func (b *BlackRing) Kind() string                                     { return "bring" }
func (b *BlackRing) Spawn(h Host, g *Game, id uint16) *protocol.Packet { return nil }
func (b *BlackRing) Tick(h Host, g *Game, id uint16) *protocol.Packet  { return nil }
func (b *BlackRing) Destroy(h Host, g *Game, id uint16) *protocol.Packet {
	return nil
}

// CreamRing is a ring fanned out by CLIENT_CREAM_SPAWN_RINGS; it has no
// ring-slot table entry and is matched at collection by entity uid.
type CreamRing struct {
	Pos   geom.Vector2
	Red   bool
	Owner uint16
}

func (c *CreamRing) Kind() string { return "creamring" }

func (c *CreamRing) Spawn(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerRingState)
	p.WU8(subopSpawn)
	p.WU16(id)
	p.WF32(float32(c.Pos.X))
	p.WF32(float32(c.Pos.Y))
	p.WBool(c.Red)
	p.WU8(255)
	return p
}

func (c *CreamRing) Tick(h Host, g *Game, id uint16) *protocol.Packet { return nil }

func (c *CreamRing) Destroy(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerRingState)
	p.WU8(subopDestroy)
	p.WU16(id)
	return p
}

// TailsProjectileLifeFrames is the self-destruct window for a spawned
// projectile (5 seconds at 60Hz).
const TailsProjectileLifeFrames = 5 * 60

// TailsProjectile is Tails's thrown projectile; it self-destructs after
// TailsProjectileLifeFrames ticks if never reported hit.
type TailsProjectile struct {
	Owner     uint16
	Pos, Dir  geom.Vector2
	lifeLeft  int
}

func (t *TailsProjectile) Kind() string { return "tproj" }

func (t *TailsProjectile) Spawn(h Host, g *Game, id uint16) *protocol.Packet {
	t.lifeLeft = TailsProjectileLifeFrames
	p := protocol.New(protocol.ServerTProjectileState)
	p.WU8(subopSpawn)
	p.WU16(id)
	p.WU16(t.Owner)
	p.WF32(float32(t.Pos.X))
	p.WF32(float32(t.Pos.Y))
	p.WF32(float32(t.Dir.X))
	p.WF32(float32(t.Dir.Y))
	return p
}

func (t *TailsProjectile) Tick(h Host, g *Game, id uint16) *protocol.Packet {
	if t.lifeLeft <= 0 {
		return nil
	}
	t.lifeLeft--
	if t.lifeLeft == 0 {
		g.QueueDestroy(id)
	}
	return nil
}

func (t *TailsProjectile) Destroy(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerTProjectileState)
	p.WU8(subopDestroy)
	p.WU16(id)
	return p
}

// EggmanTracker is Eggman's placed tracker; ActivatedBy is 0 until a
// peer triggers it (CLIENT_ETRACKER_ACTIVATED), after which it is
// queued for destroy.
type EggmanTracker struct {
	Owner       uint16
	Pos         geom.Vector2
	ActivatedBy uint16
}

func (e *EggmanTracker) Kind() string { return "etracker" }

func (e *EggmanTracker) Spawn(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerEtrackerState)
	p.WU8(subopSpawn)
	p.WU16(id)
	p.WU16(e.Owner)
	p.WF32(float32(e.Pos.X))
	p.WF32(float32(e.Pos.Y))
	return p
}

func (e *EggmanTracker) Tick(h Host, g *Game, id uint16) *protocol.Packet { return nil }

func (e *EggmanTracker) Destroy(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerEtrackerState)
	p.WU8(subopDestroy)
	p.WU16(id)
	p.WU16(e.ActivatedBy)
	return p
}

// ExellerClone is one of Exeller's up-to-two decoy clones.
type ExellerClone struct {
	Owner uint16
	Pos   geom.Vector2
}

func (x *ExellerClone) Kind() string { return "exclone" }

func (x *ExellerClone) Spawn(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerExellerCloneState)
	p.WU8(subopSpawn)
	p.WU16(id)
	p.WU16(x.Owner)
	p.WF32(float32(x.Pos.X))
	p.WF32(float32(x.Pos.Y))
	return p
}

func (x *ExellerClone) Tick(h Host, g *Game, id uint16) *protocol.Packet { return nil }

func (x *ExellerClone) Destroy(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerExellerCloneState)
	p.WU8(subopDestroy)
	p.WU16(id)
	return p
}

// Slug is RavineMist's periodically-spawned map NPC. RedRing marks
// which ring bonus it pays out to whoever reports hitting it.
type Slug struct {
	Pos     geom.Vector2
	RedRing bool
}

func (s *Slug) Kind() string { return "slug" }

func (s *Slug) Spawn(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerRmzSlimeState)
	p.WU8(subopSpawn)
	p.WU16(id)
	p.WF32(float32(s.Pos.X))
	p.WF32(float32(s.Pos.Y))
	p.WBool(s.RedRing)
	return p
}

func (s *Slug) Tick(h Host, g *Game, id uint16) *protocol.Packet { return nil }

func (s *Slug) Destroy(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerRmzSlimeState)
	p.WU8(subopDestroy)
	p.WU16(id)
	return p
}

// Shard is one of RavineMist's fixed ambient pickups. Collection is not
// server-arbitrated: no CLIENT_* opcode in the registry reports it, so
// a shard lives for the whole match once placed (see DESIGN.md's note
// on this Open Question resolution).
type Shard struct {
	Pos geom.Vector2
}

func (s *Shard) Kind() string { return "shard" }

func (s *Shard) Spawn(h Host, g *Game, id uint16) *protocol.Packet {
	p := protocol.New(protocol.ServerRmzSlimeState)
	p.WU8(subopSpawn)
	p.WU16(id)
	p.WF32(float32(s.Pos.X))
	p.WF32(float32(s.Pos.Y))
	p.WBool(false)
	return p
}

func (s *Shard) Tick(h Host, g *Game, id uint16) *protocol.Packet   { return nil }
func (s *Shard) Destroy(h Host, g *Game, id uint16) *protocol.Packet { return nil }
