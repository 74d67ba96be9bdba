package game

import (
	"math/rand"
	"net"

	"github.com/foundry/ringserver/internal/geom"
	"github.com/foundry/ringserver/internal/peer"
	"github.com/foundry/ringserver/internal/protocol"
	"github.com/foundry/ringserver/internal/timer"
)

// framesFromSeconds converts a seconds value into the map's nominal
// 60Hz frame unit, per spec.md §4.8's "convert to frames at 60Hz".
func framesFromSeconds(s float64) uint16 {
	if s < 0 {
		return 0
	}
	return uint16(s * 60)
}

// Cooldown durations not pinned down by spec.md's prose: the tracker
// matches the projectile's documented 10s, Cream's and Exetior's rings
// run longer (15s, 20s); recorded here as the resolution of that
// silence (see DESIGN.md).
const (
	etrackerCooldownSeconds    = 10
	creamRingCooldownSeconds   = 15
	exetiorRingCooldownSeconds = 20
	deathTimerSeconds          = 30
	endgameAccelerateSeconds   = 120 // 2 minutes
)

// Game is the hardest subsystem: tick-driven simulation, entity
// spawn/destroy, named timers, and authoritative rule enforcement.
type Game struct {
	mapIndex int
	mp       Map
	killerID uint16
	cfg      MapConfig

	timers       *timer.Set
	entities     map[uint16]Entity
	nextEntityID uint16
	destroyQueue []uint16
	ringSlots    []bool

	udpAddrs  map[uint16]*net.UDPAddr
	positions map[uint16]geom.Vector2

	started bool
	// frameCounter advances once per engine Tick call and stands in for
	// original_source's 60Hz frame clock; spec.md's nominal 66.66Hz
	// control loop makes a "frame" here run slightly faster than a wall
	// second, a carried-over original_source quirk rather than a bug fix
	// (see DESIGN.md).
	frameCounter int

	bigRingReady  bool
	bigRingWarned bool
	bigRingSlot   uint8

	ending         bool
	endSecondsLeft int

	survivorWinSent bool
	exeWinSent      bool
	timeOverSent    bool
}

// NewGame returns a Game for the winning map, with the already-elected
// killer peer id.
func NewGame(mapIndex int, killerID uint16) *Game {
	return &Game{
		mapIndex:     mapIndex,
		killerID:     killerID,
		timers:       timer.NewSet(),
		entities:     make(map[uint16]Entity),
		nextEntityID: 1,
		udpAddrs:     make(map[uint16]*net.UDPAddr),
		positions:    make(map[uint16]geom.Vector2),
	}
}

func (g *Game) Name() string { return "Game" }

func (g *Game) Init(h Host) State {
	g.mp = Maps[g.mapIndex]
	active := h.Peers().Active()
	g.cfg = g.mp.Config(len(active))
	g.timers.Set(timer.Time, framesFromSeconds(g.cfg.MatchDurationSeconds))
	g.ringSlots = make([]bool, g.cfg.RingCount)

	h.MulticastReal(protocol.New(protocol.ServerLobbyGameStart))
	return nil
}

// --- entity / destroy-queue plumbing -------------------------------

// Spawn assigns the next entity id, calls Spawn on it, reliably
// broadcasts any returned packet to active peers, and inserts it.
func (g *Game) Spawn(h Host, e Entity) uint16 {
	id := g.nextEntityID
	g.nextEntityID++
	if pkt := e.Spawn(h, g, id); pkt != nil {
		h.MulticastReal(pkt)
	}
	g.entities[id] = e
	return id
}

// SpawnQuiet is Spawn without the broadcast, for callers that send a
// bespoke spawn packet themselves.
func (g *Game) SpawnQuiet(h Host, e Entity) uint16 {
	id := g.nextEntityID
	g.nextEntityID++
	e.Spawn(h, g, id)
	g.entities[id] = e
	return id
}

// QueueDestroy appends id to the deferred destroy queue.
func (g *Game) QueueDestroy(id uint16) {
	g.destroyQueue = append(g.destroyQueue, id)
}

func (g *Game) drainDestroy(h Host) {
	if len(g.destroyQueue) == 0 {
		return
	}
	queue := g.destroyQueue
	g.destroyQueue = nil
	for _, id := range queue {
		e, ok := g.entities[id]
		if !ok {
			continue
		}
		delete(g.entities, id)
		if pkt := e.Destroy(h, g, id); pkt != nil {
			h.MulticastReal(pkt)
		}
	}
}

// EntityCount reports the number of live entities. It satisfies the
// optional entityCounter interface subserver.SubServer probes for when
// reporting the entities_alive gauge; Lobby/MapVote/CharacterSelect
// have no entities and don't implement it.
func (g *Game) EntityCount() int { return len(g.entities) }

func (g *Game) entitySnapshot() map[uint16]Entity {
	out := make(map[uint16]Entity, len(g.entities))
	for id, e := range g.entities {
		out[id] = e
	}
	return out
}

func (g *Game) countKind(kind string) int {
	n := 0
	for _, e := range g.entities {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

func (g *Game) countKindOwned(kind string, owner uint16) int {
	n := 0
	for _, e := range g.entities {
		if e.Kind() != kind {
			continue
		}
		switch v := e.(type) {
		case *TailsProjectile:
			if v.Owner == owner {
				n++
			}
		case *EggmanTracker:
			if v.Owner == owner {
				n++
			}
		case *ExellerClone:
			if v.Owner == owner {
				n++
			}
		}
	}
	return n
}

func (g *Game) participantAddrs() []*net.UDPAddr {
	out := make([]*net.UDPAddr, 0, len(g.udpAddrs))
	for _, a := range g.udpAddrs {
		out = append(out, a)
	}
	return out
}

func (g *Game) seedRings(h Host) {
	n := len(g.ringSlots)
	if n == 0 {
		return
	}
	toSpawn := n
	if toSpawn > 8 {
		toSpawn = 8
	}
	for _, slot := range rand.Perm(n)[:toSpawn] {
		red := g.cfg.SpawnRedRings && rand.Intn(10) == 0
		pos := geom.Vector2{X: float64(rand.Intn(200) - 100), Y: float64(rand.Intn(200) - 100)}
		g.ringSlots[slot] = true
		g.Spawn(h, &Ring{Pos: pos, Red: red, Slot: uint8(slot)})
	}
}

func (g *Game) randomSlot() uint8 {
	if len(g.ringSlots) == 0 {
		return 0
	}
	return uint8(rand.Intn(len(g.ringSlots)))
}

// --- tick ------------------------------------------------------------

func (g *Game) Tick(h Host, dt float64) State {
	if g.ending {
		return g.tickEnding(h)
	}
	if !g.started {
		return g.tickReadiness(h)
	}

	g.frameCounter++

	g.drainDestroy(h)
	g.mp.Tick(h, g, dt)

	for id, e := range g.entitySnapshot() {
		if pkt := e.Tick(h, g, id); pkt != nil {
			h.UDPMulticast(g.participantAddrs(), pkt)
		}
	}

	g.timers.Tick()
	g.runFrameLogic(h)
	g.drainDestroy(h)

	g.checkTimeout(h)
	return g.checkState(h)
}

func (g *Game) tickReadiness(h Host) State {
	active := h.Peers().Active()
	if len(active) == 0 || len(g.udpAddrs) < len(active) {
		return nil
	}
	g.seedRings(h)
	g.mp.Init(h, g)
	h.MulticastReal(protocol.New(protocol.ServerGamePlayersReady))
	g.started = true
	return nil
}

func (g *Game) tickEnding(h Host) State {
	g.frameCounter++
	if g.frameCounter%60 != 0 {
		return nil
	}
	g.endSecondsLeft--
	if g.endSecondsLeft <= 0 {
		return NewLobby(true)
	}
	return nil
}

func (g *Game) startEnding() {
	if g.ending {
		return
	}
	g.ending = true
	g.endSecondsLeft = 5
}

func (g *Game) runFrameLogic(h Host) {
	remaining := g.timers.Get(timer.Time)
	accelerateBelow := framesFromSeconds(endgameAccelerateSeconds)

	for _, p := range h.Peers().Active() {
		if p.Player == nil || p.Player.Exe {
			continue
		}
		pl := p.Player
		if !(pl.Dead && !pl.Escaped && pl.RevivalTimes < 2 && pl.DeathTimer > 0) {
			continue
		}
		pl.DeathTimer--
		if remaining <= accelerateBelow {
			pl.DeathTimer = 0
		}
		if pl.DeathTimer == 0 {
			g.resolveDeathTimerExpiry(h, p)
		} else if pl.DeathTimer%60 == 0 {
			tick := protocol.New(protocol.ServerGameDeathtimerTick)
			tick.WU16(p.ID())
			tick.WU16(uint16(pl.DeathTimer / 60))
			p.Send(tick)
		}
	}

	if g.cfg.BigRingEnabled {
		activation := framesFromSeconds(g.cfg.BigRingActivationSeconds)
		warnAt := activation + framesFromSeconds(60)

		if !g.bigRingWarned && remaining <= warnAt {
			g.bigRingWarned = true
			g.bigRingSlot = g.randomSlot()
			out := protocol.New(protocol.ServerGameSpawnRing)
			out.WBool(false)
			out.WU8(g.bigRingSlot)
			h.MulticastReal(out)
		}
		if !g.bigRingReady && remaining <= activation {
			g.bigRingReady = true
			out := protocol.New(protocol.ServerGameSpawnRing)
			out.WBool(true)
			out.WU8(g.bigRingSlot)
			h.MulticastReal(out)
		}
	}

	if g.frameCounter%60 == 0 {
		sync := protocol.New(protocol.ServerGameTimeSync)
		sync.WU16(remaining)
		h.MulticastReal(sync)
	}
}

func (g *Game) demonizedSurvivorCount(h Host) int {
	n := 0
	for _, p := range h.Peers().Active() {
		if p.Player != nil && !p.Player.Exe && p.Player.Demonized() {
			n++
		}
	}
	return n
}

func (g *Game) survivorCount(h Host) int {
	n := 0
	for _, p := range h.Peers().Active() {
		if p.Player != nil && !p.Player.Exe {
			n++
		}
	}
	return n
}

// resolveDeathTimerExpiry demonizes the survivor unless the half-
// population cap is already reached, in which case their death is
// final (spec.md §4.8, scenario 5).
func (g *Game) resolveDeathTimerExpiry(h Host, p *peer.Peer) {
	demonized := g.demonizedSurvivorCount(h)
	total := g.survivorCount(h)

	out := protocol.New(protocol.ServerGameDeathtimerEnd)
	out.WU16(p.ID())
	if demonized < total/2 {
		p.Player.RevivalTimes = 2
		out.WBool(true)
	} else {
		out.WBool(false)
	}
	p.Send(out)
}

func (g *Game) checkTimeout(h Host) {
	if g.ending || g.timeOverSent {
		return
	}
	if g.timers.Zero(timer.Time) {
		g.timeOverSent = true
		h.MulticastReal(protocol.New(protocol.ServerGameTimeOver))
		g.startEnding()
	}
}

// checkState re-evaluates end conditions after any death, escape, or
// disconnect, per spec.md §4.8.
func (g *Game) checkState(h Host) State {
	active := h.Peers().Active()
	if len(active) <= 1 {
		return NewLobby(true)
	}
	if g.ending {
		return nil
	}

	anyEscaped := false
	allAccountedFor := true
	haveSurvivors := false
	for _, p := range active {
		if p.Player == nil || p.Player.Exe {
			continue
		}
		haveSurvivors = true
		if p.Player.Escaped {
			anyEscaped = true
			continue
		}
		if !p.Player.Dead {
			allAccountedFor = false
		}
	}

	if haveSurvivors && allAccountedFor {
		if anyEscaped {
			if !g.survivorWinSent {
				g.survivorWinSent = true
				h.MulticastReal(protocol.New(protocol.ServerGameSurvivorWin))
				g.startEnding()
			}
		} else if !g.exeWinSent {
			g.exeWinSent = true
			h.MulticastReal(protocol.New(protocol.ServerGameExeWins))
			g.startEnding()
		}
	}
	return nil
}

func (g *Game) Connect(h Host, p *peer.Peer) State { return nil }

func (g *Game) Disconnect(h Host, p *peer.Peer) State {
	delete(g.udpAddrs, p.ID())
	delete(g.positions, p.ID())

	if p.Player != nil && p.Player.Exe && !g.ending {
		if !g.survivorWinSent && !g.exeWinSent {
			g.survivorWinSent = true
			h.MulticastReal(protocol.New(protocol.ServerGameSurvivorWin))
			g.startEnding()
		}
	}
	return g.checkState(h)
}

// --- TCP packet handling: privileged-action enforcement table --------

func (g *Game) GotTCPPacket(h Host, p *peer.Peer, pkt *protocol.Packet) (State, error) {
	if err := g.enforcePassthroughWhitelist(pkt); err != nil {
		return nil, err
	}

	next, err := g.dispatchTCP(h, p, pkt)
	if err != nil {
		return nil, err
	}

	pkt.Rewind(2)
	if mapErr := g.mp.GotTCPPacket(h, g, p, pkt); mapErr != nil {
		return nil, mapErr
	}
	return next, nil
}

// enforcePassthroughWhitelist rejects passthrough=1 on an opcode the
// server does not recognize at all; every known opcode is allowed to
// carry it (either because it is independently validated below, or
// because it falls through to the generic relay case).
func (g *Game) enforcePassthroughWhitelist(pkt *protocol.Packet) error {
	// ClientRmzSlimeHit is the last opcode in the registry.
	if pkt.Passthrough() && (pkt.Type() == protocol.PacketUnknown || pkt.Type() > protocol.ClientRmzSlimeHit) {
		return protoErr("unrecognized passthrough packet")
	}
	return nil
}

func (g *Game) dispatchTCP(h Host, p *peer.Peer, pkt *protocol.Packet) (State, error) {
	switch pkt.Type() {
	case protocol.Identity:
		if err := HandleIdentity(h, p, pkt, false); err != nil {
			return nil, err
		}
		return nil, nil

	case protocol.ClientTProjectile:
		return nil, g.handleTProjectile(h, p, pkt)

	case protocol.ClientTProjectileHit:
		for id, e := range g.entities {
			if tp, ok := e.(*TailsProjectile); ok && tp.Owner == p.ID() {
				g.QueueDestroy(id)
			}
		}
		return nil, nil

	case protocol.ClientEtracker:
		return nil, g.handleEtracker(h, p, pkt)

	case protocol.ClientEtrackerActivated:
		return nil, g.handleEtrackerActivated(p, pkt)

	case protocol.ClientCreamSpawnRings:
		return nil, g.handleCreamSpawnRings(h, p, pkt)

	case protocol.ClientRingCollected:
		return nil, g.handleRingCollected(p, pkt)

	case protocol.ClientErectorBRingSpawn:
		return nil, g.handleErectorBRingSpawn(h, p, pkt)

	case protocol.ClientBRingCollected:
		return nil, g.handleBRingCollected(p, pkt)

	case protocol.ClientExellerSpawnClone:
		return nil, g.handleExellerSpawnClone(h, p, pkt)

	case protocol.ClientExellerTeleportClone:
		return nil, g.handleExellerTeleportClone(p, pkt)

	case protocol.ClientPlayerDeathState:
		return g.handlePlayerDeathState(h, p, pkt)

	case protocol.ClientPlayerEscaped:
		return g.handlePlayerEscaped(h, p)

	case protocol.ClientRevivalProgress:
		return nil, g.handleRevivalProgress(h, p, pkt)

	default:
		if pkt.Passthrough() {
			h.MulticastRealExcept(pkt, p.ID())
		}
		return nil, nil
	}
}

func (g *Game) handleTProjectile(h Host, p *peer.Peer, pkt *protocol.Packet) error {
	if p.Player == nil || p.Player.Exe || p.Player.Ch1 != peer.SurvivorTails {
		return protoErr("role mismatch: not Tails")
	}
	if !g.timers.Zero(timer.TailsProjectile) {
		return protoErr("cooldown not zero: tails projectile")
	}
	if g.countKindOwned("tproj", p.ID()) > 0 {
		return protoErr("projectile abusing")
	}
	x, err := pkt.RF32()
	if err != nil {
		return err
	}
	y, err := pkt.RF32()
	if err != nil {
		return err
	}
	dx, err := pkt.RF32()
	if err != nil {
		return err
	}
	dy, err := pkt.RF32()
	if err != nil {
		return err
	}
	g.Spawn(h, &TailsProjectile{
		Owner: p.ID(),
		Pos:   geom.Vector2{X: float64(x), Y: float64(y)},
		Dir:   geom.Vector2{X: float64(dx), Y: float64(dy)},
	})
	g.timers.Set(timer.TailsProjectile, framesFromSeconds(10))
	return nil
}

func (g *Game) handleEtracker(h Host, p *peer.Peer, pkt *protocol.Packet) error {
	if p.Player == nil || p.Player.Exe || p.Player.Ch1 != peer.SurvivorEggman {
		return protoErr("role mismatch: not Eggman")
	}
	if !g.timers.Zero(timer.EggmanTracker) {
		return protoErr("cooldown not zero: eggman tracker")
	}
	x, err := pkt.RF32()
	if err != nil {
		return err
	}
	y, err := pkt.RF32()
	if err != nil {
		return err
	}
	g.Spawn(h, &EggmanTracker{Owner: p.ID(), Pos: geom.Vector2{X: float64(x), Y: float64(y)}})
	g.timers.Set(timer.EggmanTracker, framesFromSeconds(etrackerCooldownSeconds))
	return nil
}

func (g *Game) handleEtrackerActivated(p *peer.Peer, pkt *protocol.Packet) error {
	id, err := pkt.RU16()
	if err != nil {
		return err
	}
	e, ok := g.entities[id]
	if !ok {
		return nil
	}
	tracker, ok := e.(*EggmanTracker)
	if !ok {
		return protoErr("not a tracker")
	}
	tracker.ActivatedBy = p.ID()
	g.QueueDestroy(id)
	return nil
}

func (g *Game) handleCreamSpawnRings(h Host, p *peer.Peer, pkt *protocol.Packet) error {
	if p.Player == nil || p.Player.Exe || p.Player.Ch1 != peer.SurvivorCream {
		return protoErr("role mismatch: not Cream")
	}
	if !g.timers.Zero(timer.CreamRing) {
		return protoErr("cooldown not zero: cream ring")
	}
	x, err := pkt.RF32()
	if err != nil {
		return err
	}
	y, err := pkt.RF32()
	if err != nil {
		return err
	}
	red, err := pkt.RBool()
	if err != nil {
		return err
	}
	if red && !p.Player.Demonized() {
		return protoErr("red cream rings require demonization")
	}
	if !red && (p.Player.Dead || p.Player.Demonized()) {
		return protoErr("yellow cream rings require a living, non-demonized caster")
	}

	center := geom.Vector2{X: float64(x), Y: float64(y)}
	var pts []geom.Vector2
	if red {
		pts = geom.FanAround(center, 0, 3.14159265, 2, 2)
	} else {
		pts = geom.FanAround(center, 0, 3.14159265/2, 2, 3)
	}
	for _, pt := range pts {
		g.Spawn(h, &CreamRing{Pos: pt, Red: red, Owner: p.ID()})
	}
	g.timers.Set(timer.CreamRing, framesFromSeconds(creamRingCooldownSeconds))
	return nil
}

func (g *Game) handleRingCollected(p *peer.Peer, pkt *protocol.Packet) error {
	slot, err := pkt.RU8()
	if err != nil {
		return err
	}
	id, err := pkt.RU16()
	if err != nil {
		return err
	}

	if slot != 255 {
		e, ok := g.entities[id]
		if !ok {
			return nil
		}
		ring, ok := e.(*Ring)
		if !ok || ring.Slot != slot {
			return protoErr("ring slot/uid mismatch")
		}
		if int(slot) < len(g.ringSlots) {
			g.ringSlots[slot] = false
		}
		g.QueueDestroy(id)
		resp := protocol.New(protocol.ServerRingCollected)
		resp.WBool(ring.Red)
		p.Send(resp)
		return nil
	}

	e, ok := g.entities[id]
	if !ok {
		return nil
	}
	cream, ok := e.(*CreamRing)
	if !ok {
		return protoErr("not a cream ring")
	}
	g.QueueDestroy(id)
	resp := protocol.New(protocol.ServerRingCollected)
	resp.WBool(cream.Red)
	p.Send(resp)
	return nil
}

func (g *Game) handleErectorBRingSpawn(h Host, p *peer.Peer, pkt *protocol.Packet) error {
	if p.Player == nil || !p.Player.Exe || p.Player.Ch2 != peer.ExeExetior {
		return protoErr("role mismatch: not Exetior")
	}
	if !g.timers.Zero(timer.ExetiorRing) {
		return protoErr("cooldown not zero: exetior ring")
	}
	x, err := pkt.RF32()
	if err != nil {
		return err
	}
	y, err := pkt.RF32()
	if err != nil {
		return err
	}
	pos := geom.Vector2{X: float64(x), Y: float64(y)}
	id := g.SpawnQuiet(h, &BlackRing{Pos: pos, SpawnedBy: p.ID()})

	out := protocol.New(protocol.ServerErectorBRingSpawn)
	out.WU16(id)
	out.WF32(x)
	out.WF32(y)
	h.MulticastReal(out)

	g.timers.Set(timer.ExetiorRing, framesFromSeconds(exetiorRingCooldownSeconds))
	return nil
}

func (g *Game) handleBRingCollected(p *peer.Peer, pkt *protocol.Packet) error {
	id, err := pkt.RU16()
	if err != nil {
		return err
	}
	e, ok := g.entities[id]
	if !ok {
		return nil
	}
	if _, ok := e.(*BlackRing); !ok {
		return protoErr("not a black ring")
	}
	g.QueueDestroy(id)
	p.Send(protocol.New(protocol.ServerBRingCollected))
	return nil
}

func (g *Game) handleExellerSpawnClone(h Host, p *peer.Peer, pkt *protocol.Packet) error {
	if p.Player == nil || !p.Player.Exe || p.Player.Ch2 != peer.ExeExeller {
		return protoErr("role mismatch: not Exeller")
	}
	if g.countKind("exclone") >= 2 {
		return protoErr("too many clones")
	}
	x, err := pkt.RF32()
	if err != nil {
		return err
	}
	y, err := pkt.RF32()
	if err != nil {
		return err
	}
	g.Spawn(h, &ExellerClone{Owner: p.ID(), Pos: geom.Vector2{X: float64(x), Y: float64(y)}})
	return nil
}

func (g *Game) handleExellerTeleportClone(p *peer.Peer, pkt *protocol.Packet) error {
	id, err := pkt.RU16()
	if err != nil {
		return err
	}
	if _, ok := g.entities[id]; !ok {
		return nil
	}
	g.QueueDestroy(id)
	return nil
}

func (g *Game) handlePlayerDeathState(h Host, p *peer.Peer, pkt *protocol.Packet) (State, error) {
	if p.Player == nil || p.Player.Exe {
		return nil, protoErr("killer has no death state")
	}
	if p.Player.RevivalTimes >= 2 {
		return nil, protoErr("already demonized")
	}
	dead, err := pkt.RBool()
	if err != nil {
		return nil, err
	}
	revivalTimes, err := pkt.RU8()
	if err != nil {
		return nil, err
	}

	wasFirstDeath := !p.Player.Dead && dead
	priorRevivalTimes := p.Player.RevivalTimes
	p.Player.Dead = dead
	if revivalTimes > priorRevivalTimes {
		p.Player.RevivalTimes = revivalTimes
	}
	p.Player.Revival.Progress = 0
	p.Player.Revival.Initiators = make(map[uint16]struct{})

	if dead {
		if wasFirstDeath {
			p.Player.DeathTimer = int32(framesFromSeconds(deathTimerSeconds))
		}
		remaining := g.timers.Get(timer.Time)
		if priorRevivalTimes == 1 || remaining <= framesFromSeconds(endgameAccelerateSeconds) {
			p.Player.DeathTimer = 0
			g.resolveDeathTimerExpiry(h, p)
		}
	}

	out := protocol.New(protocol.ServerPlayerDeathState)
	out.WU16(p.ID())
	out.WBool(dead)
	out.WU8(p.Player.RevivalTimes)
	h.MulticastReal(out)

	status := protocol.New(protocol.ServerRevivalStatus)
	status.WU16(p.ID())
	status.WBool(false)
	h.MulticastReal(status)

	return g.checkState(h), nil
}

func (g *Game) handlePlayerEscaped(h Host, p *peer.Peer) (State, error) {
	if p.Player == nil || p.Player.Exe {
		return nil, protoErr("role mismatch: killer cannot escape")
	}
	if !g.bigRingReady {
		return nil, protoErr("big ring not ready")
	}
	if p.Player.Dead {
		return nil, protoErr("dead players cannot escape")
	}
	if p.Player.RedRing {
		return nil, protoErr("red-ring survivors cannot escape")
	}
	if p.Player.Demonized() {
		return nil, protoErr("demonized survivors cannot escape")
	}

	p.Player.Escaped = true
	out := protocol.New(protocol.ServerGamePlayerEscaped)
	out.WU16(p.ID())
	h.MulticastReal(out)

	return g.checkState(h), nil
}

func (g *Game) handleRevivalProgress(h Host, p *peer.Peer, pkt *protocol.Packet) error {
	targetID, err := pkt.RU16()
	if err != nil {
		return err
	}
	carried, err := pkt.RU8()
	if err != nil {
		return err
	}

	target, ok := h.Peers().Get(targetID)
	if !ok || target.Player == nil || target.Player.Demonized() {
		return protoErr("invalid revival target")
	}

	if len(target.Player.Revival.Initiators) == 0 {
		on := protocol.New(protocol.ServerRevivalStatus)
		on.WU16(targetID)
		on.WBool(true)
		h.MulticastReal(on)
	}
	target.Player.Revival.Initiators[p.ID()] = struct{}{}
	target.Player.Revival.Progress += 0.015 + 0.004*float64(carried)

	if target.Player.Revival.Progress >= 1.0 {
		contributors := target.Player.Revival.Initiators
		target.Player.Revival.Progress = 0
		target.Player.Revival.Initiators = make(map[uint16]struct{})

		for cid := range contributors {
			if cp, ok := h.Peers().Get(cid); ok {
				cp.Send(protocol.New(protocol.ServerRevivalRingSub))
			}
		}
		target.Send(protocol.New(protocol.ServerRevivalRevived))

		off := protocol.New(protocol.ServerRevivalStatus)
		off.WU16(targetID)
		off.WBool(false)
		h.MulticastReal(off)
		return nil
	}

	out := protocol.New(protocol.ServerRevivalProgress)
	out.WU16(targetID)
	out.WF32(float32(target.Player.Revival.Progress))
	h.UDPMulticast(g.participantAddrs(), out)
	return nil
}

// --- UDP fast path -----------------------------------------------------

func (g *Game) GotUDPPacket(h Host, addr *net.UDPAddr, pkt *protocol.Packet) (State, error) {
	switch pkt.Type() {
	case protocol.ClientPlayerData:
		peerID, err := pkt.RU16()
		if err != nil {
			return nil, err
		}
		x, err := pkt.RF32()
		if err != nil {
			return nil, err
		}
		y, err := pkt.RF32()
		if err != nil {
			return nil, err
		}
		p, ok := h.Peers().Get(peerID)
		if !ok {
			return nil, nil
		}
		if p.UDPAddr() == nil {
			p.SetUDPAddr(addr)
		}
		g.udpAddrs[peerID] = addr
		g.positions[peerID] = geom.Vector2{X: float64(x), Y: float64(y)}

		out := protocol.New(protocol.ServerPlayerData)
		out.WU16(peerID)
		out.WF32(x)
		out.WF32(y)
		h.UDPMulticastExcept(g.participantAddrs(), out, addr)
		return nil, nil

	case protocol.ClientPing:
		peerID, err := pkt.RU16()
		if err != nil {
			return nil, err
		}
		ts, err := pkt.RU64()
		if err != nil {
			return nil, err
		}
		calc, err := pkt.RU8()
		if err != nil {
			return nil, err
		}
		p, ok := h.Peers().Get(peerID)
		if !ok {
			return nil, nil
		}
		if p.UDPAddr() == nil {
			p.SetUDPAddr(addr)
		}
		g.udpAddrs[peerID] = addr

		pong := protocol.New(protocol.ServerPong)
		pong.WU64(ts)
		h.UDPSend(addr, pong)

		ping := protocol.New(protocol.ServerGamePing)
		ping.WU16(peerID)
		ping.WU8(calc)
		h.UDPMulticastExcept(g.participantAddrs(), ping, addr)
		return nil, nil

	default:
		return nil, nil
	}
}
