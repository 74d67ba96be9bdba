// Package timer implements the named countdown timer set used by the
// Game state: a keyed map of frame counts that decrements
// every nonzero value by one on each tick. Adapted from original_source's
// generic Timer<T>.
package timer

// Key identifies one countdown.
type Key string

const (
	Time            Key = "time"
	TailsProjectile Key = "tails_projectile"
	EggmanTracker   Key = "eggman_tracker"
	CreamRing       Key = "cream_ring"
	ExetiorRing     Key = "exetior_ring"
)

// Set is a keyed countdown map; a missing key reads as 0.
type Set struct {
	frames map[Key]uint16
}

// NewSet returns an empty timer set.
func NewSet() *Set {
	return &Set{frames: make(map[Key]uint16)}
}

// Tick decrements every nonzero value by one. Values already at zero
// stay at zero.
func (s *Set) Tick() {
	for k, v := range s.frames {
		if v > 0 {
			s.frames[k] = v - 1
		}
	}
}

// Get returns the current value for key, lazily treating an absent key
// as 0.
func (s *Set) Get(key Key) uint16 {
	return s.frames[key]
}

// Set assigns value to key.
func (s *Set) Set(key Key, value uint16) {
	s.frames[key] = value
}

// Zero reports whether key's countdown has reached zero.
func (s *Set) Zero(key Key) bool {
	return s.frames[key] == 0
}
