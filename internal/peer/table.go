package peer

import "sync"

// Table is a sub-server's read-write-locked peer map. Iteration takes a
// read lock and returns a snapshot slice; insertion and removal take a
// write lock.
type Table struct {
	mu     sync.RWMutex
	peers  map[uint16]*Peer
	nextID uint16
}

// NewTable returns an empty peer table. nextID starts at 1: id 0 is
// reserved.
func NewTable() *Table {
	return &Table{peers: make(map[uint16]*Peer), nextID: 1}
}

// NextID returns the next monotonic peer id, skipping the reserved
// value 0 on wraparound. Deleted ids are not reused until the 16-bit
// counter wraps all the way back around to them.
func (t *Table) NextID() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	if id == 0 {
		id = 1
	}
	t.nextID = id + 1
	return id
}

// Insert adds p to the table keyed by its id.
func (t *Table) Insert(p *Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[p.ID()] = p
}

// Remove deletes the peer with the given id, if present.
func (t *Table) Remove(id uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, id)
}

// Get returns the peer with the given id.
func (t *Table) Get(id uint16) (*Peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[id]
	return p, ok
}

// All returns a snapshot of every peer currently in the table.
func (t *Table) All() []*Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	return out
}

// Active returns a snapshot of every peer with pending=false and
// in_queue=false.
func (t *Table) Active() []*Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Peer, 0, len(t.peers))
	for _, p := range t.peers {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the current number of peers held in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}
