package directory

import (
	"strings"
	"sync"
)

// growStep is how many slots are added when the directory fills and the
// free-slot threshold above which Compact releases memory.
const growStep = 50

type slot struct {
	used bool
	nick string
	host string
}

// Shared is the cross-worker directory: the single authority for "is this
// nick in use" and for which worker currently owns the public listening
// socket. One instance is shared by every worker; every access runs under
// one mutex and critical sections never touch sockets.
//
// Entries live in a fixed-capacity growable slot array that expands by
// growStep when exhausted and is compacted by the maintenance sweep. The
// directory also carries the hub-wide total-share counter.
type Shared struct {
	mu         sync.Mutex
	slots      []slot
	used       int
	owner      uint64 // worker id holding listening ownership, 0 = none
	totalShare int64
}

func NewShared() *Shared {
	return &Shared{slots: make([]slot, growStep)}
}

// TryClaim atomically publishes nick if no entry exists for it. Exactly
// one of any set of concurrent claimants for a name wins. Matching is
// case-insensitive but the stored spelling is preserved.
func (d *Shared) TryClaim(nick, host string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.findLocked(nick) >= 0 {
		return false
	}
	i := d.freeSlotLocked()
	d.slots[i] = slot{used: true, nick: nick, host: host}
	d.used++
	return true
}

// Retract removes nick's entry. Reports whether an entry was present.
func (d *Shared) Retract(nick string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.findLocked(nick)
	if i < 0 {
		return false
	}
	d.slots[i] = slot{}
	d.used--
	return true
}

// Lookup returns the stored spelling and host for a published nick.
func (d *Shared) Lookup(nick string) (storedNick, host string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.findLocked(nick)
	if i < 0 {
		return "", "", false
	}
	return d.slots[i].nick, d.slots[i].host, true
}

// Count returns the number of published entries, the hub-wide user count.
func (d *Shared) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}

// All returns every (nick, host) pair, for nick-list construction.
func (d *Shared) All() [][2]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([][2]string, 0, d.used)
	for _, s := range d.slots {
		if s.used {
			entries = append(entries, [2]string{s.nick, s.host})
		}
	}
	return entries
}

// Compact shrinks the slot array when enough free slots accumulate. Run
// by the periodic maintenance sweep.
func (d *Shared) Compact() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.slots)-d.used < growStep || len(d.slots) <= growStep {
		return
	}
	size := d.used + growStep - d.used%growStep
	compacted := make([]slot, 0, size)
	for _, s := range d.slots {
		if s.used {
			compacted = append(compacted, s)
		}
	}
	for len(compacted) < size {
		compacted = append(compacted, slot{})
	}
	d.slots = compacted
}

// Capacity reports the current slot-array size.
func (d *Shared) Capacity() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.slots)
}

// TryClaimOwner records worker id as the listening-socket owner. The
// claim succeeds only when no other worker holds ownership; re-claiming
// by the current owner is a no-op success.
func (d *Shared) TryClaimOwner(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.owner != 0 && d.owner != id {
		return false
	}
	d.owner = id
	return true
}

// ReleaseOwner clears ownership if held by id.
func (d *Shared) ReleaseOwner(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.owner == id {
		d.owner = 0
	}
}

// Owner returns the current listening owner, 0 when none.
func (d *Shared) Owner() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner
}

// AddTotalShare adjusts the hub-wide share counter.
func (d *Shared) AddTotalShare(delta int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.totalShare += delta
}

// TotalShare returns the hub-wide share counter.
func (d *Shared) TotalShare() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totalShare
}

func (d *Shared) findLocked(nick string) int {
	for i, s := range d.slots {
		if s.used && strings.EqualFold(s.nick, nick) {
			return i
		}
	}
	return -1
}

func (d *Shared) freeSlotLocked() int {
	for i, s := range d.slots {
		if !s.used {
			return i
		}
	}
	// All slots taken: grow by a fixed step, like the original shared
	// segment.
	i := len(d.slots)
	d.slots = append(d.slots, make([]slot, growStep)...)
	return i
}
