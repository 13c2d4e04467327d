package worker

import (
	"context"
	"net"
	"sync"

	"github.com/NareshPS/FBOpenDCHub/internal/hub"
	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// Pool is the coordinator's view of the workers. It spawns them, links
// them to the coordinator loop, routes newly accepted sockets to whoever
// holds the listening role and walks the handoff ring when that role is
// given up:
//
//	worker fills up -> $ClosedListen -> coordinator offers $OpenListen
//	around the ring -> a full worker answers $RejListen -> after every
//	worker refused, a fresh worker is spawned with the role.
type Pool struct {
	state *hub.State
	coord *hub.Loop

	usersPerFork int

	mu      sync.Mutex
	ctx     context.Context
	nextID  uint64
	byID    map[uint64]*Worker
	byLink  map[*hub.Conn]*Worker // coordinator-side link -> worker
	offered map[uint64]bool       // workers already offered in this handoff
}

func NewPool(state *hub.State, coord *hub.Loop, usersPerFork int) *Pool {
	p := &Pool{
		state:        state,
		coord:        coord,
		usersPerFork: usersPerFork,
		nextID:       1,
		byID:         make(map[uint64]*Worker),
		byLink:       make(map[*hub.Conn]*Worker),
	}
	coord.Control = p
	return p
}

// Start spawns the first worker and gives it the listening role.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
	w := p.spawn()
	p.state.Dir.TryClaimOwner(w.ID)
}

// spawn creates a worker, wires its coordinator link and starts its loop.
// Safe from any goroutine: the coordinator adopts its side of the link
// through its own inbox.
func (p *Pool) spawn() *Worker {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	w := newWorker(id, p)

	coordSide, workerSide := hub.NewLinkPair(hub.RoleWorkerLink, w.name(), p.coord.Inbox, w.Loop.Inbox)
	w.coordLink = workerSide
	w.Loop.Attach(workerSide)

	p.byID[id] = w
	p.byLink[coordSide] = w
	ctx := p.ctx
	p.mu.Unlock()

	p.coord.Inbox <- hub.Event{Conn: coordSide, Join: true}
	go w.Run(ctx)
	return w
}

func (p *Pool) forget(w *Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, w.ID)
	for link, ww := range p.byLink {
		if ww == w {
			delete(p.byLink, link)
		}
	}
}

func (p *Pool) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}

// Assign hands a freshly accepted public socket to the worker holding
// the listening role. Banned hosts are turned away before any worker
// sees them. Called from the accept goroutine.
func (p *Pool) Assign(sock net.Conn) {
	c := hub.NewTCPConn(hub.RoleUnkeyed, sock)

	settings := p.state.Settings.Snapshot()
	banned := p.state.Lists.IsBanned(c.IP, c.Host)
	allowed := p.state.Lists.IsAllowed(c.IP, c.Host)
	if banned && (settings.BanOverridesAllow || !allowed) {
		logger.Audit("banned", "", c.Host, "connection refused")
		_, _ = sock.Write([]byte("<Hub-Security> You are banned from this hub.|"))
		_ = sock.Close()
		return
	}

	w := p.ownerWorker()
	if w == nil {
		w = p.anyWorkerWithRoom()
	}
	if w == nil {
		w = p.spawn()
		p.state.Dir.TryClaimOwner(w.ID)
		p.state.Metrics.HandoffResult("spawned")
	}
	w.Loop.Inbox <- hub.Event{Conn: c, Join: true}
}

// AssignAdmin adopts an admin-port socket on the coordinator loop.
func (p *Pool) AssignAdmin(sock net.Conn) {
	c := hub.NewTCPConn(hub.RoleUnauthenticatedAdmin, sock)
	p.coord.Inbox <- hub.Event{Conn: c, Join: true}
}

func (p *Pool) ownerWorker() *Worker {
	id := p.state.Dir.Owner()
	if id == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byID[id]
}

func (p *Pool) anyWorkerWithRoom() *Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.byID {
		if p.usersPerFork == 0 || w.Loop.UserCount() < p.usersPerFork {
			return w
		}
	}
	return nil
}

// HandleControl processes handoff records arriving from worker links on
// the coordinator loop.
func (p *Pool) HandleControl(l *hub.Loop, from *hub.Conn, record string) bool {
	switch {
	case nmdc.HasCommand(record, nmdc.CmdClosedListen):
		p.mu.Lock()
		p.offered = make(map[uint64]bool)
		if w := p.byLink[from]; w != nil {
			p.offered[w.ID] = true
		}
		p.mu.Unlock()
		p.offerNext()
		return true
	case nmdc.HasCommand(record, nmdc.CmdRejListen):
		p.state.Metrics.HandoffResult("rejected")
		p.offerNext()
		return true
	}
	return false
}

// offerNext sends $OpenListen to the next worker that has not refused
// yet; when the ring is exhausted a fresh worker takes the role.
func (p *Pool) offerNext() {
	if p.state.Dir.Owner() != 0 {
		return // somebody took it meanwhile
	}

	p.mu.Lock()
	if p.offered == nil {
		p.offered = make(map[uint64]bool)
	}
	var next *hub.Conn
	var nextID uint64
	for link, w := range p.byLink {
		if !p.offered[w.ID] {
			next = link
			nextID = w.ID
			break
		}
	}
	if next != nil {
		p.offered[nextID] = true
	}
	p.mu.Unlock()

	if next != nil {
		next.Send(nmdc.CmdOpenListen + "|")
		return
	}

	w := p.spawn()
	p.state.Dir.TryClaimOwner(w.ID)
	p.state.Metrics.HandoffResult("spawned")
	logger.Info("all workers full, spawned worker %d with the listening role", w.ID)
}
