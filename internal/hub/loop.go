package hub

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/NareshPS/FBOpenDCHub/internal/hub/directory"
	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// MaintenanceInterval is how often each loop runs its periodic sweep.
const MaintenanceInterval = 900 * time.Second

// loginGrace is how long a connection may sit without completing login.
const loginGrace = MaintenanceInterval

// ListenControl lets handlers open and close the loop's public listening
// socket during a handoff.
type ListenControl interface {
	// OpenListening re-arms the public listener. Returns false when this
	// loop cannot take it (at capacity).
	OpenListening() bool
	// CloseListening stops accepting public connections.
	CloseListening()
}

// Control handles process-management records arriving over worker links.
// The coordinator and the workers install different implementations.
type Control interface {
	// HandleControl consumes a management record from a peer. Returns
	// false when the record is not a management record.
	HandleControl(l *Loop, from *Conn, record string) bool
}

// Loop is one single-threaded serving loop. Every connection belongs to
// exactly one loop; all records from its connections are handled here in
// arrival order, so per-connection state needs no locking. Workers and
// the coordinator are both built on a Loop.
type Loop struct {
	ID    uint64
	State *State
	Inbox chan Event

	Listen  ListenControl
	Control Control

	// MaxLocalUsers caps logged-in humans on this loop, 0 for no cap.
	MaxLocalUsers int

	// Relay delivers a record to the linked hubs. Only the loop owning
	// the UDP channel sets it.
	Relay func(record string)

	// OnQuit requests a full hub shutdown.
	OnQuit func()

	// OnReloadScripts restarts the attached script processes.
	OnReloadScripts func()

	conns   map[uuid.UUID]*Conn
	users   *directory.LocalIndex[*Conn]
	peers   []*Conn
	scripts []*Conn

	// AfterEvent runs after each handled event. Workers use it to notice
	// they have gone idle and can retire.
	AfterEvent func()
}

func NewLoop(id uint64, state *State) *Loop {
	return &Loop{
		ID:    id,
		State: state,
		Inbox: make(chan Event, 4096),
		conns: make(map[uuid.UUID]*Conn),
		users: directory.NewLocalIndex[*Conn](),
	}
}

// Attach registers a connection with the loop. For socket-backed
// connections the caller starts the read goroutine separately.
func (l *Loop) Attach(c *Conn) {
	l.conns[c.ID] = c
	switch {
	case c.Role.Is(RoleWorkerLink):
		l.peers = append(l.peers, c)
	case c.Role.Is(RoleScriptLink):
		l.scripts = append(l.scripts, c)
	}
}

// Greet issues the lock challenge to a fresh connection.
func (l *Loop) Greet(c *Conn) {
	var lock, pk []byte
	for {
		seed := rand.Uint32()
		var ok bool
		if lock, pk, ok = nmdc.GenerateLock(seed); ok {
			c.LockSeed = seed
			break
		}
	}
	c.Send(nmdc.BuildLock(lock, pk))
}

// UserCount reports logged-in humans on this loop.
func (l *Loop) UserCount() int {
	return l.users.Len()
}

// PeerCount reports attached worker links.
func (l *Loop) PeerCount() int {
	return len(l.peers)
}

// Run processes events until ctx is cancelled. It also drives the
// periodic maintenance sweep.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return
		case <-ticker.C:
			l.Maintenance(time.Now())
		case ev := <-l.Inbox:
			l.HandleEvent(ev)
			if l.AfterEvent != nil {
				l.AfterEvent()
			}
		}
	}
}

// HandleEvent dispatches one event and applies any removal the handlers
// requested. Records for already-detached connections are dropped.
func (l *Loop) HandleEvent(ev Event) {
	c := ev.Conn
	if ev.Join {
		l.Attach(c)
		if c.Role.Is(RoleUnkeyed) {
			l.Greet(c)
		}
		c.StartReading(l.Inbox)
		return
	}
	if _, ok := l.conns[c.ID]; !ok {
		// Linked hubs appear with their first datagram.
		if !c.Role.Is(RoleHubLink) || ev.Closed {
			return
		}
		l.Attach(c)
	}
	if ev.Closed {
		l.Remove(c, RemoveConn|RemoveSendQuit|RemoveFromDirectory)
		return
	}

	l.dispatch(c, ev.Record)

	if c.Rem != 0 {
		l.Remove(c, c.Rem)
	}
}

// Remove detaches a connection, closing its transport, retracting its
// published nick and announcing the departure as the flags request.
func (l *Loop) Remove(c *Conn, flags RemovalFlags) {
	if _, ok := l.conns[c.ID]; !ok {
		return
	}
	delete(l.conns, c.ID)
	l.peers = removeConn(l.peers, c)
	l.scripts = removeConn(l.scripts, c)

	published := false
	if c.Nick != "" && c.Role.Is(RolesHuman) {
		if cur, ok := l.users.Lookup(c.Nick); ok && cur == c {
			l.users.Unregister(c.Nick)
			published = true
		}
	}

	// The directory claim predates login completion, so it is released
	// whether or not the connection ever reached the local index.
	if c.Claimed && flags&RemoveFromDirectory != 0 {
		l.State.Dir.Retract(c.Nick)
		c.Claimed = false
		if c.Info != nil {
			l.State.Dir.AddTotalShare(-c.Info.Share)
		}
	}
	if published && flags&RemoveFromDirectory != 0 {
		l.State.Metrics.UserRemoved()
	}
	if published && flags&RemoveSendQuit != 0 {
		l.Broadcast(RolesHuman, nmdc.BuildQuit(c.Nick), c)
	}

	logger.Debug("removed %s (%s) from loop %d", c.Name(), c.Role, l.ID)
	c.Close()
}

// shutdown drops every connection without quit fanfare.
func (l *Loop) shutdown() {
	for _, c := range l.conns {
		if c.Claimed {
			l.State.Dir.Retract(c.Nick)
			c.Claimed = false
		}
		c.Close()
	}
	l.conns = make(map[uuid.UUID]*Conn)
	l.peers = nil
	l.scripts = nil
}

// Maintenance runs the periodic sweep: stale unauthenticated connections
// are dropped, expired list entries purged and the shared directory
// compacted.
func (l *Loop) Maintenance(now time.Time) {
	for _, c := range l.conns {
		if c.Role.Is(RoleUnkeyed|RoleUnauthenticated|RoleUnauthenticatedAdmin) &&
			now.Sub(c.ConnectedAt) > loginGrace {
			logger.Info("dropping %s: login not completed in time", c.Name())
			l.Remove(c, RemoveConn|RemoveFromDirectory)
		}
	}

	if n := l.State.Lists.SweepExpired(now); n > 0 {
		logger.Debug("expired %d list entries", n)
	}

	l.State.Dir.Compact()
}

func removeConn(s []*Conn, c *Conn) []*Conn {
	for i, v := range s {
		if v == c {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
