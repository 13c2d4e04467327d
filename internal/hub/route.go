package hub

import (
	"strings"

	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// Routing. Every record is delivered at most once per connection and is
// never retried: a full queue means the record is gone for that peer.
//
// Records arriving over a worker link carry traffic that already fanned
// out on the sending side, so they are re-broadcast locally only and
// never forwarded back to peers.

// Broadcast delivers a record to every local connection matching mask,
// except the originator, and forwards it once to every worker link.
func (l *Loop) Broadcast(mask Role, record string, except *Conn) {
	l.BroadcastLocal(mask, record, except)
	if except == nil || !except.Role.Is(RoleWorkerLink) {
		l.ForwardToPeers(record, except)
	}
}

// BroadcastLocal delivers a record to matching local connections only.
func (l *Loop) BroadcastLocal(mask Role, record string, except *Conn) {
	for _, c := range l.conns {
		if c == except || !c.Role.Is(mask) {
			continue
		}
		c.Send(record)
		l.State.Metrics.BytesRouted(len(record))
	}
}

// ForwardToPeers sends a record down every worker link except one.
func (l *Loop) ForwardToPeers(record string, except *Conn) {
	for _, p := range l.peers {
		if p == except {
			continue
		}
		p.Send(record)
	}
}

// LookupLocal finds a logged-in local user by nick.
func (l *Loop) LookupLocal(nick string) (*Conn, bool) {
	return l.users.Lookup(nick)
}

// SendToNick delivers a record to one named user: straight to the local
// connection when the nick is here, otherwise once down each worker link
// if the directory says the nick exists anywhere. A directed record is
// never broadcast.
func (l *Loop) SendToNick(nick, record string, from *Conn) bool {
	if c, ok := l.users.Lookup(nick); ok {
		c.Send(record)
		l.State.Metrics.BytesRouted(len(record))
		return true
	}
	if _, _, ok := l.State.Dir.Lookup(nick); !ok {
		return false
	}
	if from != nil && from.Role.Is(RoleWorkerLink) {
		// Already crossed one link and the user is not here; the
		// directory entry is stale or racing a move. Drop it.
		return false
	}
	l.ForwardToPeers(record, from)
	return len(l.peers) > 0
}

// handlePeerBroadcast repeats hub-wide announcements arriving over a
// worker link ($Hello, $Quit, $HubName) to the local users. The sending
// side already fanned them out everywhere else.
func (l *Loop) handlePeerBroadcast(c *Conn, record string) {
	l.BroadcastLocal(RolesHuman, record, nil)
}

// MirrorToScripts repeats an authenticated user's record to every script
// link, prefixed so scripts can tell hub traffic from their own control
// channel.
func (l *Loop) MirrorToScripts(c *Conn, record string) {
	if len(l.scripts) == 0 || c.Role.Is(RoleScriptLink) {
		return
	}
	mirrored := "$Script data_arrival$" + c.Nick + "$" + strings.TrimSuffix(record, "|") + "|"
	for _, s := range l.scripts {
		s.Send(mirrored)
	}
}

// NickListRecords renders the full nick list and operator list records
// from the shared directory and the registration store.
func (l *Loop) NickListRecords() (nickList, opList string) {
	entries := l.State.Dir.All()
	nicks := make([]string, 0, len(entries))
	var ops []string
	for _, e := range entries {
		nicks = append(nicks, e[0])
		if l.State.Lists.RegisteredTier(e[0]) >= 1 {
			ops = append(ops, e[0])
		}
	}
	return nmdc.BuildNickList(nicks), nmdc.BuildOpList(ops)
}
