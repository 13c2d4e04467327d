package hub

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NareshPS/FBOpenDCHub/internal/hub/directory"
	"github.com/NareshPS/FBOpenDCHub/internal/liststore"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// captureTransport records everything a handler sends, in order.
type captureTransport struct {
	mu      sync.Mutex
	records []string
	closed  bool
}

func (t *captureTransport) WriteRecord(record string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, record)
	return nil
}

func (t *captureTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *captureTransport) RemoteAddr() string { return "10.1.2.3:412" }

func (t *captureTransport) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.records...)
}

func (t *captureTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *captureTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = nil
}

// got reports whether any captured record starts with prefix.
func (t *captureTransport) got(prefix string) bool {
	for _, r := range t.all() {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}

func newTestState(t *testing.T) *State {
	t.Helper()
	lists, err := liststore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = lists.Close() })

	settings := &Settings{
		HubName:      "Test Hub",
		MaxUsers:     100,
		UsersPerFork: 50,
		CheckKey:     true,
		KickBantime:  5,
		MaxDescLen:   100,
		MaxEmailLen:  50,
		AdminPass:    "sesame",
	}
	return NewState(settings, directory.NewShared(), lists, nil)
}

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	return NewLoop(1, newTestState(t))
}

// dial attaches a fresh public connection and returns it with its
// captured output, which already holds the lock challenge.
func dial(l *Loop) (*Conn, *captureTransport) {
	ct := &captureTransport{}
	c := newConn(RoleUnkeyed, ct)
	c.IP = "10.1.2.3"
	c.Host = "client.example.com"
	l.HandleEvent(Event{Conn: c, Join: true})
	return c, ct
}

// answerLock replays the issued challenge through the reference key
// derivation, the way a conforming client would.
func answerLock(t *testing.T, l *Loop, c *Conn, ct *captureTransport) {
	t.Helper()
	var lockRecord string
	for _, r := range ct.all() {
		if strings.HasPrefix(r, nmdc.CmdLock+" ") {
			lockRecord = r
		}
	}
	require.NotEmpty(t, lockRecord, "no lock challenge issued")
	lock := strings.Fields(nmdc.Body(lockRecord, nmdc.CmdLock))[0]
	l.HandleEvent(Event{Conn: c, Record: "$Key " + string(nmdc.KeyFor([]byte(lock))) + "|"})
}

func myINFO(nick string, share int64) string {
	return fmt.Sprintf("$MyINFO $ALL %s just testing$ $DSL\x01$user@example.com$%d$|", nick, share)
}

// login walks a connection through the whole sequence and asserts it
// came out logged in.
func login(t *testing.T, l *Loop, nick string) (*Conn, *captureTransport) {
	t.Helper()
	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick " + nick + "|"})
	l.HandleEvent(Event{Conn: c, Record: "$Version 1,0091|"})
	l.HandleEvent(Event{Conn: c, Record: myINFO(nick, 7000000)})
	require.True(t, c.Role.Is(RolesHuman), "login did not complete for %s", nick)
	return c, ct
}

// loginRegistered is login via the password exchange.
func loginRegistered(t *testing.T, l *Loop, nick, pass string) (*Conn, *captureTransport) {
	t.Helper()
	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick " + nick + "|"})
	require.True(t, ct.got(nmdc.CmdGetPass), "expected a password prompt for %s", nick)
	l.HandleEvent(Event{Conn: c, Record: "$MyPass " + pass + "|"})
	l.HandleEvent(Event{Conn: c, Record: "$Version 1,0091|"})
	l.HandleEvent(Event{Conn: c, Record: myINFO(nick, 7000000)})
	require.True(t, c.Role.Is(RolesHuman), "login did not complete for %s", nick)
	return c, ct
}

// loginAdmin authenticates a fresh admin-port connection.
func loginAdmin(t *testing.T, l *Loop, pass string) (*Conn, *captureTransport) {
	t.Helper()
	ct := &captureTransport{}
	c := newConn(RoleUnauthenticatedAdmin, ct)
	c.IP = "10.9.9.9"
	c.Host = "admin.example.com"
	l.HandleEvent(Event{Conn: c, Join: true})
	l.HandleEvent(Event{Conn: c, Record: "$AdminPass " + pass + "|"})
	return c, ct
}

// pump handles everything already queued on a loop's inbox.
func pump(l *Loop) {
	for {
		select {
		case ev := <-l.Inbox:
			l.HandleEvent(ev)
		default:
			return
		}
	}
}

// linkLoops attaches both ends of a worker link.
func linkLoops(a, b *Loop) (aSide, bSide *Conn) {
	aSide, bSide = NewLinkPair(RoleWorkerLink, "test-link", a.Inbox, b.Inbox)
	a.HandleEvent(Event{Conn: aSide, Join: true})
	b.HandleEvent(Event{Conn: bSide, Join: true})
	return aSide, bSide
}
