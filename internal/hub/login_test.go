package hub

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NareshPS/FBOpenDCHub/internal/liststore"
)

func TestLoginSequence(t *testing.T) {
	l := newTestLoop(t)
	c, ct := login(t, l, "Alice")

	assert.Equal(t, RoleRegular, c.Role)
	assert.True(t, ct.got("$Hello Alice"), "claimed nick not confirmed")
	assert.True(t, ct.got("$HubName Test Hub"))
	assert.Equal(t, 1, l.UserCount())

	_, host, ok := l.State.Dir.Lookup("Alice")
	require.True(t, ok, "nick not published in the directory")
	assert.Equal(t, "client.example.com", host)
	assert.Equal(t, int64(7000000), l.State.Dir.TotalShare())
}

func TestBadKeyReply(t *testing.T) {
	l := newTestLoop(t)
	c, ct := dial(l)

	l.HandleEvent(Event{Conn: c, Record: "$Key completely-wrong|"})
	assert.True(t, ct.isClosed(), "bad key reply must drop the connection")
}

func TestKeyCheckDisabled(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.CheckKey = false
	c, ct := dial(l)

	l.HandleEvent(Event{Conn: c, Record: "$Key anything-goes|"})
	assert.False(t, ct.isClosed())
	assert.Equal(t, RoleUnauthenticated, c.Role)
}

func TestValidateNickRejections(t *testing.T) {
	tests := []struct {
		name    string
		nick    string
		prepare func(l *Loop)
	}{
		{"space in nick", "two words", nil},
		{"dollar in nick", "ca$h", nil},
		{"reserved name", "Hub-Security", nil},
		{"empty nick", "", nil},
		{"already claimed", "Taken", func(l *Loop) {
			require.True(t, l.State.Dir.TryClaim("Taken", "elsewhere"))
		}},
		{"banned nick", "Badguy", func(l *Loop) {
			require.Equal(t, liststore.ResultOK, l.State.Lists.AddBan(liststore.KindNickBan, "Badguy", 0))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLoop(t)
			if tt.prepare != nil {
				tt.prepare(l)
			}
			c, ct := dial(l)
			answerLock(t, l, c, ct)
			l.HandleEvent(Event{Conn: c, Record: "$ValidateNick " + tt.nick + "|"})
			assert.True(t, ct.isClosed(), "nick %q must be refused", tt.nick)
			assert.False(t, ct.got("$Hello"))
		})
	}
}

func TestRegisteredOnlyHub(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.RegisteredOnly = true

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Stranger|"})
	assert.True(t, ct.isClosed())

	require.Equal(t, liststore.ResultOK, l.State.Lists.AddReg("Member", "pw", liststore.TierRegistered))
	loginRegistered(t, l, "Member", "pw")
}

func TestHubFullRedirect(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.MaxUsers = 1
	l.State.Settings.RedirectHost = "backup.example.com:411"
	login(t, l, "Alice")

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Bob|"})

	assert.True(t, ct.got("$HubIsFull"))
	assert.True(t, ct.got("$ForceMove backup.example.com:411"))
	assert.True(t, ct.isClosed())
}

func TestRegisteredLoginGrantsOperator(t *testing.T) {
	l := newTestLoop(t)
	require.Equal(t, liststore.ResultOK, l.State.Lists.AddReg("Oper", "secret", liststore.TierOperator))

	c, ct := loginRegistered(t, l, "Oper", "secret")
	assert.Equal(t, RoleOperator, c.Role)
	assert.True(t, ct.got("$LogedIn Oper"), "operators are told they are logged in")
}

func TestBadPassword(t *testing.T) {
	l := newTestLoop(t)
	require.Equal(t, liststore.ResultOK, l.State.Lists.AddReg("Oper", "secret", liststore.TierOperator))

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Oper|"})
	l.HandleEvent(Event{Conn: c, Record: "$MyPass wrong|"})

	assert.True(t, ct.got("$BadPass"))
	assert.True(t, ct.isClosed())
	_, _, ok := l.State.Dir.Lookup("Oper")
	assert.False(t, ok, "a failed password must not publish the nick")
}

func TestGhostEviction(t *testing.T) {
	l := newTestLoop(t)
	require.Equal(t, liststore.ResultOK, l.State.Lists.AddReg("Alice", "pw", liststore.TierRegistered))

	_, oldCT := loginRegistered(t, l, "Alice", "pw")
	fresh, _ := loginRegistered(t, l, "Alice", "pw")

	assert.True(t, oldCT.isClosed(), "the ghost session must be dropped")
	assert.Equal(t, RoleRegistered, fresh.Role)
	assert.Equal(t, 1, l.UserCount())
	_, _, ok := l.State.Dir.Lookup("Alice")
	assert.True(t, ok)
}

func TestMyINFOSpoofedNick(t *testing.T) {
	l := newTestLoop(t)
	login(t, l, "Alice")
	mallory, ct := login(t, l, "Mallory")
	ct.reset()

	l.HandleEvent(Event{Conn: mallory, Record: myINFO("Alice", 1)})

	assert.True(t, ct.isClosed(), "a profile for somebody else's nick is fatal")
	_, _, ok := l.State.Dir.Lookup("Mallory")
	assert.False(t, ok, "the spoofer's own nick must be retracted")
}

func TestMinShareRedirect(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.MinShare = 1 << 30
	l.State.Settings.RedirOnMinShare = true
	l.State.Settings.RedirectHost = "backup.example.com:411"

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Tiny|"})
	l.HandleEvent(Event{Conn: c, Record: "$Version 1,0091|"})
	l.HandleEvent(Event{Conn: c, Record: myINFO("Tiny", 42)})

	assert.True(t, ct.got("$ForceMove backup.example.com:411"))
	assert.True(t, ct.isClosed())
	_, _, ok := l.State.Dir.Lookup("Tiny")
	assert.False(t, ok)
}

func TestMinShareWarning(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.MinShare = 1 << 30

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Tiny|"})
	l.HandleEvent(Event{Conn: c, Record: "$Version 1,0091|"})
	l.HandleEvent(Event{Conn: c, Record: myINFO("Tiny", 42)})

	assert.False(t, ct.isClosed(), "without redirect the user is only warned")
	assert.True(t, c.Role.Is(RolesHuman))
	assert.True(t, ct.got("<Hub-Security> You are sharing less"))
}

func TestMinShareIgnoredForOperators(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.MinShare = 1 << 30
	l.State.Settings.RedirOnMinShare = true
	l.State.Settings.RedirectHost = "backup.example.com:411"
	require.Equal(t, liststore.ResultOK, l.State.Lists.AddReg("Oper", "secret", liststore.TierOperator))

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Oper|"})
	l.HandleEvent(Event{Conn: c, Record: "$MyPass secret|"})
	l.HandleEvent(Event{Conn: c, Record: "$Version 1,0091|"})
	l.HandleEvent(Event{Conn: c, Record: myINFO("Oper", 0)})

	assert.False(t, ct.isClosed())
	assert.Equal(t, RoleOperator, c.Role)
}

func TestDescriptionCap(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.MaxDescLen = 10

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Chatty|"})
	l.HandleEvent(Event{Conn: c, Record: "$Version 1,0091|"})
	long := strings.Repeat("x", 11)
	l.HandleEvent(Event{Conn: c, Record: "$MyINFO $ALL Chatty " + long + "$ $DSL\x01$a@b$1$|"})

	assert.True(t, ct.got("$To: "), "the refusal arrives as a private message")
	assert.True(t, ct.isClosed())
}

func TestMyINFOUpdateBroadcast(t *testing.T) {
	l := newTestLoop(t)
	alice, _ := login(t, l, "Alice")
	_, bobCT := login(t, l, "Bob")
	bobCT.reset()

	l.HandleEvent(Event{Conn: alice, Record: myINFO("Alice", 9000000)})

	assert.True(t, bobCT.got("$MyINFO $ALL Alice"), "profile updates reach the other users")
	assert.Equal(t, int64(9000000+7000000), l.State.Dir.TotalShare())
}

func TestVersionTooOld(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.MinVersion = "1,0091"

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Retro|"})
	l.HandleEvent(Event{Conn: c, Record: "$Version 1,0089|"})

	assert.True(t, ct.isClosed())
}

type fakeListen struct {
	opened int
	closed int
}

func (f *fakeListen) OpenListening() bool { f.opened++; return true }
func (f *fakeListen) CloseListening()     { f.closed++ }

func TestServingCapClosesListening(t *testing.T) {
	l := newTestLoop(t)
	l.MaxLocalUsers = 2
	listen := &fakeListen{}
	l.Listen = listen

	login(t, l, "Alice")
	assert.Zero(t, listen.closed, "below the cap the listener stays open")
	login(t, l, "Bob")
	assert.Equal(t, 1, listen.closed, "reaching the cap hands the listening role back")
}

func TestGetINFOLocalReply(t *testing.T) {
	l := newTestLoop(t)
	login(t, l, "Alice")
	bob, bobCT := login(t, l, "Bob")
	bobCT.reset()

	l.HandleEvent(Event{Conn: bob, Record: "$GetINFO Alice Bob|"})

	assert.True(t, bobCT.got("$MyINFO $ALL Alice"))
}

func TestNickFreedOnEarlyDisconnect(t *testing.T) {
	l := newTestLoop(t)
	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Phantom|"})
	_, _, ok := l.State.Dir.Lookup("Phantom")
	require.True(t, ok, "the nick is claimed during login")

	l.HandleEvent(Event{Conn: c, Closed: true})

	_, _, ok = l.State.Dir.Lookup("Phantom")
	assert.False(t, ok, "disconnecting mid-login frees the nick")
	login(t, l, "Phantom")
}

func TestDefaultPassLogin(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.DefaultPass = "letmein"

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Guest|"})
	require.True(t, ct.got("$GetPass"), "the hub-wide password is demanded")

	l.HandleEvent(Event{Conn: c, Record: "$MyPass letmein|"})
	l.HandleEvent(Event{Conn: c, Record: "$Version 1,0091|"})
	l.HandleEvent(Event{Conn: c, Record: myINFO("Guest", 7000000)})

	assert.Equal(t, RoleRegular, c.Role)
	_, _, ok := l.State.Dir.Lookup("Guest")
	assert.True(t, ok)
}

func TestDefaultPassRejected(t *testing.T) {
	l := newTestLoop(t)
	l.State.Settings.DefaultPass = "letmein"

	c, ct := dial(l)
	answerLock(t, l, c, ct)
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Guest|"})
	l.HandleEvent(Event{Conn: c, Record: "$MyPass opensesame|"})

	assert.True(t, ct.got("$BadPass"))
	assert.True(t, ct.isClosed())
	_, _, ok := l.State.Dir.Lookup("Guest")
	assert.False(t, ok, "a refused hub password never publishes the nick")
}
