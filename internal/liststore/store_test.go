package liststore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBanLifecycle(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, ResultOK, s.AddBan(KindBan, "10.0.0.5", 0))
	assert.Equal(t, ResultNone, s.AddBan(KindBan, "10.0.0.5", 0), "duplicate add reports existing entry")

	assert.True(t, s.IsBanned("10.0.0.5", "client.example.com"))
	assert.False(t, s.IsBanned("10.0.0.6", "client.example.com"))

	assert.Equal(t, ResultOK, s.RemoveBan(KindBan, "10.0.0.5"))
	assert.Equal(t, ResultNone, s.RemoveBan(KindBan, "10.0.0.5"))
	assert.False(t, s.IsBanned("10.0.0.5", "client.example.com"))
}

func TestBanPatternMatching(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, ResultOK, s.AddBan(KindBan, "192.168.1.0/24", 0))
	require.Equal(t, ResultOK, s.AddBan(KindBan, "*.spammer.net", 0))

	assert.True(t, s.IsBanned("192.168.1.77", "host.example.com"), "subnet match")
	assert.False(t, s.IsBanned("192.168.2.1", "host.example.com"))
	assert.True(t, s.IsBanned("10.1.1.1", "dial-up.Spammer.NET"), "wildcard host match is case-insensitive")
	assert.False(t, s.IsBanned("10.1.1.1", "host.example.com"))
}

func TestBanExpiry(t *testing.T) {
	s := newTestStore(t)

	past := time.Now().Add(-time.Hour).Unix()
	require.Equal(t, ResultOK, s.AddBan(KindBan, "10.0.0.9", past))

	assert.False(t, s.IsBanned("10.0.0.9", ""), "expired ban no longer matches")
	assert.Equal(t, ResultOK, s.AddBan(KindBan, "10.0.0.9", 0), "expired entry is replaced, not reported as existing")

	require.Equal(t, ResultOK, s.AddBan(KindNickBan, "Ghost", past))
	removed := s.SweepExpired(time.Now())
	assert.Equal(t, 1, removed)
	assert.Empty(t, s.Bans(KindNickBan))
}

func TestParseBanSpec(t *testing.T) {
	now := time.Unix(1_000_000, 0)

	pattern, expires, err := ParseBanSpec("10.0.0.1", now)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", pattern)
	assert.Equal(t, int64(0), expires, "no period means permanent")

	tests := []struct {
		spec string
		want int64
	}{
		{"10.0.0.1 30", now.Unix() + 30},
		{"10.0.0.1 30s", now.Unix() + 30},
		{"10.0.0.1 5m", now.Unix() + 5*60},
		{"10.0.0.1 2h", now.Unix() + 2*60*60},
		{"10.0.0.1 1d", now.Unix() + 24*60*60},
	}
	for _, tt := range tests {
		_, expires, err := ParseBanSpec(tt.spec, now)
		require.NoError(t, err, tt.spec)
		assert.Equal(t, tt.want, expires, tt.spec)
	}

	_, _, err = ParseBanSpec("", now)
	assert.Error(t, err)
	_, _, err = ParseBanSpec("10.0.0.1 soon", now)
	assert.Error(t, err)
}

func TestNickBans(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, ResultOK, s.AddBan(KindNickBan, "BadActor", 0))
	assert.True(t, s.IsNickBanned("badactor"), "nickban matching is case-insensitive")
	assert.False(t, s.IsNickBanned("GoodActor"))

	require.Equal(t, ResultOK, s.AddBan(KindNickBan, "Troll*", 0))
	assert.True(t, s.IsNickBanned("Troll99"))
}

func TestRegistrationAndPasswords(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, ResultOK, s.AddReg("Alice", "hunter2", TierRegistered))
	assert.Equal(t, ResultExists, s.AddReg("Alice", "other", TierOpAdmin))
	assert.Equal(t, ResultBadFormat, s.AddReg("bad nick", "pw", TierRegistered))
	assert.Equal(t, ResultBadFormat, s.AddReg("Bob", "", TierRegistered))
	assert.Equal(t, ResultBadFormat, s.AddReg("Bob", "pw", 9))

	require.Equal(t, ResultOK, s.AddReg("Oscar", "op-pass", TierOperator))
	require.Equal(t, ResultOK, s.AddReg("Root", "root-pass", TierOpAdmin))

	assert.Equal(t, PassRegistered, s.CheckPass("alice", "hunter2"), "lookup is case-insensitive")
	assert.Equal(t, PassOperator, s.CheckPass("Oscar", "op-pass"))
	assert.Equal(t, PassOpAdmin, s.CheckPass("Root", "root-pass"))
	assert.Equal(t, PassRejected, s.CheckPass("Alice", "wrong"))
	assert.Equal(t, PassRejected, s.CheckPass("Nobody", "hunter2"))

	assert.Equal(t, ResultOK, s.SetPass("Alice", "new-pass"))
	assert.Equal(t, PassRegistered, s.CheckPass("Alice", "new-pass"))
	assert.Equal(t, PassRejected, s.CheckPass("Alice", "hunter2"))
	assert.Equal(t, ResultNone, s.SetPass("Nobody", "pw"))

	assert.Equal(t, TierRegistered, s.RegisteredTier("Alice"))
	assert.Equal(t, -1, s.RegisteredTier("Nobody"))

	assert.Equal(t, ResultOK, s.RemoveReg("Alice"))
	assert.Equal(t, ResultNone, s.RemoveReg("Alice"))
}

func TestPermissions(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, ResultOK, s.AddReg("Oscar", "pw", TierOperator))
	require.Equal(t, ResultOK, s.AddReg("Root", "pw", TierOpAdmin))
	require.Equal(t, ResultOK, s.AddReg("Alice", "pw", TierRegistered))

	assert.Equal(t, ResultNotOp, s.AddPerm("Alice", "BAN_ALLOW"), "plain registered users take no permissions")
	assert.Equal(t, ResultNotOp, s.AddPerm("Root", "BAN_ALLOW"), "op-admins implicitly hold all bits")
	assert.Equal(t, ResultBadFormat, s.AddPerm("Oscar", "NO_SUCH_PERM"))

	assert.Equal(t, ResultOK, s.AddPerm("Oscar", "BAN_ALLOW"))
	assert.Equal(t, ResultExists, s.AddPerm("Oscar", "ban_allow"), "permission names are case-insensitive")
	assert.Equal(t, PermBanAllow, s.Permissions("Oscar"))
	assert.Equal(t, PermAll, s.Permissions("Root"))
	assert.Equal(t, 0, s.Permissions("Alice"))

	assert.Equal(t, ResultOK, s.AddPerm("Oscar", "MASSMESSAGE"))
	assert.Equal(t, PermBanAllow|PermMassMessage, s.Permissions("Oscar"))

	assert.Equal(t, ResultOK, s.RemovePerm("Oscar", "BAN_ALLOW"))
	assert.Equal(t, ResultExists, s.RemovePerm("Oscar", "BAN_ALLOW"), "bit not held")
	assert.Equal(t, PermMassMessage, s.Permissions("Oscar"))
}

func TestLinks(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, ResultOK, s.AddLink("hub.example.com", 411))
	assert.Equal(t, ResultNone, s.AddLink("hub.example.com", 411))
	assert.Equal(t, ResultBadFormat, s.AddLink("", 411))
	assert.Equal(t, ResultBadFormat, s.AddLink("hub.example.com", 0))

	assert.True(t, s.HasLink("hub.example.com", 411))
	assert.False(t, s.HasLink("hub.example.com", 412))

	links := s.Links()
	require.Len(t, links, 1)
	assert.Equal(t, LinkEntry{Host: "hub.example.com", Port: 411}, links[0])

	assert.Equal(t, ResultOK, s.RemoveLink("hub.example.com", 411))
	assert.Equal(t, ResultNone, s.RemoveLink("hub.example.com", 411))
}

func TestMotd(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, "", s.Motd())
	require.NoError(t, s.SetMotd("Welcome to the hub", true))
	assert.Equal(t, "Welcome to the hub", s.Motd())

	require.NoError(t, s.SetMotd("Be nice", false))
	assert.Equal(t, "Welcome to the hub\r\nBe nice", s.Motd())

	require.NoError(t, s.SetMotd("Fresh start", true))
	assert.Equal(t, "Fresh start", s.Motd())
}

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, ResultOK, s.AddBan(KindBan, "10.0.0.5", 0))
	require.Equal(t, ResultOK, s.AddReg("Alice", "pw", TierRegistered))
	require.Equal(t, ResultOK, s.AddLink("hub.example.com", 411))

	snap := string(s.Snapshot())
	assert.Contains(t, snap, "10.0.0.5 0")
	assert.Contains(t, snap, "Alice 0")
	assert.Contains(t, snap, "hub.example.com 411")
	assert.NotContains(t, snap, "pw", "passwords never leave the store")
}
