package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalGateDropsConnection(t *testing.T) {
	l := newTestLoop(t)
	c, ct := login(t, l, "Alice")

	// A login-path record from a logged-in user breaks the sequence.
	l.HandleEvent(Event{Conn: c, Record: "$ValidateNick Again|"})

	assert.True(t, ct.isClosed())
	_, _, ok := l.State.Dir.Lookup("Alice")
	assert.False(t, ok)
}

func TestNonFatalGateIsSilent(t *testing.T) {
	l := newTestLoop(t)
	login(t, l, "Bob")
	c, ct := login(t, l, "Alice")
	ct.reset()

	// Kicking needs operator privileges; a regular user is ignored.
	l.HandleEvent(Event{Conn: c, Record: "$Kick Bob|"})

	assert.False(t, ct.isClosed())
	assert.Empty(t, ct.all(), "a refused command draws no reply")
	assert.Equal(t, 2, l.UserCount())
}

func TestUnknownVerbIgnored(t *testing.T) {
	l := newTestLoop(t)
	c, ct := login(t, l, "Alice")
	ct.reset()

	l.HandleEvent(Event{Conn: c, Record: "$Frobnicate now|"})

	assert.False(t, ct.isClosed())
	assert.Empty(t, ct.all())
}

func TestEmptyRecordIgnored(t *testing.T) {
	l := newTestLoop(t)
	c, ct := login(t, l, "Alice")
	ct.reset()

	l.HandleEvent(Event{Conn: c, Record: "|"})

	assert.False(t, ct.isClosed())
	assert.Empty(t, ct.all())
}

func TestChatSpoofedNick(t *testing.T) {
	l := newTestLoop(t)
	login(t, l, "Alice")
	mallory, ct := login(t, l, "Mallory")

	l.HandleEvent(Event{Conn: mallory, Record: "<Alice> buy my stuff|"})

	assert.True(t, ct.isClosed(), "chatting under another name is fatal")
	_, _, ok := l.State.Dir.Lookup("Mallory")
	assert.False(t, ok)
}

func TestToSpoofedSender(t *testing.T) {
	l := newTestLoop(t)
	_, aliceCT := login(t, l, "Alice")
	mallory, ct := login(t, l, "Mallory")
	aliceCT.reset()

	l.HandleEvent(Event{Conn: mallory, Record: "$To: Alice From: Bob $<Bob> psst|"})

	assert.True(t, ct.isClosed())
	assert.False(t, aliceCT.got("$To:"), "the spoofed message is never delivered")
	assert.True(t, aliceCT.got("$Quit Mallory"), "the spoofer's departure is announced")
}

func TestToMismatchedChatNick(t *testing.T) {
	l := newTestLoop(t)
	login(t, l, "Alice")
	mallory, ct := login(t, l, "Mallory")

	// From matches but the chat-line name does not.
	l.HandleEvent(Event{Conn: mallory, Record: "$To: Alice From: Mallory $<Bob> psst|"})

	assert.True(t, ct.isClosed())
}

func TestChatBroadcast(t *testing.T) {
	l := newTestLoop(t)
	alice, aliceCT := login(t, l, "Alice")
	_, bobCT := login(t, l, "Bob")
	aliceCT.reset()
	bobCT.reset()

	l.HandleEvent(Event{Conn: alice, Record: "<Alice> hello|"})

	assert.True(t, bobCT.got("<Alice> hello"))
	assert.True(t, aliceCT.got("<Alice> hello"), "public chat is echoed back to the speaker")
}

func TestDirectMessageDelivery(t *testing.T) {
	l := newTestLoop(t)
	alice, _ := login(t, l, "Alice")
	_, bobCT := login(t, l, "Bob")
	_, carolCT := login(t, l, "Carol")
	bobCT.reset()
	carolCT.reset()

	l.HandleEvent(Event{Conn: alice, Record: "$To: Bob From: Alice $<Alice> hi bob|"})

	assert.True(t, bobCT.got("$To: Bob From: Alice"))
	assert.Empty(t, carolCT.all(), "directed records reach only the named user")
}
