package nmdc

import (
	"fmt"
	"strings"
)

// DirectMessage is the parsed form of a "$To:" record:
// "$To: <to> From: <from> $<<from>> <text>|". The sender's name appears
// twice (the From field and the chat-line name); both must match the
// connection's claimed name or the record is spoofed.
type DirectMessage struct {
	To       string
	From     string
	ChatNick string
	Text     string
}

func ParseTo(record string) (*DirectMessage, error) {
	body := Body(record, CmdTo)

	sp := strings.IndexByte(body, ' ')
	if sp < 0 {
		return nil, fmt.Errorf("to: missing recipient")
	}
	msg := &DirectMessage{To: body[:sp]}
	rest := body[sp+1:]

	if !strings.HasPrefix(rest, "From: ") {
		return nil, fmt.Errorf("to: missing From field")
	}
	rest = rest[len("From: "):]

	sp = strings.IndexByte(rest, ' ')
	if sp < 0 {
		return nil, fmt.Errorf("to: missing sender")
	}
	msg.From = rest[:sp]
	rest = rest[sp+1:]

	if !strings.HasPrefix(rest, "$<") {
		return nil, fmt.Errorf("to: missing chat line")
	}
	rest = rest[2:]
	gt := strings.IndexByte(rest, '>')
	if gt < 0 {
		return nil, fmt.Errorf("to: unterminated chat nick")
	}
	msg.ChatNick = rest[:gt]
	msg.Text = strings.TrimPrefix(rest[gt+1:], " ")
	return msg, nil
}

func BuildTo(to, from, text string) string {
	return fmt.Sprintf("$To: %s From: %s $<%s> %s|", to, from, from, text)
}

// SearchOrigin identifies where search results should be returned:
// an active client's ip:port, or "Hub:<nick>" for a passive client whose
// results come back through the hub.
type SearchOrigin struct {
	Passive bool
	Nick    string // passive: the requesting nick
	Addr    string // active: ip:port
}

// ParseSearchOrigin extracts the origin field of a "$Search" record.
func ParseSearchOrigin(record string) (*SearchOrigin, error) {
	body := Body(record, CmdSearch)
	sp := strings.IndexByte(body, ' ')
	if sp < 0 {
		return nil, fmt.Errorf("search: missing origin field")
	}
	origin := body[:sp]
	if nick, ok := strings.CutPrefix(origin, "Hub:"); ok {
		return &SearchOrigin{Passive: true, Nick: nick}, nil
	}
	if !strings.Contains(origin, ":") {
		return nil, fmt.Errorf("search: malformed origin %q", origin)
	}
	return &SearchOrigin{Addr: origin}, nil
}

// SearchResult is the parsed form of a "$SR" record. The trailing
// "\x05<to>" segment names the requesting user and is stripped before the
// record is delivered to them.
type SearchResult struct {
	From string
	To   string
}

// ParseSR extracts the sender and the trailing recipient of a "$SR"
// record.
func ParseSR(record string) (*SearchResult, error) {
	body := Body(record, CmdSR)
	sp := strings.IndexByte(body, ' ')
	if sp < 0 {
		return nil, fmt.Errorf("sr: missing sender")
	}
	res := &SearchResult{From: body[:sp]}

	last := strings.LastIndexByte(body, 0x05)
	if last < 0 {
		return nil, fmt.Errorf("sr: missing recipient separator")
	}
	res.To = body[last+1:]
	if res.To == "" {
		return nil, fmt.Errorf("sr: empty recipient")
	}
	return res, nil
}

// StripSRRecipient removes the trailing "\x05<to>" segment so the record
// delivered to the requester does not echo their own name.
func StripSRRecipient(record string) string {
	trimmed := Trim(record)
	last := strings.LastIndexByte(trimmed, 0x05)
	if last < 0 {
		return record
	}
	return trimmed[:last] + "|"
}

// ParseChat splits a public chat line "<nick> text|".
func ParseChat(record string) (nick, text string, err error) {
	if !strings.HasPrefix(record, "<") {
		return "", "", fmt.Errorf("chat: missing nick")
	}
	gt := strings.IndexByte(record, '>')
	if gt < 0 {
		return "", "", fmt.Errorf("chat: unterminated nick")
	}
	nick = record[1:gt]
	text = strings.TrimPrefix(Trim(record[gt+1:]), " ")
	return nick, text, nil
}
