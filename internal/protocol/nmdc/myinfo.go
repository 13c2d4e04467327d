package nmdc

import (
	"fmt"
	"strconv"
	"strings"
)

// ConType enumerates the connection-type byte stored per user. The wire
// carries the textual name; the stored byte is derived from its leading
// letter(s) and rendered back with ConTypeName.
const ConTypeUnknown byte = 255

var conTypeNames = map[byte]string{
	1:  "28.8Kbps",
	2:  "33.6Kbps",
	3:  "56Kbps",
	4:  "Satellite",
	5:  "ISDN",
	6:  "DSL",
	7:  "Cable",
	8:  "LAN(T1)",
	9:  "LAN(T3)",
	10: "Wireless",
	11: "Modem",
	12: "Netlimiter",
}

func ConTypeName(t byte) string {
	if name, ok := conTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// conTypeOf classifies the connection field (flag byte already removed)
// by its first letter, the way the original clients are matched.
func conTypeOf(conn string) byte {
	if conn == "" {
		return ConTypeUnknown
	}
	switch conn[0] {
	case '2':
		return 1
	case '3':
		return 2
	case '5':
		return 3
	case 'S':
		return 4
	case 'I':
		return 5
	case 'D':
		return 6
	case 'C':
		return 7
	case 'L':
		// Both LAN(T1) and LAN(T3) start with 'L'.
		if len(conn) >= 2 && conn[len(conn)-2] == '3' {
			return 9
		}
		return 8
	case 'W':
		return 10
	case 'M':
		return 11
	case 'N':
		return 12
	}
	return ConTypeUnknown
}

// UserInfo is the profile carried by a $MyINFO announce.
type UserInfo struct {
	Nick        string
	Description string
	ConType     byte
	Flag        byte
	Email       string
	Share       int64
}

// ParseMyINFO parses the body following "$MyINFO $ALL ". Fields are
// positional: "<nick> <desc>$ $<conn><flag>$<email>$<share>$". Description
// and email lengths are not enforced here; the hub applies its configured
// caps and the consequences.
func ParseMyINFO(body string) (*UserInfo, error) {
	sp := strings.IndexByte(body, ' ')
	if sp < 0 || sp > MaxNickLen {
		return nil, fmt.Errorf("myinfo: missing nick")
	}
	firstDollar := strings.IndexByte(body, '$')
	if firstDollar >= 0 && firstDollar < sp {
		return nil, fmt.Errorf("myinfo: malformed nick field")
	}
	info := &UserInfo{Nick: body[:sp]}
	rest := body[sp+1:]

	// Description, up to the first '$'.
	d := strings.IndexByte(rest, '$')
	if d < 0 {
		return nil, fmt.Errorf("myinfo: missing description terminator")
	}
	info.Description = rest[:d]
	rest = rest[d+1:]

	// A lone field, historically always a single space.
	d = strings.IndexByte(rest, '$')
	if d < 0 {
		return nil, fmt.Errorf("myinfo: truncated record")
	}
	rest = rest[d+1:]

	// Connection field; last byte is the status flag.
	d = strings.IndexByte(rest, '$')
	if d < 1 {
		return nil, fmt.Errorf("myinfo: missing connection field")
	}
	conn := rest[:d]
	info.Flag = conn[len(conn)-1]
	info.ConType = conTypeOf(conn[:len(conn)-1])
	rest = rest[d+1:]

	// Email.
	d = strings.IndexByte(rest, '$')
	if d < 0 {
		return nil, fmt.Errorf("myinfo: missing email field")
	}
	info.Email = rest[:d]
	rest = rest[d+1:]

	// Share size; more than 20 digits means something is wrong.
	d = strings.IndexByte(rest, '$')
	if d < 0 {
		d = len(rest)
	}
	if d > 20 {
		return nil, fmt.Errorf("myinfo: share size field too long")
	}
	if d > 0 {
		share, err := strconv.ParseInt(rest[:d], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("myinfo: bad share size: %w", err)
		}
		info.Share = share
	}
	return info, nil
}

// BuildMyINFO renders a stored profile back into the broadcast form.
func BuildMyINFO(info *UserInfo) string {
	return fmt.Sprintf("$MyINFO $ALL %s %s$ $%s%c$%s$%d$|",
		info.Nick, info.Description, ConTypeName(info.ConType),
		info.Flag, info.Email, info.Share)
}
