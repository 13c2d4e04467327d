package liststore

import (
	"fmt"
	"net"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/NareshPS/FBOpenDCHub/internal/logger"
)

// BanKind selects one of the three pattern lists.
type BanKind int

const (
	KindBan BanKind = iota
	KindNickBan
	KindAllow
)

func (k BanKind) prefix() string {
	switch k {
	case KindBan:
		return prefixBan
	case KindNickBan:
		return prefixNickBan
	case KindAllow:
		return prefixAllow
	}
	return ""
}

func (k BanKind) String() string {
	switch k {
	case KindBan:
		return "ban"
	case KindNickBan:
		return "nickban"
	case KindAllow:
		return "allow"
	}
	return "unknown"
}

// BanEntry is one pattern record. A zero Expires means permanent.
type BanEntry struct {
	Pattern string `msgpack:"pattern"`
	Expires int64  `msgpack:"expires"`
}

func (e *BanEntry) expired(now time.Time) bool {
	return e.Expires != 0 && e.Expires <= now.Unix()
}

// ParseBanSpec splits "pattern [duration[s|m|h|d]]" the way the ban
// commands have always accepted it. A missing unit means seconds.
func ParseBanSpec(body string, now time.Time) (pattern string, expires int64, err error) {
	fields := strings.Fields(body)
	switch len(fields) {
	case 0:
		return "", 0, fmt.Errorf("empty ban spec")
	case 1:
		return fields[0], 0, nil
	}
	pattern = fields[0]

	spec := fields[1]
	mult := int64(1)
	switch spec[len(spec)-1] {
	case 'd':
		mult = 24 * 60 * 60
		spec = spec[:len(spec)-1]
	case 'h':
		mult = 60 * 60
		spec = spec[:len(spec)-1]
	case 'm':
		mult = 60
		spec = spec[:len(spec)-1]
	case 's':
		spec = spec[:len(spec)-1]
	}
	var n int64
	if _, err := fmt.Sscanf(spec, "%d", &n); err != nil {
		return "", 0, fmt.Errorf("bad ban period %q", fields[1])
	}
	return pattern, now.Unix() + n*mult, nil
}

// AddBan inserts a pattern into the given list. Returns ResultNone when a
// live entry for the pattern already exists, ResultOK on insert (an
// expired entry is silently replaced), ResultError on storage failure.
func (s *Store) AddBan(kind BanKind, pattern string, expires int64) int {
	key := recordKey(kind.prefix(), pattern)

	var existing BanEntry
	found, err := s.get(key, &existing)
	if err != nil {
		logger.Error("list store: add %s %q: %v", kind, pattern, err)
		return ResultError
	}
	if found && !existing.expired(time.Now()) {
		return ResultNone
	}
	if err := s.put(key, &BanEntry{Pattern: pattern, Expires: expires}); err != nil {
		logger.Error("list store: add %s %q: %v", kind, pattern, err)
		return ResultError
	}
	return ResultOK
}

// RemoveBan deletes a pattern. Returns ResultNone when absent.
func (s *Store) RemoveBan(kind BanKind, pattern string) int {
	found, err := s.delete(recordKey(kind.prefix(), pattern))
	if err != nil {
		logger.Error("list store: remove %s %q: %v", kind, pattern, err)
		return ResultError
	}
	if !found {
		return ResultNone
	}
	return ResultOK
}

// Bans returns every live entry of the given list.
func (s *Store) Bans(kind BanKind) []BanEntry {
	now := time.Now()
	var entries []BanEntry
	err := s.scan(kind.prefix(), func(_ string, val []byte) {
		var e BanEntry
		if msgpack.Unmarshal(val, &e) == nil && !e.expired(now) {
			entries = append(entries, e)
		}
	})
	if err != nil {
		logger.Error("list store: scan %s: %v", kind, err)
	}
	return entries
}

// IsBanned reports whether the address or hostname matches a live ban
// entry.
func (s *Store) IsBanned(ip, host string) bool {
	return s.matchAny(KindBan, ip, host)
}

// IsAllowed reports whether the address or hostname matches a live allow
// entry.
func (s *Store) IsAllowed(ip, host string) bool {
	return s.matchAny(KindAllow, ip, host)
}

// IsNickBanned reports whether a display name matches a live nickban
// entry.
func (s *Store) IsNickBanned(nick string) bool {
	now := time.Now()
	for _, e := range s.Bans(KindNickBan) {
		if e.expired(now) {
			continue
		}
		if matchWildcard(strings.ToLower(e.Pattern), strings.ToLower(nick)) {
			return true
		}
	}
	return false
}

func (s *Store) matchAny(kind BanKind, ip, host string) bool {
	now := time.Now()
	for _, e := range s.Bans(kind) {
		if e.expired(now) {
			continue
		}
		if matchAddress(e.Pattern, ip, host) {
			return true
		}
	}
	return false
}

// SweepExpired removes dated entries from the three pattern lists and
// returns how many were dropped.
func (s *Store) SweepExpired(now time.Time) int {
	removed := 0
	for _, kind := range []BanKind{KindBan, KindNickBan, KindAllow} {
		var stale [][]byte
		err := s.scan(kind.prefix(), func(key string, val []byte) {
			var e BanEntry
			if msgpack.Unmarshal(val, &e) == nil && e.expired(now) {
				stale = append(stale, []byte(key))
			}
		})
		if err != nil {
			logger.Error("list store: expiry scan %s: %v", kind, err)
			continue
		}
		for _, key := range stale {
			err := s.db.Update(func(txn *badger.Txn) error {
				return txn.Delete(key)
			})
			if err != nil {
				logger.Error("list store: expiry delete: %v", err)
				continue
			}
			removed++
		}
	}
	return removed
}

// matchAddress matches a ban/allow pattern against a client. Patterns are
// an IP, an IP with "/bits" subnet suffix, or a wildcard expression tried
// against both the hostname and the dotted address.
func matchAddress(pattern, ip, host string) bool {
	if strings.Contains(pattern, "/") {
		_, cidr, err := net.ParseCIDR(pattern)
		if err != nil {
			return false
		}
		addr := net.ParseIP(ip)
		return addr != nil && cidr.Contains(addr)
	}
	if addr := net.ParseIP(pattern); addr != nil {
		return ip != "" && addr.Equal(net.ParseIP(ip))
	}
	p := strings.ToLower(pattern)
	return matchWildcard(p, strings.ToLower(host)) || matchWildcard(p, ip)
}

// matchWildcard matches with '*' (any run) and '?' (any single byte).
func matchWildcard(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			pattern = pattern[1:]
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if matchWildcard(pattern, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if s == "" {
				return false
			}
		default:
			if s == "" || pattern[0] != s[0] {
				return false
			}
		}
		pattern = pattern[1:]
		s = s[1:]
	}
	return s == ""
}
