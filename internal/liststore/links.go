package liststore

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/NareshPS/FBOpenDCHub/internal/logger"
)

// LinkEntry identifies one linked hub: the host it is reached at and the
// UDP port it advertised.
type LinkEntry struct {
	Host string `msgpack:"host"`
	Port int    `msgpack:"port"`
}

func linkKey(host string, port int) []byte {
	return recordKey(prefixLink, fmt.Sprintf("%s:%d", host, port))
}

// AddLink records a linked hub. Returns ResultNone when already present.
func (s *Store) AddLink(host string, port int) int {
	if host == "" || port <= 0 || port > 65535 {
		return ResultBadFormat
	}
	key := linkKey(host, port)
	var existing LinkEntry
	found, err := s.get(key, &existing)
	if err != nil {
		logger.Error("list store: add link %s:%d: %v", host, port, err)
		return ResultError
	}
	if found {
		return ResultNone
	}
	if err := s.put(key, &LinkEntry{Host: host, Port: port}); err != nil {
		logger.Error("list store: add link %s:%d: %v", host, port, err)
		return ResultError
	}
	return ResultOK
}

// RemoveLink deletes a linked hub. Returns ResultNone when absent.
func (s *Store) RemoveLink(host string, port int) int {
	found, err := s.delete(linkKey(host, port))
	if err != nil {
		logger.Error("list store: remove link %s:%d: %v", host, port, err)
		return ResultError
	}
	if !found {
		return ResultNone
	}
	return ResultOK
}

// Links returns every linked hub.
func (s *Store) Links() []LinkEntry {
	var entries []LinkEntry
	err := s.scan(prefixLink, func(_ string, val []byte) {
		var e LinkEntry
		if msgpack.Unmarshal(val, &e) == nil {
			entries = append(entries, e)
		}
	})
	if err != nil {
		logger.Error("list store: scan links: %v", err)
	}
	return entries
}

// HasLink reports whether a datagram source corresponds to a known linked
// hub.
func (s *Store) HasLink(host string, port int) bool {
	var e LinkEntry
	found, err := s.get(linkKey(host, port), &e)
	if err != nil {
		logger.Error("list store: lookup link %s:%d: %v", host, port, err)
		return false
	}
	return found
}

// Motd returns the stored message of the day, empty when unset.
func (s *Store) Motd() string {
	var text string
	found, err := s.get([]byte(keyMotd), &text)
	if err != nil {
		logger.Error("list store: read motd: %v", err)
		return ""
	}
	if !found {
		return ""
	}
	return text
}

// SetMotd stores the message of the day. With overwrite false the text is
// appended to the existing message on a new line.
func (s *Store) SetMotd(text string, overwrite bool) error {
	if !overwrite {
		if current := s.Motd(); current != "" {
			text = current + "\r\n" + text
		}
	}
	return s.put([]byte(keyMotd), &text)
}
