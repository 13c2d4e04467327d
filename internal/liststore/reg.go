package liststore

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// Registration tiers. Higher tiers imply operator privileges.
const (
	TierRegistered = 0
	TierOperator   = 1
	TierOpAdmin    = 2
)

// Password check outcomes, as graded tiers: 0 means rejected, 2/3/4 map
// to registered, operator and op-admin.
const (
	PassRejected   = 0
	PassRegistered = 2
	PassOperator   = 3
	PassOpAdmin    = 4
)

// Operator permission bits.
const (
	PermBanAllow    = 0x1
	PermUserInfo    = 0x2
	PermMassMessage = 0x4
	PermUserAdmin   = 0x8
	PermAll         = PermBanAllow | PermUserInfo | PermMassMessage | PermUserAdmin
)

// PermFromName maps the textual permission names accepted on the wire.
// Returns 0 for an unknown name.
func PermFromName(name string) int {
	switch {
	case equalFold(name, "BAN_ALLOW"):
		return PermBanAllow
	case equalFold(name, "USER_INFO"):
		return PermUserInfo
	case equalFold(name, "MASSMESSAGE"):
		return PermMassMessage
	case equalFold(name, "USER_ADMIN"):
		return PermUserAdmin
	}
	return 0
}

// PermNames renders a permission mask as its textual names.
func PermNames(perms int) []string {
	var names []string
	if perms&PermBanAllow != 0 {
		names = append(names, "BAN_ALLOW")
	}
	if perms&PermUserInfo != 0 {
		names = append(names, "USER_INFO")
	}
	if perms&PermMassMessage != 0 {
		names = append(names, "MASSMESSAGE")
	}
	if perms&PermUserAdmin != 0 {
		names = append(names, "USER_ADMIN")
	}
	return names
}

func equalFold(a, b string) bool {
	return nmdc.NickEqual(a, b)
}

// RegEntry is one registration record. The password is stored as a bcrypt
// hash, never in clear.
type RegEntry struct {
	Nick     string `msgpack:"nick"`
	PassHash []byte `msgpack:"pass_hash"`
	Tier     int    `msgpack:"tier"`
	Added    int64  `msgpack:"added"`
}

type permEntry struct {
	Nick  string `msgpack:"nick"`
	Perms int    `msgpack:"perms"`
}

// AddReg registers a nick. Result codes: ResultOK, ResultBadFormat for an
// unusable nick/password/tier, ResultExists when already registered,
// ResultError on storage failure.
func (s *Store) AddReg(nick, password string, tier int) int {
	if !nmdc.ValidNick(nick) || password == "" || tier < TierRegistered || tier > TierOpAdmin {
		return ResultBadFormat
	}
	key := recordKey(prefixReg, nick)
	var existing RegEntry
	found, err := s.get(key, &existing)
	if err != nil {
		logger.Error("list store: add registration %q: %v", nick, err)
		return ResultError
	}
	if found {
		return ResultExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("list store: hash password for %q: %v", nick, err)
		return ResultError
	}
	entry := RegEntry{Nick: nick, PassHash: hash, Tier: tier, Added: time.Now().Unix()}
	if err := s.put(key, &entry); err != nil {
		logger.Error("list store: add registration %q: %v", nick, err)
		return ResultError
	}
	return ResultOK
}

// RemoveReg deletes a registration. Returns ResultNone when absent.
func (s *Store) RemoveReg(nick string) int {
	found, err := s.delete(recordKey(prefixReg, nick))
	if err != nil {
		logger.Error("list store: remove registration %q: %v", nick, err)
		return ResultError
	}
	if !found {
		return ResultNone
	}
	return ResultOK
}

// Registration returns the record for nick, if any.
func (s *Store) Registration(nick string) (*RegEntry, bool) {
	var entry RegEntry
	found, err := s.get(recordKey(prefixReg, nick), &entry)
	if err != nil {
		logger.Error("list store: lookup registration %q: %v", nick, err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &entry, true
}

// RegisteredTier reports a nick's tier: -1 when not registered.
func (s *Store) RegisteredTier(nick string) int {
	entry, ok := s.Registration(nick)
	if !ok {
		return -1
	}
	return entry.Tier
}

// Registrations returns every registration record.
func (s *Store) Registrations() []RegEntry {
	var entries []RegEntry
	err := s.scan(prefixReg, func(_ string, val []byte) {
		var e RegEntry
		if msgpack.Unmarshal(val, &e) == nil {
			entries = append(entries, e)
		}
	})
	if err != nil {
		logger.Error("list store: scan registrations: %v", err)
	}
	return entries
}

// CheckPass grades a submitted password. Returns PassRejected on mismatch
// or when the nick is unregistered; otherwise the tier-graded outcome.
func (s *Store) CheckPass(nick, password string) int {
	entry, ok := s.Registration(nick)
	if !ok {
		return PassRejected
	}
	if bcrypt.CompareHashAndPassword(entry.PassHash, []byte(password)) != nil {
		return PassRejected
	}
	switch entry.Tier {
	case TierOpAdmin:
		return PassOpAdmin
	case TierOperator:
		return PassOperator
	default:
		return PassRegistered
	}
}

// SetPass replaces a registered user's password. Returns ResultNone when
// the nick is not registered.
func (s *Store) SetPass(nick, password string) int {
	entry, ok := s.Registration(nick)
	if !ok {
		return ResultNone
	}
	if password == "" {
		return ResultBadFormat
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("list store: hash password for %q: %v", nick, err)
		return ResultError
	}
	entry.PassHash = hash
	if err := s.put(recordKey(prefixReg, nick), entry); err != nil {
		logger.Error("list store: set password for %q: %v", nick, err)
		return ResultError
	}
	return ResultOK
}

// AddPerm grants a permission bit to an operator. Result codes:
// ResultBadFormat for an unknown permission name, ResultNotOp when the
// target is not a plain operator, ResultExists when the bit is already
// held, ResultOK on success.
func (s *Store) AddPerm(nick, permName string) int {
	perm := PermFromName(permName)
	if perm == 0 {
		return ResultBadFormat
	}
	if s.RegisteredTier(nick) != TierOperator {
		return ResultNotOp
	}
	old := s.Permissions(nick)
	if old&perm != 0 {
		return ResultExists
	}
	entry := permEntry{Nick: nick, Perms: old | perm}
	if err := s.put(recordKey(prefixPerm, nick), &entry); err != nil {
		logger.Error("list store: add permission %q: %v", nick, err)
		return ResultError
	}
	return ResultOK
}

// RemovePerm revokes a permission bit. ResultExists here means the bit
// was not held, mirroring the historical code.
func (s *Store) RemovePerm(nick, permName string) int {
	perm := PermFromName(permName)
	if perm == 0 {
		return ResultBadFormat
	}
	if s.RegisteredTier(nick) != TierOperator {
		return ResultNotOp
	}
	old := s.Permissions(nick)
	if old&perm == 0 {
		return ResultExists
	}
	remaining := old &^ perm
	key := recordKey(prefixPerm, nick)
	if remaining == 0 {
		if _, err := s.delete(key); err != nil {
			logger.Error("list store: remove permission %q: %v", nick, err)
			return ResultError
		}
		return ResultOK
	}
	entry := permEntry{Nick: nick, Perms: remaining}
	if err := s.put(key, &entry); err != nil {
		logger.Error("list store: remove permission %q: %v", nick, err)
		return ResultError
	}
	return ResultOK
}

// Permissions returns the permission mask for a nick; unlisted operators
// hold no bits, op-admins implicitly hold all of them.
func (s *Store) Permissions(nick string) int {
	if s.RegisteredTier(nick) == TierOpAdmin {
		return PermAll
	}
	var entry permEntry
	found, err := s.get(recordKey(prefixPerm, nick), &entry)
	if err != nil {
		logger.Error("list store: lookup permissions %q: %v", nick, err)
		return 0
	}
	if !found {
		return 0
	}
	return entry.Perms
}
