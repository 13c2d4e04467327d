package hub

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/NareshPS/FBOpenDCHub/internal/hub/directory"
	"github.com/NareshPS/FBOpenDCHub/internal/liststore"
	"github.com/NareshPS/FBOpenDCHub/pkg/metrics"
)

// State bundles everything a worker needs to serve its connections: the
// runtime settings, the shared directory, the persisted lists and the
// metrics handles. One State is shared by all workers.
type State struct {
	Settings *Settings
	Dir      *directory.Shared
	Lists    *liststore.Store
	Metrics  *metrics.HubMetrics
}

func NewState(settings *Settings, dir *directory.Shared, lists *liststore.Store, m *metrics.HubMetrics) *State {
	if m == nil {
		m = metrics.Noop()
	}
	return &State{Settings: settings, Dir: dir, Lists: lists, Metrics: m}
}

// Settings holds the variables an administrator can read and change at
// runtime. Reads and writes are individually consistent; a record is
// always handled against a single coherent snapshot taken at dispatch.
type Settings struct {
	mu sync.RWMutex

	HubName        string
	HubDescription string
	HubHost        string

	MaxUsers     int
	UsersPerFork int

	MinShare        int64
	RedirOnMinShare bool
	RedirectHost    string

	BanOverridesAllow bool
	CheckKey          bool
	RegisteredOnly    bool

	KickBantime    int // minutes a kicked user stays banned
	SearchSpamTime int // seconds between searches per user
	MaxDescLen     int
	MaxEmailLen    int
	MinVersion     string

	AdminPass   string
	LinkPass    string
	DefaultPass string
}

// Snapshot returns a copy safe to read without further locking.
func (s *Settings) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Settings{
		HubName:           s.HubName,
		HubDescription:    s.HubDescription,
		HubHost:           s.HubHost,
		MaxUsers:          s.MaxUsers,
		UsersPerFork:      s.UsersPerFork,
		MinShare:          s.MinShare,
		RedirOnMinShare:   s.RedirOnMinShare,
		RedirectHost:      s.RedirectHost,
		BanOverridesAllow: s.BanOverridesAllow,
		CheckKey:          s.CheckKey,
		RegisteredOnly:    s.RegisteredOnly,
		KickBantime:       s.KickBantime,
		SearchSpamTime:    s.SearchSpamTime,
		MaxDescLen:        s.MaxDescLen,
		MaxEmailLen:       s.MaxEmailLen,
		MinVersion:        s.MinVersion,
		AdminPass:         s.AdminPass,
		LinkPass:          s.LinkPass,
		DefaultPass:       s.DefaultPass,
	}
}

// variable names an administrator may address with the set command. The
// secrets are settable but never listed back.
var settableVars = []string{
	"ban_overrides_allow",
	"check_key",
	"hub_description",
	"hub_host",
	"hub_name",
	"kick_bantime",
	"max_desc_len",
	"max_email_len",
	"max_users",
	"min_share",
	"min_version",
	"redir_on_min_share",
	"redirect_host",
	"registered_only",
	"searchspam_time",
	"users_per_fork",
}

// Set assigns a named variable from its textual form. Returns false for
// an unknown name or an unparsable value.
func (s *Settings) Set(name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "hub_name":
		s.HubName = value
	case "hub_description":
		s.HubDescription = value
	case "hub_host":
		s.HubHost = value
	case "redirect_host":
		s.RedirectHost = value
	case "min_version":
		s.MinVersion = value
	case "admin_pass":
		s.AdminPass = value
	case "link_pass":
		s.LinkPass = value
	case "default_pass":
		s.DefaultPass = value
	case "max_users":
		return parseInt(value, &s.MaxUsers)
	case "users_per_fork":
		return parseInt(value, &s.UsersPerFork)
	case "kick_bantime":
		return parseInt(value, &s.KickBantime)
	case "searchspam_time":
		return parseInt(value, &s.SearchSpamTime)
	case "max_desc_len":
		return parseInt(value, &s.MaxDescLen)
	case "max_email_len":
		return parseInt(value, &s.MaxEmailLen)
	case "min_share":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil || v < 0 {
			return false
		}
		s.MinShare = v
	case "redir_on_min_share":
		return parseBool(value, &s.RedirOnMinShare)
	case "ban_overrides_allow":
		return parseBool(value, &s.BanOverridesAllow)
	case "check_key":
		return parseBool(value, &s.CheckKey)
	case "registered_only":
		return parseBool(value, &s.RegisteredOnly)
	default:
		return false
	}
	return true
}

// Get returns the textual form of a named variable, secrets excluded.
func (s *Settings) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch name {
	case "hub_name":
		return s.HubName, true
	case "hub_description":
		return s.HubDescription, true
	case "hub_host":
		return s.HubHost, true
	case "redirect_host":
		return s.RedirectHost, true
	case "min_version":
		return s.MinVersion, true
	case "max_users":
		return strconv.Itoa(s.MaxUsers), true
	case "users_per_fork":
		return strconv.Itoa(s.UsersPerFork), true
	case "kick_bantime":
		return strconv.Itoa(s.KickBantime), true
	case "searchspam_time":
		return strconv.Itoa(s.SearchSpamTime), true
	case "max_desc_len":
		return strconv.Itoa(s.MaxDescLen), true
	case "max_email_len":
		return strconv.Itoa(s.MaxEmailLen), true
	case "min_share":
		return strconv.FormatInt(s.MinShare, 10), true
	case "redir_on_min_share":
		return strconv.FormatBool(s.RedirOnMinShare), true
	case "ban_overrides_allow":
		return strconv.FormatBool(s.BanOverridesAllow), true
	case "check_key":
		return strconv.FormatBool(s.CheckKey), true
	case "registered_only":
		return strconv.FormatBool(s.RegisteredOnly), true
	}
	return "", false
}

// Dump renders every listable variable, one "name = value" line per
// entry, sorted by name.
func (s *Settings) Dump() string {
	names := append([]string(nil), settableVars...)
	sort.Strings(names)

	var out string
	for _, name := range names {
		if v, ok := s.Get(name); ok {
			out += fmt.Sprintf("%s = %s\r\n", name, v)
		}
	}
	return out
}

func parseInt(value string, dst *int) bool {
	v, err := strconv.Atoi(value)
	if err != nil || v < 0 {
		return false
	}
	*dst = v
	return true
}

func parseBool(value string, dst *bool) bool {
	switch value {
	case "1", "true", "on", "yes":
		*dst = true
	case "0", "false", "off", "no":
		*dst = false
	default:
		return false
	}
	return true
}
