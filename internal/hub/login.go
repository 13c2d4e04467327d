package hub

import (
	"strings"
	"time"

	"github.com/NareshPS/FBOpenDCHub/internal/liststore"
	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
	"github.com/NareshPS/FBOpenDCHub/internal/ratelimiter"
)

// Login path. Transitions run strictly forward:
//
//	unkeyed -> unauthenticated -> (password check) -> logged in
//
// A connection that breaks the sequence is dropped; nothing in the login
// path is ever silently skipped.

const fatalRemoval = RemoveConn | RemoveSendQuit | RemoveFromDirectory

func (l *Loop) handleKey(c *Conn, record string) {
	reply := nmdc.Body(record, nmdc.CmdKey)
	if l.State.Settings.Snapshot().CheckKey && !nmdc.ValidateKey(c.LockSeed, []byte(reply)) {
		logger.Info("dropping %s: bad key reply", c.Name())
		c.MarkRemoval(RemoveConn)
		return
	}
	c.Role = RoleUnauthenticated
}

func (l *Loop) handleValidateNick(c *Conn, record string) {
	nick := nmdc.Body(record, nmdc.CmdValidateNick)
	settings := l.State.Settings.Snapshot()

	if !nmdc.ValidNick(nick) || nmdc.IsReservedNick(nick) {
		c.Send(nmdc.BuildValidateDenide(nick))
		c.MarkRemoval(RemoveConn)
		return
	}
	if l.State.Lists.IsNickBanned(nick) {
		c.HubMsg("That nickname is banned from this hub.")
		c.Send(nmdc.BuildValidateDenide(nick))
		c.MarkRemoval(RemoveConn)
		logger.Audit("nickban", nick, c.Host, record)
		return
	}

	tier := l.State.Lists.RegisteredTier(nick)
	if settings.RegisteredOnly && tier < 0 {
		c.HubMsg("This hub is for registered users only.")
		c.MarkRemoval(RemoveConn)
		return
	}

	// Registered names continue to the password exchange before touching
	// the directory; their claim may evict a ghost.
	if tier >= 0 {
		c.Nick = nick
		c.Send(nmdc.BuildGetPass())
		return
	}

	if settings.MaxUsers > 0 && l.State.Dir.Count() >= settings.MaxUsers {
		c.Send(nmdc.BuildHubIsFull())
		if settings.RedirectHost != "" {
			c.Send(nmdc.BuildForceMove(settings.RedirectHost))
		}
		c.MarkRemoval(RemoveConn)
		return
	}

	// A hub-wide default password makes even unregistered nicks go
	// through the password exchange.
	if settings.DefaultPass != "" {
		c.Nick = nick
		c.Send(nmdc.BuildGetPass())
		return
	}

	if !l.State.Dir.TryClaim(nick, c.Host) {
		c.Send(nmdc.BuildValidateDenide(nick))
		c.MarkRemoval(RemoveConn)
		return
	}

	c.Nick = nick
	c.Tier = -1
	c.Claimed = true
	c.Send(nmdc.BuildHello(nick))
}

func (l *Loop) handleMyPass(c *Conn, record string) {
	if c.Nick == "" {
		c.MarkRemoval(RemoveConn)
		return
	}
	pass := nmdc.Body(record, nmdc.CmdMyPass)

	if l.State.Lists.RegisteredTier(c.Nick) < 0 {
		// Unregistered nicks only get here when a hub-wide default
		// password is in force.
		if pass != l.State.Settings.Snapshot().DefaultPass {
			c.Send(nmdc.BuildBadPass())
			c.MarkRemoval(RemoveConn)
			logger.Audit("badpass", c.Nick, c.Host, record)
			return
		}
		c.Tier = -1
	} else {
		switch l.State.Lists.CheckPass(c.Nick, pass) {
		case liststore.PassRegistered:
			c.Tier = liststore.TierRegistered
		case liststore.PassOperator:
			c.Tier = liststore.TierOperator
		case liststore.PassOpAdmin:
			c.Tier = liststore.TierOpAdmin
		default:
			c.Send(nmdc.BuildBadPass())
			c.MarkRemoval(RemoveConn)
			logger.Audit("badpass", c.Nick, c.Host, record)
			return
		}
	}

	// A correct password evicts any ghost session holding the name.
	if _, _, ok := l.State.Dir.Lookup(c.Nick); ok {
		l.evictGhost(c.Nick, c)
	}
	if !l.State.Dir.TryClaim(c.Nick, c.Host) {
		c.Send(nmdc.BuildValidateDenide(c.Nick))
		c.MarkRemoval(RemoveConn)
		return
	}
	c.Claimed = true

	c.Permissions = l.State.Lists.Permissions(c.Nick)
	c.Send(nmdc.BuildHello(c.Nick))
	if c.Tier >= liststore.TierOperator {
		c.Send(nmdc.BuildLogedIn(c.Nick))
	}
}

// evictGhost removes a lingering session that still holds nick, locally
// or on a peer, and frees the directory entry.
func (l *Loop) evictGhost(nick string, newcomer *Conn) {
	if old, ok := l.users.Lookup(nick); ok && old != newcomer {
		old.HubMsg("Someone logged in with your nickname; closing this session.")
		l.Remove(old, RemoveConn|RemoveSendQuit|RemoveFromDirectory)
		return
	}
	l.ForwardToPeers("$DiscUser "+nick+"|", nil)
	l.State.Dir.Retract(nick)
}

func (l *Loop) handleVersion(c *Conn, record string) {
	version := nmdc.Body(record, nmdc.CmdVersion)
	if len(version) > nmdc.MaxVersionLen {
		c.MarkRemoval(RemoveConn)
		return
	}
	settings := l.State.Settings.Snapshot()
	if settings.MinVersion != "" && version < settings.MinVersion {
		c.HubMsg("Your client version is too old for this hub, please upgrade.")
		if settings.RedirectHost != "" {
			c.Send(nmdc.BuildForceMove(settings.RedirectHost))
		}
		c.MarkRemoval(RemoveConn)
		return
	}
	c.Version = version
}

func (l *Loop) handleGetNickList(c *Conn, record string) {
	nickList, opList := l.NickListRecords()
	c.Send(nickList)
	c.Send(opList)
}

func (l *Loop) handleMyINFO(c *Conn, record string) {
	// Peer traffic: another worker's user updated their profile.
	if c.Role.Is(RoleWorkerLink) {
		l.BroadcastLocal(RolesHuman, record, nil)
		return
	}

	body := strings.TrimPrefix(nmdc.Body(record, nmdc.CmdMyINFO), "$ALL ")
	info, err := nmdc.ParseMyINFO(body)
	if err != nil {
		logger.Info("dropping %s: bad profile record: %v", c.Name(), err)
		c.MarkRemoval(fatalRemoval)
		return
	}
	// The profile must describe the nick that logged in, nobody else.
	if c.Nick == "" || !nmdc.NickEqual(info.Nick, c.Nick) {
		logger.Audit("spoof", c.Nick, c.Host, record)
		c.MarkRemoval(fatalRemoval)
		return
	}

	settings := l.State.Settings.Snapshot()
	if settings.MaxDescLen > 0 && len(info.Description) > settings.MaxDescLen {
		c.PrivateHubMsg("Your description is too long, at most %d characters are allowed here.", settings.MaxDescLen)
		c.MarkRemoval(fatalRemoval)
		return
	}
	if settings.MaxEmailLen > 0 && len(info.Email) > settings.MaxEmailLen {
		c.PrivateHubMsg("Your email field is too long, at most %d characters are allowed here.", settings.MaxEmailLen)
		c.MarkRemoval(fatalRemoval)
		return
	}

	if info.Share < settings.MinShare && c.Tier < liststore.TierOperator {
		if settings.RedirOnMinShare && settings.RedirectHost != "" {
			c.HubMsg("You are sharing too little for this hub, redirecting.")
			c.Send(nmdc.BuildForceMove(settings.RedirectHost))
			c.MarkRemoval(fatalRemoval)
			return
		}
		c.HubMsg("You are sharing less than this hub's minimum share.")
	}

	info.Nick = c.Nick // keep the validated spelling
	normalized := nmdc.BuildMyINFO(info)

	if c.Info == nil {
		c.Info = info
		l.completeLogin(c, settings, normalized)
		return
	}

	l.State.Dir.AddTotalShare(info.Share - c.Info.Share)
	c.Info = info
	l.Broadcast(RolesHuman, normalized, c)
}

// completeLogin promotes a connection to its logged-in role and announces
// it to the hub.
func (l *Loop) completeLogin(c *Conn, settings Settings, myinfo string) {
	switch c.Tier {
	case liststore.TierRegistered:
		c.Role = RoleRegistered
	case liststore.TierOperator:
		c.Role = RoleOperator
	case liststore.TierOpAdmin:
		c.Role = RoleOpAdmin
	default:
		c.Role = RoleRegular
	}

	l.users.Register(c.Nick, c)
	l.State.Dir.AddTotalShare(c.Info.Share)
	c.Searches = ratelimiter.NewSearch(time.Duration(settings.SearchSpamTime) * time.Second)

	c.Send(nmdc.BuildHubName(settings.HubName))
	if motd := l.State.Lists.Motd(); motd != "" {
		c.HubMsg("%s", motd)
	}

	l.Broadcast(RolesHuman, nmdc.BuildHello(c.Nick), c)
	l.Broadcast(RolesHuman, myinfo, nil)

	l.State.Metrics.UserLoggedIn(c.Role.String())
	logger.Audit("login", c.Nick, c.Host, myinfo)

	// The loop may have just reached its serving cap.
	if l.MaxLocalUsers > 0 && l.UserCount() >= l.MaxLocalUsers && l.Listen != nil {
		l.Listen.CloseListening()
	}
}

func (l *Loop) handleGetINFO(c *Conn, record string) {
	fields := strings.Fields(nmdc.Body(record, nmdc.CmdGetINFO))
	if len(fields) == 0 {
		return
	}
	target := fields[0]
	requester := ""
	if len(fields) > 1 {
		requester = fields[1]
	}

	if t, ok := l.users.Lookup(target); ok {
		if t.Info == nil {
			return
		}
		reply := nmdc.BuildMyINFO(t.Info)
		if c.Role.Is(RoleWorkerLink) {
			// Request crossed a worker link; route the profile back to
			// whoever asked.
			l.SendToNick(requester, reply, nil)
		} else {
			c.Send(reply)
		}
		return
	}
	if !c.Role.Is(RoleWorkerLink) {
		l.SendToNick(target, record, c)
	}
}
