package hub

import (
	"strings"
	"time"

	"github.com/NareshPS/FBOpenDCHub/internal/liststore"
	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

func (l *Loop) handleChat(c *Conn, record string) {
	if c.Role.Is(RoleWorkerLink) {
		l.BroadcastLocal(RolesHuman, record, nil)
		return
	}
	if !c.Role.Is(RolesHuman) {
		return
	}

	nick, text, err := nmdc.ParseChat(record)
	if err != nil {
		return
	}
	if !nmdc.NickEqual(nick, c.Nick) {
		logger.Audit("spoof", c.Nick, c.Host, record)
		c.MarkRemoval(fatalRemoval)
		return
	}

	if strings.HasPrefix(text, "!") {
		if c.Role.Is(RolesOp) {
			if l.runOpCommand(c, text[1:]) {
				l.MirrorToScripts(c, record)
				return
			}
		} else if c.Role.Is(RoleRegistered) {
			// Registered users get exactly one command of their own.
			if name, args, _ := strings.Cut(text[1:], " "); strings.EqualFold(name, "setpass") {
				l.cmdSetPass(c, args)
				l.MirrorToScripts(c, record)
				return
			}
		}
	}

	l.Broadcast(RolesHuman, record, nil)
	l.MirrorToScripts(c, record)
}

func (l *Loop) handleTo(c *Conn, record string) {
	if c.Role.Is(RoleWorkerLink) {
		msg, err := nmdc.ParseTo(record)
		if err != nil {
			return
		}
		l.SendToNick(msg.To, record, c)
		return
	}

	msg, err := nmdc.ParseTo(record)
	if err != nil {
		return
	}
	if !nmdc.NickEqual(msg.From, c.Nick) || !nmdc.NickEqual(msg.ChatNick, c.Nick) {
		logger.Audit("spoof", c.Nick, c.Host, record)
		c.MarkRemoval(fatalRemoval)
		return
	}
	l.SendToNick(msg.To, record, c)
}

// Client-to-client setup records are directed: they reach exactly the
// named peer, wherever that peer's connection lives.

func (l *Loop) handleConnectToMe(c *Conn, record string) {
	fields := strings.Fields(nmdc.Body(record, nmdc.CmdConnectToMe))
	if len(fields) < 2 {
		return
	}
	l.SendToNick(fields[0], record, c)
}

func (l *Loop) handleRevConnectToMe(c *Conn, record string) {
	fields := strings.Fields(nmdc.Body(record, nmdc.CmdRevConnectToMe))
	if len(fields) < 2 {
		return
	}
	if !c.Role.Is(RoleWorkerLink) && !nmdc.NickEqual(fields[0], c.Nick) {
		c.MarkRemoval(fatalRemoval)
		return
	}
	l.SendToNick(fields[1], record, c)
}

// handleMultiConnectToMe relays a cross-hub connect request to the linked
// hubs; the named target is not on this hub.
func (l *Loop) handleMultiConnectToMe(c *Conn, record string) {
	rewritten := nmdc.CmdConnectToMe + record[len(nmdc.CmdMultiConnect):]
	l.RelayToHubs(rewritten, c)
	if !c.Role.Is(RoleWorkerLink) {
		l.ForwardToPeers(record, c)
	}
}

// checkSearchOrigin verifies that a human sender's search asks for
// results to be returned to themselves: the passive form must carry
// their own nick, the active form their own address.
func (l *Loop) checkSearchOrigin(c *Conn, record string) bool {
	if !c.Role.Is(RolesHuman) {
		return true
	}
	origin, err := nmdc.ParseSearchOrigin(record)
	if err != nil {
		return false
	}
	if origin.Passive {
		if !nmdc.NickEqual(origin.Nick, c.Nick) {
			logger.Audit("spoof", c.Nick, c.Host, record)
			c.MarkRemoval(fatalRemoval)
			return false
		}
		return true
	}
	if ip, _, found := strings.Cut(origin.Addr, ":"); found && c.IP != "" && ip != c.IP {
		logger.Audit("spoof", c.Nick, c.Host, record)
		c.MarkRemoval(fatalRemoval)
		return false
	}
	return true
}

// allowSearch applies the per-user search rate limit, telling the
// sender when a search is swallowed.
func (l *Loop) allowSearch(c *Conn) bool {
	if !c.Role.Is(RolesHuman) || c.Searches == nil || c.Searches.Allow() {
		return true
	}
	interval := l.State.Settings.Snapshot().SearchSpamTime
	c.HubMsg("Search ignored. Please leave at least %d seconds between search attempts.", interval)
	return false
}

func (l *Loop) handleSearch(c *Conn, record string) {
	if !l.checkSearchOrigin(c, record) || !l.allowSearch(c) {
		return
	}
	l.Broadcast(RolesHuman, record, c)
	l.RelayToHubs(record, c)
}

// handleMultiSearch fans a search out to the linked hubs as well as the
// local users.
func (l *Loop) handleMultiSearch(c *Conn, record string) {
	rewritten := nmdc.CmdSearch + record[len(nmdc.CmdMultiSearch):]
	if !l.checkSearchOrigin(c, rewritten) || !l.allowSearch(c) {
		return
	}
	l.Broadcast(RolesHuman, rewritten, c)
	l.RelayToHubs(rewritten, c)
	if !c.Role.Is(RoleWorkerLink) {
		l.ForwardToPeers(record, c)
	}
}

func (l *Loop) handleSR(c *Conn, record string) {
	res, err := nmdc.ParseSR(record)
	if err != nil {
		return
	}
	if c.Role.Is(RolesHuman) && !nmdc.NickEqual(res.From, c.Nick) {
		logger.Audit("spoof", c.Nick, c.Host, record)
		c.MarkRemoval(fatalRemoval)
		return
	}
	l.SendToNick(res.To, nmdc.StripSRRecipient(record), c)
}

func (l *Loop) handleKick(c *Conn, record string) {
	target := strings.TrimSpace(nmdc.Body(record, nmdc.CmdKick))
	if target == "" {
		return
	}
	if t, ok := l.users.Lookup(target); ok {
		l.punishKick(t, c.Name())
		return
	}
	if !c.Role.Is(RoleWorkerLink) {
		l.ForwardToPeers(record, c)
	}
}

func (l *Loop) punishKick(t *Conn, by string) {
	settings := l.State.Settings.Snapshot()
	t.HubMsg("You were kicked from this hub.")
	if settings.KickBantime > 0 && t.IP != "" {
		expires := time.Now().Unix() + int64(settings.KickBantime)*60
		l.State.Lists.AddBan(liststore.KindBan, t.IP, expires)
	}
	logger.Audit("kick", t.Nick, t.Host, "kicked by "+by)
	l.Remove(t, RemoveConn|RemoveSendQuit|RemoveFromDirectory)
}

// handleOpForceMove parses "$OpForceMove $Who:<nick>$Where:<host>$Msg:<text>|"
// and redirects the named user.
func (l *Loop) handleOpForceMove(c *Conn, record string) {
	body := nmdc.Body(record, nmdc.CmdOpForceMove)
	var who, where, msg string
	for _, part := range strings.Split(body, "$") {
		switch {
		case strings.HasPrefix(part, "Who:"):
			who = part[len("Who:"):]
		case strings.HasPrefix(part, "Where:"):
			where = part[len("Where:"):]
		case strings.HasPrefix(part, "Msg:"):
			msg = part[len("Msg:"):]
		}
	}
	if who == "" || where == "" {
		return
	}
	if t, ok := l.users.Lookup(who); ok {
		if msg != "" {
			t.HubMsg("%s", msg)
		}
		t.Send(nmdc.BuildForceMove(where))
		l.Remove(t, RemoveConn|RemoveSendQuit|RemoveFromDirectory)
		return
	}
	if !c.Role.Is(RoleWorkerLink) {
		l.ForwardToPeers(record, c)
	}
}
