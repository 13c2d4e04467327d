package hub

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NareshPS/FBOpenDCHub/internal/liststore"
	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// Administrative records. Replies render the list-operation result codes
// as text: an add reporting 0 hit an existing entry, a remove reporting 0
// found nothing, and -1 is a storage failure.

func (l *Loop) handleAdminPass(c *Conn, record string) {
	pass := nmdc.Body(record, nmdc.CmdAdminPass)
	settings := l.State.Settings.Snapshot()

	if settings.AdminPass == "" || pass != settings.AdminPass {
		logger.Audit("badadminpass", "", c.Host, record)
		c.MarkRemoval(RemoveConn)
		return
	}
	c.Role = RoleAdmin
	c.Nick = "Administrator"
	c.Send(nmdc.BuildLogedIn(c.Nick))
	c.HubMsg("Welcome, you have administrator access.")
	logger.Audit("adminlogin", c.Nick, c.Host, "")
}

func (l *Loop) replyAdd(c *Conn, code int, list string) {
	switch code {
	case liststore.ResultOK:
		c.HubMsg("%s list updated.", list)
	case liststore.ResultNone:
		c.HubMsg("That entry is already on the %s list.", list)
	default:
		c.HubMsg("Couldn't update the %s list.", list)
	}
}

func (l *Loop) replyRemove(c *Conn, code int, list string) {
	switch code {
	case liststore.ResultOK:
		c.HubMsg("%s list updated.", list)
	case liststore.ResultNone:
		c.HubMsg("No such entry on the %s list.", list)
	default:
		c.HubMsg("Couldn't update the %s list.", list)
	}
}

func (l *Loop) addBan(c *Conn, record string, cmd string, kind liststore.BanKind, list string) {
	pattern, expires, err := liststore.ParseBanSpec(nmdc.Body(record, cmd), time.Now())
	if err != nil {
		c.HubMsg("Bad %s entry: %v", list, err)
		return
	}
	l.replyAdd(c, l.State.Lists.AddBan(kind, pattern, expires), list)
	logger.Audit(list, c.Nick, c.Host, record)
}

func (l *Loop) handleBan(c *Conn, record string) {
	l.addBan(c, record, nmdc.CmdBan, liststore.KindBan, "ban")
}

func (l *Loop) handleNickBan(c *Conn, record string) {
	l.addBan(c, record, nmdc.CmdNickBan, liststore.KindNickBan, "nickban")
}

func (l *Loop) handleAllow(c *Conn, record string) {
	l.addBan(c, record, nmdc.CmdAllow, liststore.KindAllow, "allow")
}

func (l *Loop) handleUnban(c *Conn, record string) {
	pattern := strings.TrimSpace(nmdc.Body(record, nmdc.CmdUnban))
	l.replyRemove(c, l.State.Lists.RemoveBan(liststore.KindBan, pattern), "ban")
}

func (l *Loop) handleUnNickBan(c *Conn, record string) {
	pattern := strings.TrimSpace(nmdc.Body(record, nmdc.CmdUnNickBan))
	l.replyRemove(c, l.State.Lists.RemoveBan(liststore.KindNickBan, pattern), "nickban")
}

func (l *Loop) handleUnallow(c *Conn, record string) {
	pattern := strings.TrimSpace(nmdc.Body(record, nmdc.CmdUnallow))
	l.replyRemove(c, l.State.Lists.RemoveBan(liststore.KindAllow, pattern), "allow")
}

func (l *Loop) sendBanList(c *Conn, kind liststore.BanKind, title string) {
	entries := l.State.Lists.Bans(kind)
	if len(entries) == 0 {
		c.HubMsg("The %s list is empty.", title)
		return
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, title+" list:")
	for _, e := range entries {
		if e.Expires == 0 {
			lines = append(lines, e.Pattern)
		} else {
			lines = append(lines, fmt.Sprintf("%s (expires %s)", e.Pattern,
				time.Unix(e.Expires, 0).UTC().Format(time.RFC3339)))
		}
	}
	c.HubMsg("%s", strings.Join(lines, "\r\n"))
}

func (l *Loop) handleGetBanList(c *Conn, record string) {
	l.sendBanList(c, liststore.KindBan, "ban")
}

func (l *Loop) handleGetNickBanList(c *Conn, record string) {
	l.sendBanList(c, liststore.KindNickBan, "nickban")
}

func (l *Loop) handleGetAllowList(c *Conn, record string) {
	l.sendBanList(c, liststore.KindAllow, "allow")
}

func (l *Loop) handleAddRegUser(c *Conn, record string) {
	fields := strings.Fields(nmdc.Body(record, nmdc.CmdAddRegUser))
	if len(fields) != 3 {
		c.HubMsg("Usage: $AddRegUser <nick> <password> <tier 0-2>")
		return
	}
	tier, err := strconv.Atoi(fields[2])
	if err != nil {
		c.HubMsg("Usage: $AddRegUser <nick> <password> <tier 0-2>")
		return
	}
	switch l.State.Lists.AddReg(fields[0], fields[1], tier) {
	case liststore.ResultOK:
		c.HubMsg("User %s registered.", fields[0])
		logger.Audit("addreg", c.Nick, c.Host, fields[0])
	case liststore.ResultBadFormat:
		c.HubMsg("Bad nick, password or tier.")
	case liststore.ResultExists:
		c.HubMsg("User %s is already registered.", fields[0])
	default:
		c.HubMsg("Couldn't update the registration list.")
	}
}

func (l *Loop) handleRemoveRegUser(c *Conn, record string) {
	nick := strings.TrimSpace(nmdc.Body(record, nmdc.CmdRemoveRegUser))
	switch l.State.Lists.RemoveReg(nick) {
	case liststore.ResultOK:
		c.HubMsg("User %s unregistered.", nick)
		logger.Audit("removereg", c.Nick, c.Host, nick)
	case liststore.ResultNone:
		c.HubMsg("User %s is not registered.", nick)
	default:
		c.HubMsg("Couldn't update the registration list.")
	}
}

func (l *Loop) handleGetRegList(c *Conn, record string) {
	regs := l.State.Lists.Registrations()
	if len(regs) == 0 {
		c.HubMsg("No registered users.")
		return
	}
	lines := make([]string, 0, len(regs)+1)
	lines = append(lines, "Registered users:")
	for _, r := range regs {
		lines = append(lines, fmt.Sprintf("%s (tier %d)", r.Nick, r.Tier))
	}
	c.HubMsg("%s", strings.Join(lines, "\r\n"))
}

func (l *Loop) replyPerm(c *Conn, code int, nick, perm string) {
	switch code {
	case liststore.ResultOK:
		c.HubMsg("Permissions for %s updated.", nick)
	case liststore.ResultBadFormat:
		c.HubMsg("Unknown permission name %s.", perm)
	case liststore.ResultExists:
		c.HubMsg("No change: %s's %s permission is already in that state.", nick, perm)
	case liststore.ResultNotOp:
		c.HubMsg("%s is not an operator.", nick)
	default:
		c.HubMsg("Couldn't update permissions.")
	}
}

func (l *Loop) handleAddPerm(c *Conn, record string) {
	fields := strings.Fields(nmdc.Body(record, nmdc.CmdAddPerm))
	if len(fields) != 2 {
		c.HubMsg("Usage: $AddPerm <nick> <permission>")
		return
	}
	l.replyPerm(c, l.State.Lists.AddPerm(fields[0], fields[1]), fields[0], fields[1])
}

func (l *Loop) handleRemovePerm(c *Conn, record string) {
	fields := strings.Fields(nmdc.Body(record, nmdc.CmdRemovePerm))
	if len(fields) != 2 {
		c.HubMsg("Usage: $RemovePerm <nick> <permission>")
		return
	}
	l.replyPerm(c, l.State.Lists.RemovePerm(fields[0], fields[1]), fields[0], fields[1])
}

func (l *Loop) handleShowPerms(c *Conn, record string) {
	nick := strings.TrimSpace(nmdc.Body(record, nmdc.CmdShowPerms))
	if l.State.Lists.RegisteredTier(nick) < 0 {
		c.HubMsg("%s is not registered.", nick)
		return
	}
	names := liststore.PermNames(l.State.Lists.Permissions(nick))
	if len(names) == 0 {
		c.HubMsg("%s holds no permissions.", nick)
		return
	}
	c.HubMsg("%s holds: %s", nick, strings.Join(names, " "))
}

func (l *Loop) handleAddLinkedHub(c *Conn, record string) {
	host, port, ok := parseHostPort(nmdc.Body(record, nmdc.CmdAddLinkedHub))
	if !ok {
		c.HubMsg("Usage: $AddLinkedHub <host> <port>")
		return
	}
	l.replyAdd(c, l.State.Lists.AddLink(host, port), "link")
}

func (l *Loop) handleRemoveLinkedHub(c *Conn, record string) {
	host, port, ok := parseHostPort(nmdc.Body(record, nmdc.CmdRemoveLinkedHub))
	if !ok {
		c.HubMsg("Usage: $RemoveLinkedHub <host> <port>")
		return
	}
	l.replyRemove(c, l.State.Lists.RemoveLink(host, port), "link")
}

func parseHostPort(body string) (string, int, bool) {
	fields := strings.Fields(body)
	if len(fields) != 2 {
		return "", 0, false
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, false
	}
	return fields[0], port, true
}

func (l *Loop) handleGetLinkList(c *Conn, record string) {
	links := l.State.Lists.Links()
	if len(links) == 0 {
		c.HubMsg("No linked hubs.")
		return
	}
	lines := make([]string, 0, len(links)+1)
	lines = append(lines, "Linked hubs:")
	for _, link := range links {
		lines = append(lines, fmt.Sprintf("%s:%d", link.Host, link.Port))
	}
	c.HubMsg("%s", strings.Join(lines, "\r\n"))
}

func (l *Loop) handleGetHost(c *Conn, record string) {
	nick := strings.TrimSpace(nmdc.Body(record, nmdc.CmdGetHost))
	if _, host, ok := l.State.Dir.Lookup(nick); ok {
		c.HubMsg("%s is connected from %s", nick, host)
		return
	}
	c.HubMsg("%s is not logged in.", nick)
}

func (l *Loop) handleGetIP(c *Conn, record string) {
	nick := strings.TrimSpace(nmdc.Body(record, nmdc.CmdGetIP))
	if t, ok := l.users.Lookup(nick); ok && t.IP != "" {
		c.HubMsg("%s is connected from %s", nick, t.IP)
		return
	}
	if _, host, ok := l.State.Dir.Lookup(nick); ok {
		c.HubMsg("%s is connected from %s", nick, host)
		return
	}
	c.HubMsg("%s is not logged in.", nick)
}

func (l *Loop) handleMassMessage(c *Conn, record string) {
	text := nmdc.Body(record, nmdc.CmdMassMessage)
	if text == "" {
		return
	}
	for _, entry := range l.State.Dir.All() {
		l.SendToNick(entry[0], nmdc.BuildTo(entry[0], "Hub-Security", text), nil)
	}
	logger.Audit("massmessage", c.Nick, c.Host, record)
}

func (l *Loop) handleGetConfig(c *Conn, record string) {
	c.HubMsg("%s", l.State.Settings.Dump())
}

func (l *Loop) handleSet(c *Conn, record string) {
	body := nmdc.Body(record, nmdc.CmdSet)
	name, value, found := strings.Cut(body, " ")
	if !found {
		c.HubMsg("Usage: $Set <variable> <value>")
		return
	}
	if !l.State.Settings.Set(name, value) {
		c.HubMsg("Unknown variable or bad value for %s.", name)
		return
	}
	c.HubMsg("%s set.", name)
	logger.Audit("set", c.Nick, c.Host, record)
	if name == "hub_name" {
		l.Broadcast(RolesHuman, nmdc.BuildHubName(value), nil)
	}
}

func (l *Loop) handleGetMotd(c *Conn, record string) {
	if motd := l.State.Lists.Motd(); motd != "" {
		c.HubMsg("%s", motd)
		return
	}
	c.HubMsg("No message of the day is set.")
}

func (l *Loop) handleRedirectAll(c *Conn, record string) {
	host := strings.TrimSpace(nmdc.Body(record, nmdc.CmdRedirectAll))
	if host == "" {
		host = l.State.Settings.Snapshot().RedirectHost
	}
	if host == "" {
		c.HubMsg("No redirect address configured.")
		return
	}
	l.BroadcastLocal(RolesHuman, nmdc.BuildForceMove(host), nil)
	for _, u := range l.localHumans() {
		l.Remove(u, RemoveConn|RemoveFromDirectory)
	}
	if !c.Role.Is(RoleWorkerLink) {
		l.ForwardToPeers(record, c)
	}
	logger.Audit("redirectall", c.Nick, c.Host, record)
}

func (l *Loop) handleDiscUser(c *Conn, record string) {
	nick := strings.TrimSpace(nmdc.Body(record, nmdc.CmdDiscUser))
	if t, ok := l.users.Lookup(nick); ok {
		l.Remove(t, RemoveConn|RemoveSendQuit|RemoveFromDirectory)
		if !c.Role.Is(RoleWorkerLink) {
			c.HubMsg("%s disconnected.", nick)
		}
		return
	}
	if !c.Role.Is(RoleWorkerLink) {
		l.ForwardToPeers(record, c)
	}
}

func (l *Loop) handleQuitProgram(c *Conn, record string) {
	logger.Audit("quitprogram", c.Nick, c.Host, "")
	if !c.Role.Is(RoleWorkerLink) {
		l.ForwardToPeers(record, c)
	}
	if l.OnQuit != nil {
		l.OnQuit()
	}
}

func (l *Loop) handleExit(c *Conn, record string) {
	c.MarkRemoval(RemoveConn)
}

func (l *Loop) localHumans() []*Conn {
	var out []*Conn
	for _, c := range l.conns {
		if c.Role.Is(RolesHuman) {
			out = append(out, c)
		}
	}
	return out
}
