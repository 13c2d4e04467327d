package hub

import (
	"strings"

	"github.com/NareshPS/FBOpenDCHub/internal/liststore"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// Chat commands for operators. Each is the in-band twin of an admin
// record, gated by the sender's permission bits; op-admins hold every
// bit. An unrecognized command falls through to ordinary chat.

type opCommand struct {
	name string
	perm int // required permission bit, 0 for any operator
	fn   func(*Loop, *Conn, string)
}

var opCommands = []opCommand{
	{"ban", liststore.PermBanAllow, func(l *Loop, c *Conn, args string) {
		l.addBan(c, "$Ban "+args+"|", nmdc.CmdBan, liststore.KindBan, "ban")
	}},
	{"unban", liststore.PermBanAllow, func(l *Loop, c *Conn, args string) {
		l.replyRemove(c, l.State.Lists.RemoveBan(liststore.KindBan, strings.TrimSpace(args)), "ban")
	}},
	{"nickban", liststore.PermBanAllow, func(l *Loop, c *Conn, args string) {
		l.addBan(c, "$NickBan "+args+"|", nmdc.CmdNickBan, liststore.KindNickBan, "nickban")
	}},
	{"unnickban", liststore.PermBanAllow, func(l *Loop, c *Conn, args string) {
		l.replyRemove(c, l.State.Lists.RemoveBan(liststore.KindNickBan, strings.TrimSpace(args)), "nickban")
	}},
	{"allow", liststore.PermBanAllow, func(l *Loop, c *Conn, args string) {
		l.addBan(c, "$Allow "+args+"|", nmdc.CmdAllow, liststore.KindAllow, "allow")
	}},
	{"unallow", liststore.PermBanAllow, func(l *Loop, c *Conn, args string) {
		l.replyRemove(c, l.State.Lists.RemoveBan(liststore.KindAllow, strings.TrimSpace(args)), "allow")
	}},
	{"getbanlist", liststore.PermBanAllow, func(l *Loop, c *Conn, args string) {
		l.sendBanList(c, liststore.KindBan, "ban")
	}},
	{"getnickbanlist", liststore.PermBanAllow, func(l *Loop, c *Conn, args string) {
		l.sendBanList(c, liststore.KindNickBan, "nickban")
	}},
	{"getallowlist", liststore.PermBanAllow, func(l *Loop, c *Conn, args string) {
		l.sendBanList(c, liststore.KindAllow, "allow")
	}},
	{"gethost", liststore.PermUserInfo, func(l *Loop, c *Conn, args string) {
		l.handleGetHost(c, "$GetHost "+args+"|")
	}},
	{"getip", liststore.PermUserInfo, func(l *Loop, c *Conn, args string) {
		l.handleGetIP(c, "$GetIP "+args+"|")
	}},
	{"massmessage", liststore.PermMassMessage, func(l *Loop, c *Conn, args string) {
		l.handleMassMessage(c, "$MassMessage "+args+"|")
	}},
	{"addreguser", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleAddRegUser(c, "$AddRegUser "+args+"|")
	}},
	{"removereguser", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleRemoveRegUser(c, "$RemoveRegUser "+args+"|")
	}},
	{"getreglist", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleGetRegList(c, "$GetRegList|")
	}},
	{"addlinkedhub", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleAddLinkedHub(c, "$AddLinkedHub "+args+"|")
	}},
	{"removelinkedhub", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleRemoveLinkedHub(c, "$RemoveLinkedHub "+args+"|")
	}},
	{"getlinkedhublist", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleGetLinkList(c, "$GetLinkList|")
	}},
	{"addperm", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleAddPerm(c, "$AddPerm "+args+"|")
	}},
	{"removeperm", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleRemovePerm(c, "$RemovePerm "+args+"|")
	}},
	{"showperms", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleShowPerms(c, "$ShowPerms "+args+"|")
	}},
	{"getmotd", 0, func(l *Loop, c *Conn, args string) {
		l.handleGetMotd(c, "$GetMotd|")
	}},
	{"setmotd", liststore.PermUserAdmin, (*Loop).cmdSetMotd},
	{"getconfig", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleGetConfig(c, "$GetConfig|")
	}},
	{"set", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleSet(c, "$Set "+args+"|")
	}},
	{"redirectall", liststore.PermUserAdmin, func(l *Loop, c *Conn, args string) {
		l.handleRedirectAll(c, "$RedirectAll "+args+"|")
	}},
	{"setpass", 0, (*Loop).cmdSetPass},
	{"quitprogram", 0, (*Loop).cmdQuitProgram},
	{"exit", 0, (*Loop).cmdExit},
}

// The help entries are prepended here: cmdHelp walks opCommands, so
// naming it in the composite literal above would be an initialization
// cycle.
func init() {
	opCommands = append([]opCommand{
		{"help", 0, (*Loop).cmdHelp},
		{"commands", 0, (*Loop).cmdHelp},
	}, opCommands...)
}

// runOpCommand executes "!<name> <args>". Returns false when the name is
// unknown, letting the line go out as chat.
func (l *Loop) runOpCommand(c *Conn, line string) bool {
	name, args, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)

	for i := range opCommands {
		cmd := &opCommands[i]
		if cmd.name != name {
			continue
		}
		if cmd.perm != 0 && c.Permissions&cmd.perm == 0 {
			c.PrivateHubMsg("You don't have permission to use !%s.", name)
			return true
		}
		cmd.fn(l, c, args)
		return true
	}
	return false
}

func (l *Loop) cmdHelp(c *Conn, args string) {
	var names []string
	for i := range opCommands {
		cmd := &opCommands[i]
		if cmd.perm == 0 || c.Permissions&cmd.perm != 0 {
			names = append(names, "!"+cmd.name)
		}
	}
	c.PrivateHubMsg("Available commands: %s", strings.Join(names, " "))
}

// cmdSetPass changes the caller's own registered password.
func (l *Loop) cmdSetPass(c *Conn, args string) {
	pass := strings.TrimSpace(args)
	if pass == "" {
		c.PrivateHubMsg("Usage: !setpass <new password>")
		return
	}
	switch l.State.Lists.SetPass(c.Nick, pass) {
	case liststore.ResultOK:
		c.PrivateHubMsg("Password changed.")
	case liststore.ResultNone:
		c.PrivateHubMsg("You are not registered.")
	default:
		c.PrivateHubMsg("Couldn't change the password.")
	}
}

func (l *Loop) cmdQuitProgram(c *Conn, args string) {
	if !c.Role.Is(RoleOpAdmin | RoleAdmin) {
		c.PrivateHubMsg("You don't have permission to use !quitprogram.")
		return
	}
	l.handleQuitProgram(c, "$QuitProgram|")
}

func (l *Loop) cmdExit(c *Conn, args string) {
	if !c.Role.Is(RoleOpAdmin | RoleAdmin) {
		c.PrivateHubMsg("You don't have permission to use !exit.")
		return
	}
	l.handleExit(c, "$Exit|")
}

func (l *Loop) cmdSetMotd(c *Conn, args string) {
	if args == "" {
		c.PrivateHubMsg("Usage: !setmotd <text>")
		return
	}
	if err := l.State.Lists.SetMotd(args, true); err != nil {
		c.PrivateHubMsg("Couldn't store the message of the day: %v", err)
		return
	}
	c.PrivateHubMsg("Message of the day updated.")
}
