package hub

import (
	"strings"

	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// gate binds a command verb to the roles allowed to send it. A record
// failing a fatal gate drops the connection; failing a non-fatal gate is
// silently ignored, exactly like an unknown command.
type gate struct {
	cmd   string
	roles Role
	fatal bool
	fn    func(*Loop, *Conn, string)
}

var dispatchTable = []gate{
	{nmdc.CmdKey, RoleUnkeyed, true, (*Loop).handleKey},
	{nmdc.CmdValidateNick, RoleUnauthenticated, true, (*Loop).handleValidateNick},
	{nmdc.CmdVersion, RolesAny &^ RoleAdmin, true, (*Loop).handleVersion},
	{nmdc.CmdMyPass, RoleUnauthenticated, true, (*Loop).handleMyPass},
	{nmdc.CmdMyINFO, RolesAny &^ RoleAdmin, true, (*Loop).handleMyINFO},
	{nmdc.CmdGetNickList, RolesAny &^ (RoleUnkeyed | RoleUnauthenticated | RoleUnauthenticatedAdmin | RoleHubLink), false, (*Loop).handleGetNickList},
	{nmdc.CmdGetINFO, RolesAny &^ (RoleUnkeyed | RoleUnauthenticated | RoleUnauthenticatedAdmin | RoleHubLink), false, (*Loop).handleGetINFO},
	{nmdc.CmdTo, RolesAny &^ (RoleUnkeyed | RoleUnauthenticated | RoleUnauthenticatedAdmin | RoleScriptLink | RoleHubLink), false, (*Loop).handleTo},
	{nmdc.CmdConnectToMe, RolesHuman | RoleWorkerLink | RoleHubLink, false, (*Loop).handleConnectToMe},
	{nmdc.CmdRevConnectToMe, RolesHuman | RoleWorkerLink, false, (*Loop).handleRevConnectToMe},
	{nmdc.CmdMultiConnect, RolesHuman | RoleWorkerLink, false, (*Loop).handleMultiConnectToMe},
	{nmdc.CmdSearch, RolesHuman | RoleWorkerLink | RoleScriptLink | RoleHubLink, false, (*Loop).handleSearch},
	{nmdc.CmdMultiSearch, RolesHuman | RoleWorkerLink, false, (*Loop).handleMultiSearch},
	{nmdc.CmdSR, RolesHuman | RoleWorkerLink, false, (*Loop).handleSR},
	{nmdc.CmdHello, RoleWorkerLink, false, (*Loop).handlePeerBroadcast},
	{nmdc.CmdQuit, RoleWorkerLink, false, (*Loop).handlePeerBroadcast},
	{nmdc.CmdHubName, RoleWorkerLink, false, (*Loop).handlePeerBroadcast},
	{nmdc.CmdKick, RolesOp | RoleWorkerLink | RoleScriptLink, false, (*Loop).handleKick},
	{nmdc.CmdOpForceMove, RolesOp | RoleWorkerLink | RoleScriptLink, false, (*Loop).handleOpForceMove},

	{nmdc.CmdAdminPass, RoleUnauthenticatedAdmin, true, (*Loop).handleAdminPass},
	{nmdc.CmdBan, RoleAdmin | RoleScriptLink, false, (*Loop).handleBan},
	{nmdc.CmdNickBan, RoleAdmin | RoleScriptLink, false, (*Loop).handleNickBan},
	{nmdc.CmdAllow, RoleAdmin | RoleScriptLink, false, (*Loop).handleAllow},
	{nmdc.CmdUnban, RoleAdmin | RoleScriptLink, false, (*Loop).handleUnban},
	{nmdc.CmdUnNickBan, RoleAdmin | RoleScriptLink, false, (*Loop).handleUnNickBan},
	{nmdc.CmdUnallow, RoleAdmin | RoleScriptLink, false, (*Loop).handleUnallow},
	{nmdc.CmdGetBanList, RoleAdmin | RoleScriptLink, false, (*Loop).handleGetBanList},
	{nmdc.CmdGetNickBanList, RoleAdmin | RoleScriptLink, false, (*Loop).handleGetNickBanList},
	{nmdc.CmdGetAllowList, RoleAdmin | RoleScriptLink, false, (*Loop).handleGetAllowList},
	{nmdc.CmdAddRegUser, RoleAdmin | RoleScriptLink, false, (*Loop).handleAddRegUser},
	{nmdc.CmdRemoveRegUser, RoleAdmin | RoleScriptLink, false, (*Loop).handleRemoveRegUser},
	{nmdc.CmdGetRegList, RoleAdmin | RoleScriptLink, false, (*Loop).handleGetRegList},
	{nmdc.CmdAddPerm, RoleAdmin | RoleScriptLink, false, (*Loop).handleAddPerm},
	{nmdc.CmdRemovePerm, RoleAdmin | RoleScriptLink, false, (*Loop).handleRemovePerm},
	{nmdc.CmdShowPerms, RoleAdmin | RoleScriptLink, false, (*Loop).handleShowPerms},
	{nmdc.CmdAddLinkedHub, RoleAdmin | RoleScriptLink, false, (*Loop).handleAddLinkedHub},
	{nmdc.CmdRemoveLinkedHub, RoleAdmin | RoleScriptLink, false, (*Loop).handleRemoveLinkedHub},
	{nmdc.CmdGetLinkList, RoleAdmin | RoleScriptLink, false, (*Loop).handleGetLinkList},
	{nmdc.CmdGetHost, RoleAdmin | RoleScriptLink, false, (*Loop).handleGetHost},
	{nmdc.CmdGetIP, RoleAdmin | RoleScriptLink, false, (*Loop).handleGetIP},
	{nmdc.CmdMassMessage, RoleAdmin | RoleScriptLink, false, (*Loop).handleMassMessage},
	{nmdc.CmdGetConfig, RoleAdmin | RoleScriptLink, false, (*Loop).handleGetConfig},
	{nmdc.CmdSet, RoleAdmin | RoleScriptLink, false, (*Loop).handleSet},
	{nmdc.CmdGetMotd, RoleAdmin | RoleScriptLink, false, (*Loop).handleGetMotd},
	{nmdc.CmdRedirectAll, RoleAdmin | RoleScriptLink | RoleWorkerLink, false, (*Loop).handleRedirectAll},
	{nmdc.CmdDiscUser, RoleAdmin | RoleScriptLink | RoleWorkerLink, false, (*Loop).handleDiscUser},
	{nmdc.CmdQuitProgram, RoleAdmin | RoleScriptLink | RoleWorkerLink, false, (*Loop).handleQuitProgram},
	{nmdc.CmdExit, RoleAdmin, false, (*Loop).handleExit},

	{nmdc.CmdScriptToUser, RoleScriptLink, false, (*Loop).handleScriptToUser},
	{nmdc.CmdDataToAll, RoleScriptLink, false, (*Loop).handleDataToAll},
	{nmdc.CmdReloadScripts, RoleAdmin | RoleScriptLink, false, (*Loop).handleReloadScripts},

	{nmdc.CmdUp, RoleHubLink, false, (*Loop).handleUp},
	{nmdc.CmdUpToo, RoleHubLink, false, (*Loop).handleUpToo},
}

// dispatch routes one framed record. Unknown verbs are silently dropped;
// the framer passes anything between delimiters, so garbage is cheap to
// ignore here.
func (l *Loop) dispatch(c *Conn, record string) {
	if record == "|" || record == "" {
		return
	}
	l.State.Metrics.RecordDispatched(verbOf(record))

	// Management records over worker links go to the installed control
	// handler first.
	if c.Role.Is(RoleWorkerLink) && l.Control != nil {
		if l.Control.HandleControl(l, c, record) {
			return
		}
	}

	if record[0] != '$' {
		if record[0] == '<' {
			l.handleChat(c, record)
		}
		return
	}

	for i := range dispatchTable {
		g := &dispatchTable[i]
		if !nmdc.HasCommand(record, g.cmd) {
			continue
		}
		if !c.Role.Is(g.roles) {
			if g.fatal {
				logger.Info("dropping %s: %s not valid for %s", c.Name(), g.cmd, c.Role)
				c.MarkRemoval(RemoveConn | RemoveSendQuit | RemoveFromDirectory)
			}
			return
		}
		g.fn(l, c, record)
		if c.Role.Is(RolesHuman) {
			l.MirrorToScripts(c, record)
		}
		return
	}
}

func verbOf(record string) string {
	if i := strings.IndexAny(record, " |"); i > 0 {
		return record[:i]
	}
	return record
}
