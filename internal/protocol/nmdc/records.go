package nmdc

import "strings"

// Field length caps. Oversized fields in login-path records are rejected,
// never truncated; truncating would corrupt the positional framing.
const (
	MaxNickLen    = 50
	MaxHostLen    = 121
	MaxVersionLen = 30
	MaxHubNameLen = 25
)

// Command names. The two misspellings are part of the wire contract.
const (
	CmdLock           = "$Lock"
	CmdKey            = "$Key"
	CmdValidateNick   = "$ValidateNick"
	CmdValidateDenide = "$ValidateDenide"
	CmdVersion        = "$Version"
	CmdGetNickList    = "$GetNickList"
	CmdNickList       = "$NickList"
	CmdOpList         = "$OpList"
	CmdMyINFO         = "$MyINFO"
	CmdGetINFO        = "$GetINFO"
	CmdTo             = "$To:"
	CmdConnectToMe    = "$ConnectToMe"
	CmdRevConnectToMe = "$RevConnectToMe"
	CmdMultiConnect   = "$MultiConnectToMe"
	CmdSearch         = "$Search"
	CmdMultiSearch    = "$MultiSearch"
	CmdSR             = "$SR"
	CmdMyPass         = "$MyPass"
	CmdGetPass        = "$GetPass"
	CmdBadPass        = "$BadPass"
	CmdLogedIn        = "$LogedIn"
	CmdHello          = "$Hello"
	CmdQuit           = "$Quit"
	CmdHubName        = "$HubName"
	CmdForceMove      = "$ForceMove"
	CmdKick           = "$Kick"
	CmdOpForceMove    = "$OpForceMove"

	CmdClosedListen = "$ClosedListen"
	CmdOpenListen   = "$OpenListen"
	CmdRejListen    = "$RejListen"
	CmdDiscUser     = "$DiscUser"
	CmdQuitProgram  = "$QuitProgram"
	CmdExit         = "$Exit"
	CmdRedirectAll  = "$RedirectAll"
	CmdAdminPass    = "$AdminPass"
	CmdSet          = "$Set"

	CmdBan             = "$Ban"
	CmdNickBan         = "$NickBan"
	CmdAllow           = "$Allow"
	CmdUnban           = "$Unban"
	CmdUnNickBan       = "$UnNickBan"
	CmdUnallow         = "$Unallow"
	CmdGetBanList      = "$GetBanList"
	CmdGetNickBanList  = "$GetNickBanList"
	CmdGetAllowList    = "$GetAllowList"
	CmdGetRegList      = "$GetRegList"
	CmdAddRegUser      = "$AddRegUser"
	CmdRemoveRegUser   = "$RemoveRegUser"
	CmdAddLinkedHub    = "$AddLinkedHub"
	CmdRemoveLinkedHub = "$RemoveLinkedHub"
	CmdGetLinkList     = "$GetLinkList"
	CmdAddPerm         = "$AddPerm"
	CmdRemovePerm      = "$RemovePerm"
	CmdShowPerms       = "$ShowPerms"
	CmdGetHost         = "$GetHost"
	CmdGetIP           = "$GetIP"
	CmdCommands        = "$Commands"
	CmdMassMessage     = "$MassMessage"
	CmdGetConfig       = "$GetConfig"
	CmdGetMotd         = "$GetMotd"

	CmdScript        = "$Script"
	CmdNewScript     = "$NewScript"
	CmdScriptToUser  = "$ScriptToUser"
	CmdDataToAll     = "$DataToAll"
	CmdReloadScripts = "$ReloadScripts"

	CmdUp    = "$Up"
	CmdUpToo = "$UpToo"
)

// HasCommand reports whether record begins with the given command name
// followed by a space or the record delimiter.
func HasCommand(record, cmd string) bool {
	if !strings.HasPrefix(record, cmd) {
		return false
	}
	if len(record) == len(cmd) {
		return true
	}
	switch record[len(cmd)] {
	case ' ', '|':
		return true
	}
	return false
}

// Body returns the record's content after the command name and one space,
// with the trailing delimiter removed. Empty when the record carries no
// arguments.
func Body(record, cmd string) string {
	body := strings.TrimSuffix(record[len(cmd):], "|")
	return strings.TrimPrefix(body, " ")
}

// Trim strips the trailing record delimiter.
func Trim(record string) string {
	return strings.TrimSuffix(record, "|")
}

// reserved display names, compared case-insensitively.
var reservedNicks = []string{"hub-security", "administrator"}

func IsReservedNick(nick string) bool {
	for _, r := range reservedNicks {
		if strings.EqualFold(nick, r) {
			return true
		}
	}
	return false
}

// ValidNick reports whether a claimed display name can travel inside the
// protocol's positional records.
func ValidNick(nick string) bool {
	if nick == "" || len(nick) > MaxNickLen {
		return false
	}
	return !strings.ContainsAny(nick, " |$\x05")
}

// NickEqual is the identity comparison used by every handler that accepts
// a self-reported name: same length, case-insensitive content.
func NickEqual(a, b string) bool {
	return len(a) == len(b) && strings.EqualFold(a, b)
}
