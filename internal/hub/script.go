package hub

import (
	"strings"

	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// Script links are extension processes attached over an in-process link.
// Every record from an authenticated user is mirrored to them as
// "$Script data_arrival$<nick>$<record>|"; the records here are their
// control channel back into the hub.

// handleScriptToUser delivers a raw record to one named user:
// "$ScriptToUser <nick> <record>".
func (l *Loop) handleScriptToUser(c *Conn, record string) {
	body := nmdc.Body(record, nmdc.CmdScriptToUser)
	nick, payload, found := strings.Cut(body, " ")
	if !found || payload == "" {
		return
	}
	if !strings.HasSuffix(payload, "|") {
		payload += "|"
	}
	l.SendToNick(nick, payload, c)
}

// handleDataToAll broadcasts a raw record to every logged-in user:
// "$DataToAll <record>".
func (l *Loop) handleDataToAll(c *Conn, record string) {
	payload := nmdc.Body(record, nmdc.CmdDataToAll)
	if payload == "" {
		return
	}
	if !strings.HasSuffix(payload, "|") {
		payload += "|"
	}
	l.Broadcast(RolesHuman, payload, nil)
}

func (l *Loop) handleReloadScripts(c *Conn, record string) {
	if l.OnReloadScripts == nil {
		c.HubMsg("No script host is attached.")
		return
	}
	logger.Audit("reloadscripts", c.Nick, c.Host, "")
	l.OnReloadScripts()
	c.HubMsg("Scripts reloaded.")
}

// AnnounceScript tells the attached scripts a new peer script joined.
func (l *Loop) AnnounceScript(name string) {
	for _, s := range l.scripts {
		s.Send("$NewScript " + name + "|")
	}
}
