package hub

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// Linked hubs exchange records over UDP datagrams: searches and connect
// requests travel between hubs, and a periodic $Up / $UpToo ping keeps
// the links warm. Only the loop that owns the UDP socket talks to linked
// hubs; everyone else forwards through it.

// RelayToHubs sends a record to every linked hub, unless the record came
// from one, which would bounce it back and forth.
func (l *Loop) RelayToHubs(record string, origin *Conn) {
	if l.Relay == nil || (origin != nil && origin.Role.Is(RoleHubLink)) {
		return
	}
	l.Relay(record)
}

// handleUp answers a linked hub's keepalive "$Up <pass> <host>". A
// missing or wrong link password leaves the ping unanswered.
func (l *Loop) handleUp(c *Conn, record string) {
	pass, _, found := strings.Cut(nmdc.Body(record, nmdc.CmdUp), " ")
	linkPass := l.State.Settings.Snapshot().LinkPass
	if !found || linkPass == "" || pass != linkPass {
		logger.Debug("ignoring $Up from %s: bad link password", c.Host)
		return
	}
	c.Send("$UpToo|")
}

func (l *Loop) handleUpToo(c *Conn, record string) {
	logger.Debug("linked hub %s is up", c.Host)
}

// UDPLink owns the inter-hub datagram socket. Inbound datagrams from
// hosts on the link list are framed and injected into the loop as
// hub-link traffic; unknown senders are dropped.
type UDPLink struct {
	pc   net.PacketConn
	loop *Loop

	conns map[string]*Conn // remote addr -> loop-side connection
}

func NewUDPLink(pc net.PacketConn, loop *Loop) *UDPLink {
	u := &UDPLink{pc: pc, loop: loop, conns: make(map[string]*Conn)}
	loop.Relay = u.relay
	return u
}

func (u *UDPLink) relay(record string) {
	for _, link := range u.loop.State.Lists.Links() {
		addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(link.Host, strconv.Itoa(link.Port)))
		if err != nil {
			logger.Warn("linked hub %s:%d: %v", link.Host, link.Port, err)
			continue
		}
		if _, err := u.pc.WriteTo([]byte(record), addr); err != nil {
			logger.Debug("relay to %s: %v", addr, err)
		}
	}
}

// Run reads datagrams until ctx is cancelled and pings the linked hubs
// on the maintenance cadence.
func (u *UDPLink) Run(ctx context.Context) {
	go u.keepAlive(ctx)
	go func() {
		<-ctx.Done()
		_ = u.pc.Close()
	}()

	buf := make([]byte, 8192)
	for {
		n, addr, err := u.pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("udp read: %v", err)
			return
		}
		u.deliver(addr, buf[:n])
	}
}

func (u *UDPLink) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(MaintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			settings := u.loop.State.Settings.Snapshot()
			u.relay("$Up " + settings.LinkPass + " " + settings.HubHost + "|")
		}
	}
}

// deliver frames a datagram and posts its records to the loop, creating
// the hub-link connection on first contact.
func (u *UDPLink) deliver(addr net.Addr, datagram []byte) {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		logger.Debug("dropping datagram from unlinked %s", addr)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || !u.loop.State.Lists.HasLink(host, port) {
		logger.Debug("dropping datagram from unlinked %s", addr)
		return
	}

	c, ok := u.conns[host]
	if !ok {
		c = newConn(RoleHubLink, &udpTransport{pc: u.pc, addr: addr})
		c.Host = host
		c.Nick = host
		u.conns[host] = c
	}

	var framer nmdc.Framer
	records, err := framer.Feed(datagram)
	if err != nil {
		logger.Debug("datagram from %s: %v", addr, err)
	}
	for _, record := range records {
		u.loop.Inbox <- Event{Conn: c, Record: string(record)}
	}
}

// udpTransport answers a linked hub with datagrams to its last address.
type udpTransport struct {
	pc   net.PacketConn
	addr net.Addr
}

func (t *udpTransport) WriteRecord(record string) error {
	_, err := t.pc.WriteTo([]byte(record), t.addr)
	return err
}

func (t *udpTransport) Close() error { return nil }

func (t *udpTransport) RemoteAddr() string { return t.addr.String() }
