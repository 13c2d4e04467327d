package hub

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
	"github.com/NareshPS/FBOpenDCHub/internal/ratelimiter"
)

// Event is one unit of work for an event loop: a complete inbound record
// from a connection, notice that the connection is gone, or a new
// connection being handed to the loop for adoption.
type Event struct {
	Conn   *Conn
	Record string
	Closed bool
	Join   bool
}

// ErrOutbufOverflow reports that a connection's pending-output queue
// exceeded the hard ceiling.
var ErrOutbufOverflow = errors.New("hub: outbound buffer exceeds ceiling")

// Transport is how records leave a connection.
type Transport interface {
	// WriteRecord queues one complete record for delivery. It never
	// blocks on the network.
	WriteRecord(record string) error
	Close() error
	RemoteAddr() string
}

// Conn is one connection: a human client, an admin session, a peer
// worker link, a script link or a linked hub. All fields are owned by
// the event loop the connection is attached to; only the transport is
// internally synchronized.
type Conn struct {
	ID   uuid.UUID
	Role Role
	Nick string

	// Profile fields from $Version and $MyINFO.
	Version string
	Info    *nmdc.UserInfo

	IP   string
	Host string

	// LockSeed is the numeric seed behind the issued $Lock challenge.
	LockSeed uint32

	// Tier and Permissions are populated on password grading.
	Tier        int
	Permissions int

	// Claimed is set while this connection holds its nick in the shared
	// directory, which happens before login completes.
	Claimed bool

	// Rem is the deferred-removal marker, applied by the owning loop
	// after the current record completes.
	Rem RemovalFlags

	ConnectedAt time.Time
	Searches    *ratelimiter.SearchLimiter

	transport Transport
	sock      net.Conn
	closeOnce sync.Once
}

func newConn(role Role, t Transport) *Conn {
	return &Conn{
		ID:          uuid.New(),
		Role:        role,
		Tier:        -1,
		ConnectedAt: time.Now(),
		transport:   t,
	}
}

// Send queues a record for delivery. Delivery failure schedules the
// connection for removal; in-flight records are never retried.
func (c *Conn) Send(record string) {
	if c.transport == nil {
		return
	}
	if err := c.transport.WriteRecord(record); err != nil {
		logger.Debug("send to %s (%s) failed: %v", c.Name(), c.Role, err)
		c.Rem |= RemoveConn
	}
}

// Sendf formats and queues a single record.
func (c *Conn) Sendf(format string, args ...any) {
	c.Send(fmt.Sprintf(format, args...))
}

// HubMsg delivers a main-chat notice from Hub-Security.
func (c *Conn) HubMsg(format string, args ...any) {
	c.Send("<Hub-Security> " + fmt.Sprintf(format, args...) + "|")
}

// PrivateHubMsg delivers a private message from the hub itself.
func (c *Conn) PrivateHubMsg(format string, args ...any) {
	c.Sendf("$To: %s From: Hub $<Hub-Security> %s|", c.Nick, fmt.Sprintf(format, args...))
}

// MarkRemoval records removal flags for the end-of-iteration sweep.
func (c *Conn) MarkRemoval(flags RemovalFlags) {
	c.Rem |= flags
}

// Name returns the display name, or the remote address before one is
// claimed.
func (c *Conn) Name() string {
	if c.Nick != "" {
		return c.Nick
	}
	if c.transport != nil {
		return c.transport.RemoteAddr()
	}
	return "(unattached)"
}

// Close tears down the transport. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		if c.transport != nil {
			_ = c.transport.Close()
		}
	})
}

// ----------------------------------------------------------------------
// TCP transport with outbound buffering
// ----------------------------------------------------------------------

// tcpTransport queues records in memory and flushes them from its own
// goroutine, so the event loop never blocks on a slow client. A queue
// past the ceiling fails the write and the connection is removed.
type tcpTransport struct {
	conn net.Conn

	mu     sync.Mutex
	buf    []byte
	closed bool
	wake   chan struct{}
}

func newTCPTransport(conn net.Conn) *tcpTransport {
	t := &tcpTransport{conn: conn, wake: make(chan struct{}, 1)}
	go t.flush()
	return t
}

func (t *tcpTransport) WriteRecord(record string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return net.ErrClosed
	}
	if len(t.buf)+len(record) > nmdc.MaxBufSize {
		return ErrOutbufOverflow
	}
	t.buf = append(t.buf, record...)
	select {
	case t.wake <- struct{}{}:
	default:
	}
	return nil
}

func (t *tcpTransport) flush() {
	for range t.wake {
		for {
			t.mu.Lock()
			if t.closed || len(t.buf) == 0 {
				t.mu.Unlock()
				break
			}
			pending := t.buf
			t.buf = nil
			t.mu.Unlock()

			if _, err := t.conn.Write(pending); err != nil {
				// The reader notices the dead socket and posts the
				// close event; nothing to retry here.
				_ = t.Close()
				return
			}
		}
	}
}

func (t *tcpTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.wake)
	t.mu.Unlock()
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// NewTCPConn wraps an accepted socket. The caller starts ReadLoop on its
// own goroutine.
func NewTCPConn(role Role, conn net.Conn) *Conn {
	c := newConn(role, newTCPTransport(conn))
	c.sock = conn
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		c.IP = addr.IP.String()
	}
	c.Host = resolveHost(c.IP)
	return c
}

// StartReading launches the read goroutine for a socket-backed
// connection. No-op for in-process links.
func (c *Conn) StartReading(inbox chan<- Event) {
	if c.sock == nil {
		return
	}
	go c.ReadLoop(c.sock, inbox)
}

// resolveHost maps an address to a hostname for ban matching and the
// shared directory, falling back to the address itself.
func resolveHost(ip string) string {
	if ip == "" {
		return ""
	}
	names, err := net.LookupAddr(ip)
	if err != nil || len(names) == 0 {
		return ip
	}
	host := names[0]
	if len(host) > 0 && host[len(host)-1] == '.' {
		host = host[:len(host)-1]
	}
	if len(host) > nmdc.MaxHostLen {
		return ip
	}
	return host
}

// ReadLoop reads the socket until it fails, framing records and posting
// them to inbox. It posts exactly one Closed event on exit. A partial
// record past the buffer ceiling is the DoS guard tripping: the
// connection is dropped.
func (c *Conn) ReadLoop(conn net.Conn, inbox chan<- Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("read loop panic from %s: %v", c.Name(), r)
		}
		inbox <- Event{Conn: c, Closed: true}
	}()

	var framer nmdc.Framer
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			records, ferr := framer.Feed(chunk[:n])
			for _, record := range records {
				inbox <- Event{Conn: c, Record: string(record)}
			}
			if ferr != nil {
				logger.Warn("dropping %s: %v", c.Name(), ferr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// ----------------------------------------------------------------------
// In-process link transport (worker and script links)
// ----------------------------------------------------------------------

// linkTransport delivers records straight into the peer loop's inbox,
// tagged with the Conn that loop uses to represent us. Delivery is
// best-effort: a full inbox drops the record, exactly like a saturated
// peer socket would.
type linkTransport struct {
	peerInbox chan<- Event
	peerConn  *Conn

	mu     sync.Mutex
	closed bool
	name   string
}

func (t *linkTransport) WriteRecord(record string) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return net.ErrClosed
	}
	select {
	case t.peerInbox <- Event{Conn: t.peerConn, Record: record}:
		return nil
	default:
		return fmt.Errorf("hub: link %s inbox full, record dropped", t.name)
	}
}

func (t *linkTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	select {
	case t.peerInbox <- Event{Conn: t.peerConn, Closed: true}:
	default:
		go func() { t.peerInbox <- Event{Conn: t.peerConn, Closed: true} }()
	}
	return nil
}

func (t *linkTransport) RemoteAddr() string {
	return t.name
}

// NewLinkPair connects two event loops with a duplex record channel.
// Loop A owns the returned a (its view of peer B) and posts to aInbox;
// loop B owns b. Records sent on a arrive in bInbox carrying b, and the
// other way around.
func NewLinkPair(role Role, name string, aInbox, bInbox chan Event) (a, b *Conn) {
	a = newConn(role, nil)
	b = newConn(role, nil)
	a.transport = &linkTransport{peerInbox: bInbox, peerConn: b, name: name}
	b.transport = &linkTransport{peerInbox: aInbox, peerConn: a, name: name}
	a.Host = name
	b.Host = name
	return a, b
}
