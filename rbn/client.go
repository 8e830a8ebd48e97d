// Package rbn implements the Reverse Beacon Network telnet feed client and
// the pure spot-line parser. The client runs its connection state machine on
// its own goroutine; callers talk to it through two bounded channels, one for
// commands and one for events, and never block on it.
package rbn

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ziutek/telnet"

	"rbnvfd/spot"
)

// State is the client's connection state, visible to callers for diagnostics.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateAwaitingLogin
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingLogin:
		return "awaiting-login"
	case StateLoggedIn:
		return "logged-in"
	default:
		return "idle"
	}
}

// Command is a caller-to-client message.
type Command interface{ isCommand() }

// ConnectCommand asks the client to dial the feed and log in as Callsign.
// Ignored while a connection is already up.
type ConnectCommand struct{ Callsign string }

// DisconnectCommand tears down the current connection. A no-op while idle.
type DisconnectCommand struct{}

func (ConnectCommand) isCommand()    {}
func (DisconnectCommand) isCommand() {}

// Event is a client-to-caller message. Events for one connection attempt are
// delivered in production order: status, then spots and raw lines interleaved
// in arrival order, then a terminal DisconnectedEvent.
type Event interface{ isEvent() }

// StatusEvent carries a human-readable connection status line.
type StatusEvent struct{ Text string }

// SpotEvent carries one successfully parsed spot.
type SpotEvent struct{ Spot *spot.RawSpot }

// RawLineEvent echoes every line crossing the wire for diagnostics.
// Inbound is true for received data, false for data the client sent.
type RawLineEvent struct {
	Text    string
	Inbound bool
}

// DisconnectedEvent is the terminal event of a connection attempt. The client
// is back in Idle and will accept a fresh ConnectCommand.
type DisconnectedEvent struct{}

func (StatusEvent) isEvent()       {}
func (SpotEvent) isEvent()         {}
func (RawLineEvent) isEvent()      {}
func (DisconnectedEvent) isEvent() {}

const (
	// loginPrompt is matched case-insensitively against the raw buffer,
	// including partial reads: the server does not terminate the prompt
	// with a newline.
	loginPrompt = "please enter your callsign"

	commandQueueLen = 16
	eventQueueLen   = 256

	// readSlice bounds how long a pending DisconnectCommand can go
	// unobserved while the reader is parked in a blocking Read.
	readSlice = 250 * time.Millisecond
)

// feedConn is the slice of net.Conn the state machine needs; tests substitute
// net.Pipe ends, production uses a telnet.Conn.
type feedConn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// Client owns the feed connection lifecycle. There is no automatic
// reconnection and no timeout on the login-prompt wait: a server that never
// sends the prompt leaves the client in AwaitingLogin, still echoing raw
// lines, until the caller issues a DisconnectCommand.
type Client struct {
	host string
	port int

	cmds   chan Command
	events chan Event

	state         atomic.Int32
	droppedEvents atomic.Uint64

	// dial is swappable for tests.
	dial func(addr string, timeout time.Duration) (feedConn, error)
	now  func() time.Time

	shutdown chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewClient creates a client for host:port. Start must be called before any
// command is acted on.
func NewClient(host string, port int) *Client {
	return &Client{
		host:     host,
		port:     port,
		cmds:     make(chan Command, commandQueueLen),
		events:   make(chan Event, eventQueueLen),
		dial:     dialTelnet,
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func dialTelnet(addr string, timeout time.Duration) (feedConn, error) {
	conn, err := telnet.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Start launches the state machine goroutine.
func (c *Client) Start() {
	go c.run()
}

// Stop terminates the state machine for good. Pending events stay readable.
func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.shutdown) })
	<-c.done
}

// Connect queues a connect command. Returns false when the command queue is
// full (the caller may retry on its next tick).
func (c *Client) Connect(callsign string) bool {
	return c.send(ConnectCommand{Callsign: callsign})
}

// Disconnect queues a disconnect command.
func (c *Client) Disconnect() bool {
	return c.send(DisconnectCommand{})
}

func (c *Client) send(cmd Command) bool {
	select {
	case c.cmds <- cmd:
		return true
	default:
		return false
	}
}

// Events returns the event stream. The caller drains it non-blockingly on its
// own ticks; the client never blocks producing into it (see emit).
func (c *Client) Events() <-chan Event {
	return c.events
}

// State reports the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// DroppedEvents reports how many events were discarded because the caller
// fell behind. Display state is eventually consistent, so drops are non-fatal.
func (c *Client) DroppedEvents() uint64 {
	return c.droppedEvents.Load()
}

// emit never blocks: a full event queue drops the event with a counter bump.
func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.droppedEvents.Add(1)
	}
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// run is the outer state machine: wait in Idle for a connect command, run one
// connection to completion, emit the terminal event, return to Idle.
func (c *Client) run() {
	defer close(c.done)
	for {
		var callsign string
	idle:
		for {
			select {
			case <-c.shutdown:
				return
			case cmd := <-c.cmds:
				switch cmd := cmd.(type) {
				case ConnectCommand:
					callsign = strings.ToUpper(strings.TrimSpace(cmd.Callsign))
					if callsign == "" {
						c.emit(StatusEvent{Text: "Please enter a callsign"})
						continue
					}
					break idle
				case DisconnectCommand:
					// Nothing to disconnect.
				}
			}
		}

		addr := net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))
		c.setState(StateConnecting)
		c.emit(StatusEvent{Text: fmt.Sprintf("Connecting to %s...", addr)})

		conn, err := c.dial(addr, 30*time.Second)
		if err != nil {
			c.emit(StatusEvent{Text: fmt.Sprintf("Connection failed: %v", err)})
			c.setState(StateIdle)
			c.emit(DisconnectedEvent{})
			continue
		}

		c.setState(StateAwaitingLogin)
		c.emit(StatusEvent{Text: "Connected, waiting for login prompt..."})
		c.serve(conn, callsign)
		conn.Close()

		c.setState(StateIdle)
		c.emit(DisconnectedEvent{})

		select {
		case <-c.shutdown:
			return
		default:
		}
	}
}

// serve runs one established connection until EOF, an I/O error, a
// DisconnectCommand or shutdown. Reads use a short deadline so the command
// queue is polled between slices; a pending disconnect is observed within one
// readSlice even if the server goes quiet.
func (c *Client) serve(conn feedConn, callsign string) {
	var (
		buf      []byte
		chunk    [1024]byte
		loggedIn bool
	)

	for {
		select {
		case <-c.shutdown:
			return
		case cmd := <-c.cmds:
			switch cmd.(type) {
			case DisconnectCommand:
				c.emit(StatusEvent{Text: "Disconnected"})
				return
			case ConnectCommand:
				// Already connected; redundant connects are ignored.
			}
			continue
		default:
		}

		if err := conn.SetReadDeadline(c.now().Add(readSlice)); err != nil {
			c.emit(StatusEvent{Text: fmt.Sprintf("Read error: %v", err)})
			return
		}
		n, err := conn.Read(chunk[:])
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			buf = c.drainLines(buf)
			if !loggedIn {
				buf, loggedIn = c.tryLogin(conn, buf, callsign)
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if err == io.EOF {
				c.emit(StatusEvent{Text: "Connection closed by server"})
			} else {
				c.emit(StatusEvent{Text: fmt.Sprintf("Read error: %v", err)})
			}
			return
		}
	}
}

// drainLines extracts every complete line from buf, echoes it as a diagnostic
// event and feeds it to the parser. The partial tail is returned for the next
// read to extend.
func (c *Client) drainLines(buf []byte) []byte {
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx == -1 {
			return buf
		}
		line := strings.TrimRight(string(buf[:idx]), "\r")
		buf = buf[idx+1:]

		c.emit(RawLineEvent{Text: line, Inbound: true})
		if raw, ok := ParseSpotLine(line, c.now()); ok {
			c.emit(SpotEvent{Spot: raw})
		}
	}
}

// tryLogin scans the raw, possibly partial buffer for the login prompt. The
// prompt is not newline-terminated, so this runs on leftover bytes after line
// extraction. On a hit the residual buffer is flushed as a diagnostic event,
// the callsign goes out CRLF-terminated exactly once, and the client is
// logged in; the scan never runs again for this connection.
func (c *Client) tryLogin(conn feedConn, buf []byte, callsign string) ([]byte, bool) {
	if !strings.Contains(strings.ToLower(string(buf)), loginPrompt) {
		return buf, false
	}
	if len(buf) > 0 {
		c.emit(RawLineEvent{Text: string(buf), Inbound: true})
		buf = buf[:0]
	}
	out := callsign + "\r\n"
	if _, err := conn.Write([]byte(out)); err != nil {
		c.emit(StatusEvent{Text: fmt.Sprintf("Login send failed: %v", err)})
		return buf, false
	}
	c.emit(RawLineEvent{Text: out, Inbound: false})
	c.emit(StatusEvent{Text: fmt.Sprintf("Logged in as %s", callsign)})
	c.setState(StateLoggedIn)
	return buf, true
}
