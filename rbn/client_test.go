package rbn

import (
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"rbnvfd/spot"
)

// pipeClient builds a started client whose dial hands back one end of a
// net.Pipe; the other end plays the server.
func pipeClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	clientEnd, serverEnd := net.Pipe()
	c := NewClient("feed.example.net", 7000)
	c.dial = func(addr string, timeout time.Duration) (feedConn, error) {
		return clientEnd, nil
	}
	c.Start()
	t.Cleanup(func() {
		serverEnd.Close()
		c.Stop()
	})
	return c, serverEnd
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for an event")
		return nil
	}
}

// waitForEvent drains events until fn accepts one.
func waitForEvent(t *testing.T, c *Client, fn func(Event) bool) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if fn(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a matching event")
			return nil
		}
	}
}

func TestLoginHandshakeWithoutTrailingNewline(t *testing.T) {
	c, server := pipeClient(t)
	if !c.Connect("w6jsv") {
		t.Fatalf("expected connect command to queue")
	}

	// The prompt arrives without a newline; the scan must still fire.
	go server.Write([]byte("...please enter your callsign:"))

	sent := make([]byte, 16)
	server.SetReadDeadline(time.Now().Add(3 * time.Second))
	n, err := server.Read(sent)
	if err != nil {
		t.Fatalf("expected the client to send its login: %v", err)
	}
	if got := string(sent[:n]); got != "W6JSV\r\n" {
		t.Fatalf("expected login %q, got %q", "W6JSV\r\n", got)
	}

	waitForEvent(t, c, func(ev Event) bool {
		st, ok := ev.(StatusEvent)
		return ok && st.Text == "Logged in as W6JSV"
	})
	if c.State() != StateLoggedIn {
		t.Fatalf("expected logged-in state, got %v", c.State())
	}

	// More data containing the prompt text must not trigger a second send.
	go server.Write([]byte("please enter your callsign again, just kidding\r\n"))
	server.SetReadDeadline(time.Now().Add(750 * time.Millisecond))
	if _, err := server.Read(sent); err == nil {
		t.Fatalf("client re-sent the login after it was already logged in")
	}
}

func TestFramingRetainsPartialTrailingBytes(t *testing.T) {
	c, server := pipeClient(t)
	c.Connect("W6JSV")

	// One spot line split across two writes; only one complete line should
	// come out, once the line feed arrives.
	go func() {
		server.Write([]byte("DX de W1AW-#: 14033.0 WO6W "))
		time.Sleep(50 * time.Millisecond)
		server.Write([]byte("CW 24 dB 22 WPM CQ 1928Z\r\n"))
	}()

	ev := waitForEvent(t, c, func(ev Event) bool {
		_, ok := ev.(SpotEvent)
		return ok
	})
	raw := ev.(SpotEvent).Spot
	if raw.DXCall != "WO6W" || raw.Frequency != 14033.0 || raw.SNR != 24 || raw.WPM != 22 {
		t.Fatalf("unexpected spot from reassembled line: %+v", raw)
	}
}

func TestEveryLineEchoedAsRawEvent(t *testing.T) {
	c, server := pipeClient(t)
	c.Connect("W6JSV")

	go server.Write([]byte("not a spot line\r\nDX de W1AW-#: 14033.0 WO6W CW 24 dB 22 WPM\r\n"))

	first := waitForEvent(t, c, func(ev Event) bool {
		raw, ok := ev.(RawLineEvent)
		return ok && raw.Inbound
	})
	if first.(RawLineEvent).Text != "not a spot line" {
		t.Fatalf("expected the non-spot line echoed first, got %q", first.(RawLineEvent).Text)
	}
	second := waitForEvent(t, c, func(ev Event) bool {
		raw, ok := ev.(RawLineEvent)
		return ok && raw.Inbound
	})
	if !strings.HasPrefix(second.(RawLineEvent).Text, "DX de ") {
		t.Fatalf("expected the spot line echoed verbatim, got %q", second.(RawLineEvent).Text)
	}
}

func TestDisconnectCommandReturnsToIdle(t *testing.T) {
	c, _ := pipeClient(t)
	c.Connect("W6JSV")
	waitForEvent(t, c, func(ev Event) bool {
		st, ok := ev.(StatusEvent)
		return ok && strings.HasPrefix(st.Text, "Connected")
	})

	c.Disconnect()
	waitForEvent(t, c, func(ev Event) bool {
		_, ok := ev.(DisconnectedEvent)
		return ok
	})
	if c.State() != StateIdle {
		t.Fatalf("expected idle after disconnect, got %v", c.State())
	}
}

func TestRemoteCloseEmitsDisconnected(t *testing.T) {
	c, server := pipeClient(t)
	c.Connect("W6JSV")
	waitForEvent(t, c, func(ev Event) bool {
		st, ok := ev.(StatusEvent)
		return ok && strings.HasPrefix(st.Text, "Connected")
	})

	server.Close()
	waitForEvent(t, c, func(ev Event) bool {
		_, ok := ev.(DisconnectedEvent)
		return ok
	})
	if c.State() != StateIdle {
		t.Fatalf("expected idle after remote close, got %v", c.State())
	}
}

func TestDialFailureReportsStatusAndDisconnected(t *testing.T) {
	c := NewClient("feed.example.net", 7000)
	c.dial = func(addr string, timeout time.Duration) (feedConn, error) {
		return nil, io.ErrClosedPipe
	}
	c.Start()
	defer c.Stop()

	c.Connect("W6JSV")
	waitForEvent(t, c, func(ev Event) bool {
		st, ok := ev.(StatusEvent)
		return ok && strings.HasPrefix(st.Text, "Connection failed")
	})
	waitForEvent(t, c, func(ev Event) bool {
		_, ok := ev.(DisconnectedEvent)
		return ok
	})
}

func TestEmptyCallsignRejectedBeforeDialing(t *testing.T) {
	dialed := false
	c := NewClient("feed.example.net", 7000)
	c.dial = func(addr string, timeout time.Duration) (feedConn, error) {
		dialed = true
		return nil, io.ErrClosedPipe
	}
	c.Start()
	defer c.Stop()

	c.Connect("   ")
	ev := nextEvent(t, c)
	st, ok := ev.(StatusEvent)
	if !ok || st.Text != "Please enter a callsign" {
		t.Fatalf("expected callsign rejection status, got %#v", ev)
	}
	if dialed {
		t.Fatalf("client dialed despite an empty callsign")
	}
}

func TestSpotEventCarriesParsedFields(t *testing.T) {
	c, server := pipeClient(t)
	c.Connect("W6JSV")

	go server.Write([]byte("DX de W1AW-#: 14033.0 WO6W CW 24 dB 22 WPM\r\n"))

	ev := waitForEvent(t, c, func(ev Event) bool {
		_, ok := ev.(SpotEvent)
		return ok
	})
	var raw *spot.RawSpot = ev.(SpotEvent).Spot
	if raw.Spotter != "W1AW" || raw.DXCall != "WO6W" || raw.Mode != "CW" {
		t.Fatalf("unexpected spot fields: %+v", raw)
	}
}
