package radio

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"rbnvfd/spot"
)

const rigctldTimeout = 3 * time.Second

// Rigctld talks to a hamlib rigctld daemon over its plain TCP text protocol.
// Each command is one line; failures come back as "RPRT <nonzero>".
type Rigctld struct {
	host string
	port int
	conn net.Conn
}

// NewRigctld creates a controller for host:port (conventionally 4532).
func NewRigctld(host string, port int) *Rigctld {
	return &Rigctld{host: host, port: port}
}

func (r *Rigctld) IsConnected() bool { return r.conn != nil }

func (r *Rigctld) Connect() error {
	addr := net.JoinHostPort(r.host, strconv.Itoa(r.port))
	conn, err := net.DialTimeout("tcp", addr, rigctldTimeout)
	if err != nil {
		return fmt.Errorf("cannot connect to rigctld at %s (is rigctld running?): %w", addr, err)
	}
	r.conn = conn
	return nil
}

func (r *Rigctld) Disconnect() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// Tune sets the frequency then the mode. Passband 0 leaves the radio's
// default filter in place.
func (r *Rigctld) Tune(freqKHz float64, mode spot.RadioMode) error {
	if r.conn == nil {
		return ErrNotConnected
	}
	freqHz := uint64(freqKHz * 1000.0)
	if _, err := r.send(fmt.Sprintf("F %d", freqHz)); err != nil {
		return err
	}
	if _, err := r.send(fmt.Sprintf("M %s 0", mode)); err != nil {
		return err
	}
	return nil
}

func (r *Rigctld) BackendName() string { return "rigctld" }

// send writes one command line and reads one reply line, translating RPRT
// error codes into errors.
func (r *Rigctld) send(command string) (string, error) {
	if err := r.conn.SetDeadline(time.Now().Add(rigctldTimeout)); err != nil {
		return "", fmt.Errorf("rigctld command failed: %w", err)
	}
	if _, err := fmt.Fprintf(r.conn, "%s\n", command); err != nil {
		return "", fmt.Errorf("rigctld command failed: %w", err)
	}
	reply, err := bufio.NewReader(r.conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("rigctld reply failed: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if rest, ok := strings.CutPrefix(reply, "RPRT "); ok {
		if code, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && code != 0 {
			return "", fmt.Errorf("rigctld error code %d", code)
		}
	}
	return reply, nil
}
