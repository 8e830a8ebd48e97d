// Command feedprobe connects to an RBN-style feed, logs in and prints every
// raw line alongside the parsed spot (when a line parses). It is a standalone
// debugging utility exercising the same parser as the main application.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/ziutek/telnet"

	"rbnvfd/rbn"
)

func main() {
	host := flag.String("host", "rbn.telegraphy.de", "feed host")
	port := flag.Int("port", 7000, "feed port")
	callsign := flag.String("callsign", "", "callsign to log in with (required)")
	duration := flag.Duration("duration", 0, "stop after this long (0 = run until killed)")
	flag.Parse()

	call := strings.ToUpper(strings.TrimSpace(*callsign))
	if call == "" {
		log.Fatal("feedprobe: -callsign is required")
	}

	addr := net.JoinHostPort(*host, fmt.Sprintf("%d", *port))
	conn, err := telnet.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		log.Fatalf("feedprobe: dial %s: %v", addr, err)
	}
	defer conn.Close()
	log.Printf("feedprobe: connected to %s", addr)

	deadline := time.Time{}
	if *duration > 0 {
		deadline = time.Now().Add(*duration)
	}

	var buf []byte
	chunk := make([]byte, 1024)
	loggedIn := false
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			log.Printf("feedprobe: duration elapsed")
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			log.Fatalf("feedprobe: %v", err)
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				idx := bytes.IndexByte(buf, '\n')
				if idx == -1 {
					break
				}
				line := strings.TrimRight(string(buf[:idx]), "\r")
				buf = buf[idx+1:]
				fmt.Printf("<< %s\n", line)
				if raw, ok := rbn.ParseSpotLine(line, time.Now()); ok {
					fmt.Printf("   spot: %s heard %s on %.1f kHz %s %d dB %d WPM\n",
						raw.Spotter, raw.DXCall, raw.Frequency, raw.Mode, raw.SNR, raw.WPM)
				}
			}
			if !loggedIn && strings.Contains(strings.ToLower(string(buf)), "please enter your callsign") {
				buf = buf[:0]
				if _, err := conn.Write([]byte(call + "\r\n")); err != nil {
					log.Fatalf("feedprobe: login send: %v", err)
				}
				fmt.Printf(">> %s\n", call)
				loggedIn = true
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Fatalf("feedprobe: read: %v", err)
		}
	}
}
