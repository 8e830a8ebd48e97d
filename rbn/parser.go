package rbn

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"rbnvfd/spot"
)

// spotPrefix marks the only line shape the parser cares about; everything
// else on the feed (banners, prompts, keepalives) is ignored.
const spotPrefix = "DX de "

// precompiled once: the CW/RTTY spot grammar
// "DX de <spotter>: <freq> <call> <mode> <snr> dB <wpm> WPM ..."
var spotLineRE = regexp.MustCompile(`DX de (\S+):\s+(\d+\.?\d*)\s+(\S+)\s+(\w+)\s+(\d+)\s+dB\s+(\d+)\s+WPM`)

// ParseSpotLine extracts a RawSpot from one complete feed line. It returns
// false for lines without the "DX de " sentinel and for sentinel lines that
// fail the grammar or numeric parsing; malformed input is never an error.
// The caller supplies the capture timestamp so parsing stays pure.
func ParseSpotLine(line string, now time.Time) (*spot.RawSpot, bool) {
	if !strings.HasPrefix(line, spotPrefix) {
		return nil, false
	}
	m := spotLineRE.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	freq, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, false
	}
	snr, err := strconv.Atoi(m[5])
	if err != nil {
		return nil, false
	}
	wpm, err := strconv.Atoi(m[6])
	if err != nil {
		return nil, false
	}

	return &spot.RawSpot{
		// RBN skimmers report as "W1AW-#:"; the suffix marks the skimmer
		// port, not the station, so it is stripped for display.
		Spotter:   strings.TrimRight(m[1], "-#:"),
		DXCall:    m[3],
		Frequency: freq,
		SNR:       snr,
		WPM:       wpm,
		Mode:      m[4],
		Time:      now,
	}, true
}
