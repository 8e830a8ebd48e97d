// Package stats tracks ingest and display counters for the periodic console
// summary. Counters are atomics so the hot paths never contend on a mutex.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Tracker accumulates counters since process start.
type Tracker struct {
	start         atomic.Int64
	linesReceived atomic.Uint64
	spotsParsed   atomic.Uint64
	snrRejects    atomic.Uint64
	displayWrites atomic.Uint64
	displayErrors atomic.Uint64
	purged        atomic.Uint64
}

// NewTracker creates a tracker anchored at now.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.start.Store(time.Now().UnixNano())
	return t
}

// IncrementLines counts one raw feed line.
func (t *Tracker) IncrementLines() { t.linesReceived.Add(1) }

// IncrementSpots counts one successfully parsed spot.
func (t *Tracker) IncrementSpots() { t.spotsParsed.Add(1) }

// IncrementSNRRejects counts one spot dropped by the SNR gate.
func (t *Tracker) IncrementSNRRejects() { t.snrRejects.Add(1) }

// IncrementDisplayWrites counts one committed display update.
func (t *Tracker) IncrementDisplayWrites() { t.displayWrites.Add(1) }

// IncrementDisplayErrors counts one failed display write.
func (t *Tracker) IncrementDisplayErrors() { t.displayErrors.Add(1) }

// AddPurged counts entries evicted by an age purge.
func (t *Tracker) AddPurged(n int) {
	if n > 0 {
		t.purged.Add(uint64(n))
	}
}

// Uptime returns time since the tracker was created.
func (t *Tracker) Uptime() time.Duration {
	return time.Since(time.Unix(0, t.start.Load()))
}

// Summary renders the one-line periodic report for the console log.
func (t *Tracker) Summary(activeSpots int, droppedEvents uint64) string {
	return fmt.Sprintf(
		"stats: uptime %s | lines %s | spots %s | snr-rejected %s | active %d | purged %s | display writes %s (errors %d) | event drops %d",
		t.Uptime().Round(time.Second),
		humanize.Comma(int64(t.linesReceived.Load())),
		humanize.Comma(int64(t.spotsParsed.Load())),
		humanize.Comma(int64(t.snrRejects.Load())),
		activeSpots,
		humanize.Comma(int64(t.purged.Load())),
		humanize.Comma(int64(t.displayWrites.Load())),
		t.displayErrors.Load(),
		droppedEvents,
	)
}

// Snapshot returns the raw counter values (used by tests and the metrics
// bridge).
func (t *Tracker) Snapshot() (lines, spots, snrRejects, writes, writeErrors, purged uint64) {
	return t.linesReceived.Load(),
		t.spotsParsed.Load(),
		t.snrRejects.Load(),
		t.displayWrites.Load(),
		t.displayErrors.Load(),
		t.purged.Load()
}
