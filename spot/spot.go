// Package spot defines the raw and aggregated spot structures shared by the
// feed client, the aggregation store and the display scheduler: creation,
// incremental statistics, key hashing and fixed-width display formatting.
package spot

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Display geometry of the target VFD module.
const (
	DisplayWidth = 20
	DisplayLines = 2
)

// RawSpot is a single report as parsed from one feed line. It is created once
// per successfully parsed line, never mutated, and consumed by the store.
type RawSpot struct {
	Spotter   string    // reporting skimmer, band/mode suffix stripped (e.g. "W1AW")
	DXCall    string    // station heard (e.g. "WO6W")
	Frequency float64   // kHz, fractional
	SNR       int       // dB
	WPM       int       // keying speed
	Mode      string    // mode token from the feed (e.g. "CW")
	Time      time.Time // capture instant on the receiving process clock
}

// AggregatedSpot is the display-facing entity keyed by callsign plus the
// frequency rounded to whole kHz. Frequency and AverageWPM are online means;
// HighestSNR is monotone non-decreasing for the lifetime of the entry.
type AggregatedSpot struct {
	Callsign   string
	Frequency  float64 // running-mean kHz
	HighestSNR int
	AverageWPM float64
	Count      uint32
	LastSeen   time.Time
}

// NewAggregatedSpot seeds an entry from the first raw sample for its key.
func NewAggregatedSpot(raw *RawSpot) *AggregatedSpot {
	return &AggregatedSpot{
		Callsign:   raw.DXCall,
		Frequency:  raw.Frequency,
		HighestSNR: raw.SNR,
		AverageWPM: float64(raw.WPM),
		Count:      1,
		LastSeen:   raw.Time,
	}
}

// Update folds one more raw sample into the entry. The means shift by
// (sample-mean)/count so the full history never needs to be retained.
func (a *AggregatedSpot) Update(raw *RawSpot) {
	a.Count++
	a.AverageWPM += (float64(raw.WPM) - a.AverageWPM) / float64(a.Count)
	a.Frequency += (raw.Frequency - a.Frequency) / float64(a.Count)
	if raw.SNR > a.HighestSNR {
		a.HighestSNR = raw.SNR
	}
	a.LastSeen = raw.Time
}

// Key returns the aggregate key for this entry's current state. The rounding
// to whole kHz keeps the key stable while the running mean drifts inside the
// same kHz bin.
func (a *AggregatedSpot) Key() uint64 {
	return AggregateKey(a.Callsign, a.Frequency)
}

// AggregateKey hashes (callsign, round(freqKHz)) into the store's map key.
// xxh3 over "CALL|14033" keeps the key cheap and deterministic; the rounding
// collapses the sub-kHz scatter between skimmers hearing the same station.
func AggregateKey(call string, freqKHz float64) uint64 {
	return xxh3.HashString(call + "|" + strconv.Itoa(int(math.Round(freqKHz))))
}

// AgeSeconds returns whole seconds since the entry was last refreshed.
func (a *AggregatedSpot) AgeSeconds(now time.Time) int64 {
	return int64(now.Sub(a.LastSeen) / time.Second)
}

// AgeFraction maps the entry's age onto [0,1] of maxAge (1 = due for purge).
func (a *AggregatedSpot) AgeFraction(now time.Time, maxAge time.Duration) float64 {
	if maxAge <= 0 {
		return 1
	}
	frac := now.Sub(a.LastSeen).Seconds() / maxAge.Seconds()
	if frac > 1 {
		return 1
	}
	if frac < 0 {
		return 0
	}
	return frac
}

// DisplayString renders the entry into the fixed 20-character VFD layout:
// frequency right-aligned with one decimal in 7 columns, one space, WPM
// right-aligned in 2 columns, one space, callsign left-aligned in 9 columns.
// Example: "14033.0 22 WO6W     ".
func (a *AggregatedSpot) DisplayString() string {
	call := a.Callsign
	if len(call) > 9 {
		call = call[:9]
	}
	return fmt.Sprintf("%7.1f %2d %-9s", a.Frequency, int(math.Round(a.AverageWPM)), call)
}
