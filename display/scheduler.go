// Package display decides, on every external tick, what the 2x20 character
// display should show: either a rotating window over the current spot list or
// an idle animation keyed to wall-clock seconds. The scheduler performs no
// internal concurrency; the caller drives it and passes the current time in,
// which keeps the duty-cycle timing deterministic under test.
package display

import (
	"math/rand"
	"strings"
	"time"

	"rbnvfd/spot"
)

// Scheduler is the display state machine. State only changes inside Update,
// and a failed sink write leaves it untouched so the next tick retries the
// same transition.
type Scheduler struct {
	sink Sink

	scrollInterval time.Duration
	dutyPercent    int
	forceIdle      bool

	// spot-rotation state
	cursor      int
	lastAdvance time.Time
	inIdle      bool

	idle  idleGlyph
	lines [spot.DisplayLines]string

	rng      *rand.Rand
	onStatus func(string)
}

// idleGlyph is the per-second animation sub-state: one random character at a
// random cell, visible for the first dutyPercent*10 ms of its second.
type idleGlyph struct {
	char    byte
	col     int
	row     int
	second  int64
	showing bool
}

// NewScheduler creates a scheduler writing through sink. A nil sink is legal:
// the schedule still runs (and Lines reflects it) with nothing attached.
func NewScheduler(sink Sink) *Scheduler {
	return &Scheduler{
		sink:           sink,
		scrollInterval: 3 * time.Second,
		dutyPercent:    20,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSink swaps the display target; nil detaches it.
func (s *Scheduler) SetSink(sink Sink) { s.sink = sink }

// SetScrollInterval sets the minimum time between spot-rotation advances.
func (s *Scheduler) SetScrollInterval(d time.Duration) { s.scrollInterval = d }

// SetDutyCyclePercent sets the idle-glyph on fraction per second, clamped to
// 0-100. 0 never shows the glyph, 100 shows it the whole second.
func (s *Scheduler) SetDutyCyclePercent(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	s.dutyPercent = p
}

// SetForceIdle pins the scheduler to the idle animation regardless of spots.
func (s *Scheduler) SetForceIdle(force bool) { s.forceIdle = force }

// ForceIdle reports whether idle mode is pinned.
func (s *Scheduler) ForceIdle() bool { return s.forceIdle }

// SetStatusFunc installs the callback for sink-failure reports.
func (s *Scheduler) SetStatusFunc(fn func(string)) { s.onStatus = fn }

// Lines returns the content most recently committed to the display.
func (s *Scheduler) Lines() [spot.DisplayLines]string { return s.lines }

// Update runs one tick against a point-in-time snapshot. Mode is re-evaluated
// from current inputs every tick; entering spot rotation resets the cursor's
// timing reference (an advance happens on the first rotation tick) but keeps
// the cursor index.
func (s *Scheduler) Update(now time.Time, spots []spot.AggregatedSpot) {
	if s.forceIdle || len(spots) == 0 {
		if !s.inIdle {
			s.inIdle = true
		}
		s.updateIdle(now)
		return
	}

	if s.inIdle {
		s.inIdle = false
		s.lastAdvance = time.Time{}
	}
	s.updateRotation(now, spots)
}

func (s *Scheduler) updateRotation(now time.Time, spots []spot.AggregatedSpot) {
	if !s.lastAdvance.IsZero() && now.Sub(s.lastAdvance) < s.scrollInterval {
		return
	}

	var line1, line2 string
	advance := 0
	switch len(spots) {
	case 1:
		line1 = spots[0].DisplayString()
	case 2:
		line1 = spots[0].DisplayString()
		line2 = spots[1].DisplayString()
	default:
		n := len(spots)
		line1 = spots[s.cursor%n].DisplayString()
		line2 = spots[(s.cursor+1)%n].DisplayString()
		advance = 1
	}

	if !s.commit(line1, line2) {
		return
	}
	s.lastAdvance = now
	if advance > 0 {
		s.cursor = (s.cursor + 1) % len(spots)
	}
}

// updateIdle drives the heartbeat animation. Once per distinct wall-clock
// second a fresh glyph and cell are drawn; within the second the glyph is on
// for the first dutyPercent*10 milliseconds. Only on/off edges touch the
// sink.
func (s *Scheduler) updateIdle(now time.Time) {
	second := now.Unix()
	msInSecond := now.Nanosecond() / int(time.Millisecond)
	shouldShow := s.dutyPercent > 0 && msInSecond < s.dutyPercent*10

	if second != s.idle.second {
		s.idle.second = second
		if s.rng.Intn(2) == 0 {
			s.idle.char = byte('A' + s.rng.Intn(26))
		} else {
			s.idle.char = byte('0' + s.rng.Intn(10))
		}
		s.idle.col = s.rng.Intn(spot.DisplayWidth)
		s.idle.row = s.rng.Intn(spot.DisplayLines)
	}

	switch {
	case shouldShow && !s.idle.showing:
		line1, line2 := glyphFrame(s.idle.char, s.idle.col, s.idle.row)
		if s.commit(line1, line2) {
			s.idle.showing = true
		}
	case !shouldShow && s.idle.showing:
		if s.clear() {
			s.idle.showing = false
		}
	}
}

// commit pushes both lines to the sink and records them. Returns false when
// the write failed, leaving scheduler state for the next tick to retry.
func (s *Scheduler) commit(line1, line2 string) bool {
	if s.sink != nil {
		if err := s.sink.WriteDisplay(line1, line2); err != nil {
			s.report(err)
			return false
		}
	}
	s.lines[0] = line1
	s.lines[1] = line2
	return true
}

func (s *Scheduler) clear() bool {
	if s.sink != nil {
		if err := s.sink.Clear(); err != nil {
			s.report(err)
			return false
		}
	}
	s.lines[0] = ""
	s.lines[1] = ""
	return true
}

func (s *Scheduler) report(err error) {
	if s.onStatus != nil {
		s.onStatus(err.Error())
	}
}

// glyphFrame builds two blank 20-column lines with a single glyph placed at
// (row, col).
func glyphFrame(char byte, col, row int) (string, string) {
	blank := strings.Repeat(" ", spot.DisplayWidth)
	line := []byte(blank)
	line[col] = char
	if row == 0 {
		return string(line), blank
	}
	return blank, string(line)
}
