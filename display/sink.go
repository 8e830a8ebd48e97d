package display

import (
	"fmt"
	"io"

	"rbnvfd/spot"
)

// clearDisplay is the single control byte the VFD understands: form feed,
// meaning clear and home the cursor.
const clearDisplay = 0x0C

// Sink is the abstract display target. Writes are fire-and-forget; the
// scheduler never retries a failed write on its own.
type Sink interface {
	// WriteDisplay replaces the whole display with two 20-column lines.
	WriteDisplay(line1, line2 string) error
	// Clear blanks the display.
	Clear() error
}

// WriterSink drives a byte-oriented display line (typically a serial device
// opened by the caller). The device auto-advances its cursor, so a full
// update is the clear byte followed by 40 characters that wrap onto the
// second row.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink wraps an opened device or stream.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) WriteDisplay(line1, line2 string) error {
	buf := make([]byte, 0, 1+2*spot.DisplayWidth)
	buf = append(buf, clearDisplay)
	buf = append(buf, padLine(line1)...)
	buf = append(buf, padLine(line2)...)
	if _, err := s.w.Write(buf); err != nil {
		return fmt.Errorf("display write failed: %w", err)
	}
	return nil
}

func (s *WriterSink) Clear() error {
	if _, err := s.w.Write([]byte{clearDisplay}); err != nil {
		return fmt.Errorf("display clear failed: %w", err)
	}
	return nil
}

// padLine space-pads or truncates text to exactly DisplayWidth bytes.
func padLine(text string) []byte {
	out := make([]byte, spot.DisplayWidth)
	for i := range out {
		if i < len(text) {
			out[i] = text[i]
		} else {
			out[i] = ' '
		}
	}
	return out
}
