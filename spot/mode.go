package spot

import "strings"

// RadioMode is the operating mode sent to a CAT backend when tuning.
type RadioMode string

const (
	ModeCW          RadioMode = "CW"
	ModeCWReverse   RadioMode = "CWR"
	ModeUSB         RadioMode = "USB"
	ModeLSB         RadioMode = "LSB"
	ModeRTTY        RadioMode = "RTTY"
	ModeRTTYReverse RadioMode = "RTTYR"
	ModeAM          RadioMode = "AM"
	ModeFM          RadioMode = "FM"
	ModeData        RadioMode = "PKTUSB"
)

// RadioModeFor maps a feed mode token onto the mode a radio should be set to.
// Digital modes ride on USB; anything unrecognized falls back to CW since the
// feed is overwhelmingly CW skimmer traffic.
func RadioModeFor(mode string) RadioMode {
	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case "CW":
		return ModeCW
	case "RTTY":
		return ModeRTTY
	case "FT8", "FT4", "PSK31", "PSK63", "JT65", "JT9", "WSPR":
		return ModeUSB
	case "SSB":
		return ModeUSB
	default:
		return ModeCW
	}
}
