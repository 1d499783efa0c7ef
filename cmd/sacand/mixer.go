package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Mixer is the single hardware control the daemon mirrors.
// Implementations are used from one goroutine only.
type Mixer interface {
	// Channels returns the raw level of every active channel.
	Channels() ([]int64, error)

	// Range returns the device-reported raw range.
	Range() (min, max int64, err error)

	// SetAll writes one raw level to every channel.
	SetAll(raw int64) error

	Close() error
}

// MixerSpec names the control to open, e.g. device "default",
// control "Master", index 0.
type MixerSpec struct {
	Device  string
	Control string
	Index   int
}

func (s MixerSpec) String() string {
	return fmt.Sprintf("%s:%s,%d", s.Device, s.Control, s.Index)
}

// DeviceError wraps a failed mixer operation.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string { return "mixer " + e.Op + ": " + e.Err.Error() }
func (e *DeviceError) Unwrap() error { return e.Err }

// cardIndex resolves an ALSA device name to a card number.
// "default" is card 0; "hw:N" and "hw:N,M" are card N.
func cardIndex(device string) (int, error) {
	switch {
	case device == "" || device == "default":
		return 0, nil
	case strings.HasPrefix(device, "hw:"):
		rest := strings.TrimPrefix(device, "hw:")
		if i := strings.IndexByte(rest, ','); i >= 0 {
			rest = rest[:i]
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid card in device %q", device)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported device %q (use \"default\" or \"hw:N\")", device)
	}
}

// playbackVolumeElem maps a simple-mixer control name to its control element.
func playbackVolumeElem(control string) string {
	return control + " Playback Volume"
}

// readMixerLevel reads the channel levels and range and returns the aggregated
// raw level together with the range maximum.
func readMixerLevel(m Mixer) (avg, max int64, err error) {
	levels, err := m.Channels()
	if err != nil {
		return 0, 0, err
	}
	_, max, err = m.Range()
	if err != nil {
		return 0, 0, err
	}
	avg, err = AverageVolume(levels)
	if err != nil {
		return 0, 0, err
	}
	return avg, max, nil
}
