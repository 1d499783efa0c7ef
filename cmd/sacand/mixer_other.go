//go:build !(linux && (amd64 || arm64 || riscv64 || loong64 || s390x))

package main

import (
	"errors"
	"runtime"
)

// OpenMixer is only implemented for 64-bit Linux.
func OpenMixer(spec MixerSpec) (Mixer, error) {
	return nil, &DeviceError{Op: "open", Err: errors.New("ALSA mixer not supported on " + runtime.GOOS + "/" + runtime.GOARCH)}
}
