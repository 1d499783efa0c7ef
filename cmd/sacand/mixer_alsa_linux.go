//go:build linux && (amd64 || arm64 || riscv64 || loong64 || s390x)

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ============================================================================
// ALSA control interface (from <sound/asound.h>)
// ============================================================================
// The simple-mixer "Master" control is backed by the control element
// "Master Playback Volume" on /dev/snd/controlC<card>. Talking to the element
// directly needs three ioctls and no libasound.
//
// Layouts below are for 64-bit targets where C long is 8 bytes.
// ============================================================================

const (
	ctlElemIfaceMixer = 2

	ctlElemTypeInteger   = 2
	ctlElemTypeInteger64 = 6

	ctlElemAccessRead  = 1 << 0
	ctlElemAccessWrite = 1 << 1

	ctlMaxValues   = 128
	ctlMaxValues64 = 64
)

type ctlElemID struct {
	Numid     uint32
	Iface     int32
	Device    uint32
	Subdevice uint32
	Name      [44]byte
	Index     uint32
}

type ctlElemInfo struct {
	ID     ctlElemID
	Type   int32
	Access uint32
	Count  uint32
	Owner  int32
	// union: integer {long min, max, step}
	Value    [128]byte
	Reserved [64]byte
}

type ctlElemValue struct {
	ID       ctlElemID
	Indirect uint32
	_        uint32
	Value    [ctlMaxValues]int64
	Reserved [128]byte
}

// _IOWR('U', nr, size) with the generic ioctl encoding.
func ctlIOWR(nr uintptr, size uintptr) uintptr {
	const (
		dirReadWrite = 3
		typeU        = 'U'
	)
	return dirReadWrite<<30 | size<<16 | typeU<<8 | nr
}

var (
	ctlIoctlElemInfo  = ctlIOWR(0x11, unsafe.Sizeof(ctlElemInfo{}))
	ctlIoctlElemRead  = ctlIOWR(0x12, unsafe.Sizeof(ctlElemValue{}))
	ctlIoctlElemWrite = ctlIOWR(0x13, unsafe.Sizeof(ctlElemValue{}))
)

func ctlIoctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// alsaMixer is a Mixer backed by one ALSA integer control element.
type alsaMixer struct {
	fd       int
	path     string
	id       ctlElemID
	channels int
	min      int64
	max      int64
}

// OpenMixer opens the playback volume element named by spec.
func OpenMixer(spec MixerSpec) (Mixer, error) {
	card, err := cardIndex(spec.Device)
	if err != nil {
		return nil, &DeviceError{Op: "open", Err: err}
	}
	path := fmt.Sprintf("/dev/snd/controlC%d", card)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &DeviceError{Op: "open", Err: fmt.Errorf("%s: %w", path, err)}
	}

	m := &alsaMixer{fd: fd, path: path}
	if err := m.lookup(playbackVolumeElem(spec.Control), spec.Index); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return m, nil
}

func (m *alsaMixer) lookup(name string, index int) error {
	var info ctlElemInfo
	info.ID.Iface = ctlElemIfaceMixer
	info.ID.Index = uint32(index)
	if len(name) >= len(info.ID.Name) {
		return &DeviceError{Op: "find control", Err: fmt.Errorf("control name %q too long", name)}
	}
	copy(info.ID.Name[:], name)

	if err := ctlIoctl(m.fd, ctlIoctlElemInfo, unsafe.Pointer(&info)); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return &DeviceError{Op: "find control", Err: fmt.Errorf("%q index %d not found on %s", name, index, m.path)}
		}
		return &DeviceError{Op: "find control", Err: err}
	}

	if info.Type != ctlElemTypeInteger && info.Type != ctlElemTypeInteger64 {
		return &DeviceError{Op: "find control", Err: fmt.Errorf("%q is not an integer control (type %d)", name, info.Type)}
	}
	if info.Access&(ctlElemAccessRead|ctlElemAccessWrite) != ctlElemAccessRead|ctlElemAccessWrite {
		return &DeviceError{Op: "find control", Err: fmt.Errorf("%q is not read-write", name)}
	}
	limit := uint32(ctlMaxValues)
	if info.Type == ctlElemTypeInteger64 {
		limit = ctlMaxValues64
	}
	if info.Count > limit {
		return &DeviceError{Op: "find control", Err: fmt.Errorf("%q reports %d channels", name, info.Count)}
	}

	m.id = info.ID
	m.channels = int(info.Count)
	m.min = int64(binary.NativeEndian.Uint64(info.Value[0:8]))
	m.max = int64(binary.NativeEndian.Uint64(info.Value[8:16]))
	return nil
}

func (m *alsaMixer) Channels() ([]int64, error) {
	val := ctlElemValue{ID: m.id}
	if err := ctlIoctl(m.fd, ctlIoctlElemRead, unsafe.Pointer(&val)); err != nil {
		return nil, &DeviceError{Op: "read volume", Err: err}
	}
	levels := make([]int64, m.channels)
	copy(levels, val.Value[:m.channels])
	return levels, nil
}

func (m *alsaMixer) Range() (int64, int64, error) {
	return m.min, m.max, nil
}

func (m *alsaMixer) SetAll(raw int64) error {
	raw = max(m.min, min(m.max, raw))

	val := ctlElemValue{ID: m.id}
	for i := 0; i < m.channels; i++ {
		val.Value[i] = raw
	}
	if err := ctlIoctl(m.fd, ctlIoctlElemWrite, unsafe.Pointer(&val)); err != nil {
		return &DeviceError{Op: "write volume", Err: err}
	}
	return nil
}

func (m *alsaMixer) Close() error {
	return unix.Close(m.fd)
}
