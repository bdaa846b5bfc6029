// Package telemetry builds and parses the fixed-capacity JSON payloads
// exchanged with the ground station. Encoding writes into caller
// supplied buffers and performs no per-message allocation.
package telemetry

import (
	"fmt"

	"github.com/krti/uavcore/internal/valid"
)

// Serialized size caps. A frame that would exceed its cap is rejected
// whole, never truncated.
const (
	TelemetryMax = 1024
	CommandMax   = 512
)

var (
	ErrInvalidField    = fmt.Errorf("invalid field")
	ErrPayloadTooLarge = fmt.Errorf("payload too large")
	ErrMalformed       = fmt.Errorf("malformed")
	ErrTooLarge        = fmt.Errorf("input too large")
	ErrUnsafe          = fmt.Errorf("unsafe command")
	ErrCopyOverflow    = fmt.Errorf("copy overflow")
)

// Frame is one telemetry sample. Transient: built, encoded and sent
// within a single scheduler cycle.
type Frame struct {
	Voltage   float32 `json:"voltage"`   // volts
	Current   float32 `json:"current"`   // milliamps
	Latitude  float64 `json:"latitude"`  // degrees
	Longitude float64 `json:"longitude"` // degrees
	Seq       uint32  `json:"sequence"`  // wraps mod 2^32
}

func (f *Frame) Validate() error {
	if !valid.Voltage(float64(f.Voltage)) {
		return fmt.Errorf("voltage=%v: %w", f.Voltage, ErrInvalidField)
	}
	if !valid.Current(float64(f.Current)) {
		return fmt.Errorf("current=%v: %w", f.Current, ErrInvalidField)
	}
	if !valid.GPSCoordinate(f.Latitude, f.Longitude) {
		return fmt.Errorf("gps=%v,%v: %w", f.Latitude, f.Longitude, ErrInvalidField)
	}
	return nil
}

// Command is one inbound control message after decode+sanitization.
type Command struct {
	Name string `json:"command"`
}

// SafeCopy copies src into dst leaving a terminating NUL, refusing to
// write anything when src does not fit. Underlies every buffer write
// that crosses a capacity boundary.
func SafeCopy(dst []byte, src string) (int, error) {
	if len(src) >= len(dst) {
		return 0, ErrCopyOverflow
	}
	n := copy(dst, src)
	dst[n] = 0
	return n, nil
}
