package telemetry

import (
	"encoding/json"
	"strconv"

	"github.com/krti/uavcore/internal/valid"
)

// EncodeTelemetry appends the JSON form of f to dst and returns the
// extended slice. Fields are validated before the first byte is
// written. With a dst of cap TelemetryMax the call does not allocate.
func EncodeTelemetry(dst []byte, f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return dst, err
	}
	b := dst
	b = append(b, `{"voltage":`...)
	b = strconv.AppendFloat(b, float64(f.Voltage), 'f', 3, 32)
	b = append(b, `,"current":`...)
	b = strconv.AppendFloat(b, float64(f.Current), 'f', 3, 32)
	b = append(b, `,"latitude":`...)
	b = strconv.AppendFloat(b, f.Latitude, 'f', 6, 64)
	b = append(b, `,"longitude":`...)
	b = strconv.AppendFloat(b, f.Longitude, 'f', 6, 64)
	b = append(b, `,"sequence":`...)
	b = strconv.AppendUint(b, uint64(f.Seq), 10)
	b = append(b, '}')
	if len(b)-len(dst) > TelemetryMax {
		return dst, ErrPayloadTooLarge
	}
	return b, nil
}

// DecodeTelemetry parses and validates a telemetry payload. Used by
// tests and ground tooling; the device itself only encodes.
func DecodeTelemetry(b []byte) (Frame, error) {
	var f Frame
	if len(b) > TelemetryMax {
		return f, ErrTooLarge
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, ErrMalformed
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// DecodeCommand parses a command envelope, enforcing the size cap and
// sanitization before anything reaches a dispatcher.
func DecodeCommand(b []byte) (Command, error) {
	var c Command
	if len(b) > CommandMax {
		return c, ErrTooLarge
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return Command{}, ErrMalformed
	}
	if !valid.Command(c.Name) {
		return Command{}, ErrUnsafe
	}
	return c, nil
}

// EncodeCommand is the inverse of DecodeCommand, for tests and ground
// tooling.
func EncodeCommand(dst []byte, c *Command) ([]byte, error) {
	if !valid.Command(c.Name) {
		return dst, ErrUnsafe
	}
	b := dst
	b = append(b, `{"command":`...)
	nb, err := json.Marshal(c.Name) // JSON string escaping
	if err != nil {
		return dst, ErrMalformed
	}
	b = append(b, nb...)
	b = append(b, '}')
	if len(b)-len(dst) > CommandMax {
		return dst, ErrPayloadTooLarge
	}
	return b, nil
}
