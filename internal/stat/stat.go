// Package stat holds overflow-safe counters and running statistics for
// diagnostics. The device has no scheduled reboot: every counter wraps
// mod 2^32 by definition instead of faulting.
package stat

import (
	"expvar"
	"fmt"
	"sync/atomic"

	"github.com/krti/uavcore/helpers/atomic_clock"
)

// SafeIncrement wraps to 0 at 2^32-1. Never faults, never signals.
func SafeIncrement(v uint32) uint32 { return v + 1 }

// Counters is a process-lifetime singleton owned by whoever drives the
// session. Reads may come from expvar handlers, hence atomics.
type Counters struct {
	packetsSent   uint32
	packetErrors  uint32
	encodeErrors  uint32
	decodeErrors  uint32
	sensorErrors  uint32
	lastErrorCode uint32
	lastErrorAt   atomic_clock.Clock
}

func (c *Counters) PacketSent() {
	atomic.StoreUint32(&c.packetsSent, SafeIncrement(atomic.LoadUint32(&c.packetsSent)))
}

func (c *Counters) PacketError(code uint32) {
	atomic.StoreUint32(&c.packetErrors, SafeIncrement(atomic.LoadUint32(&c.packetErrors)))
	atomic.StoreUint32(&c.lastErrorCode, code)
	c.lastErrorAt.SetNow()
}

func (c *Counters) EncodeError() {
	atomic.StoreUint32(&c.encodeErrors, SafeIncrement(atomic.LoadUint32(&c.encodeErrors)))
}

func (c *Counters) DecodeError() {
	atomic.StoreUint32(&c.decodeErrors, SafeIncrement(atomic.LoadUint32(&c.decodeErrors)))
}

func (c *Counters) SensorError() {
	atomic.StoreUint32(&c.sensorErrors, SafeIncrement(atomic.LoadUint32(&c.sensorErrors)))
}

func (c *Counters) PacketsSent() uint32   { return atomic.LoadUint32(&c.packetsSent) }
func (c *Counters) PacketErrors() uint32  { return atomic.LoadUint32(&c.packetErrors) }
func (c *Counters) EncodeErrors() uint32  { return atomic.LoadUint32(&c.encodeErrors) }
func (c *Counters) DecodeErrors() uint32  { return atomic.LoadUint32(&c.decodeErrors) }
func (c *Counters) SensorErrors() uint32  { return atomic.LoadUint32(&c.sensorErrors) }
func (c *Counters) LastErrorCode() uint32 { return atomic.LoadUint32(&c.lastErrorCode) }
func (c *Counters) LastErrorUnix() int64  { return c.lastErrorAt.Unix() }

// ErrorRatePermille is errors per 1000 attempts since start/wrap.
// Deterministic under wrap: both counters wrap independently, the
// ratio is only a diagnostic hint.
func (c *Counters) ErrorRatePermille() uint32 {
	sent := c.PacketsSent()
	errs := c.PacketErrors()
	total := sent + errs // wraps, fine
	if total == 0 {
		return 0
	}
	return uint32(uint64(errs) * 1000 / uint64(total))
}

func (c *Counters) String() string {
	return fmt.Sprintf("sent=%d errors=%d encode_errors=%d decode_errors=%d sensor_errors=%d last_code=%d",
		c.PacketsSent(), c.PacketErrors(), c.EncodeErrors(), c.DecodeErrors(), c.SensorErrors(), c.LastErrorCode())
}

// Publish exposes counters via expvar under prefix. Call at most once
// per prefix per process.
func (c *Counters) Publish(prefix string) {
	publishUint := func(name string, f func() uint32) {
		expvar.Publish(prefix+"."+name, expvar.Func(func() interface{} { return f() }))
	}
	publishUint("packets_sent", c.PacketsSent)
	publishUint("packet_errors", c.PacketErrors)
	publishUint("encode_errors", c.EncodeErrors)
	publishUint("decode_errors", c.DecodeErrors)
	publishUint("sensor_errors", c.SensorErrors)
	publishUint("last_error_code", c.LastErrorCode)
	publishUint("error_rate_permille", c.ErrorRatePermille)
}
