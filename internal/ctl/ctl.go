// Package ctl wires the core together: scheduler tasks polling the
// sensor and GPS collaborators, building bounded telemetry frames and
// driving the network session. One Controller instance owns all
// mutable state, so tests run independent instances.
package ctl

import (
	"context"
	"time"

	"github.com/krti/uavcore/helpers"
	"github.com/krti/uavcore/internal/sched"
	"github.com/krti/uavcore/internal/session"
	"github.com/krti/uavcore/internal/stat"
	"github.com/krti/uavcore/internal/state"
	"github.com/krti/uavcore/internal/telemetry"
	"github.com/krti/uavcore/internal/valid"
	"github.com/krti/uavcore/log2"
)

const (
	defaultSensorPeriod  = 100 * time.Millisecond
	defaultGPSPeriod     = 200 * time.Millisecond
	defaultSendPeriod    = 500 * time.Millisecond
	defaultCommandPeriod = 100 * time.Millisecond
	// connection lifecycle polls faster than any payload task
	netPeriod = 20 * time.Millisecond
)

// SensorReader is the physical sensor collaborator. Readings are in
// volts and milliamps.
type SensorReader interface {
	Read() (voltage, current float64, err error)
}

// GPSSource is the GPS collaborator; ok=false means no fix yet.
type GPSSource interface {
	Coordinate() (lat, lng float64, ok bool)
}

// CommandFunc dispatches one sanitized command token.
type CommandFunc func(name string) error

type Options struct {
	Log      *log2.Log
	Session  *session.Session
	Network  *state.Network
	Counters *stat.Counters
	Sensors  SensorReader
	GPS      GPSSource
	Handler  CommandFunc
	Now      func() int64

	SensorPeriod  time.Duration
	GPSPeriod     time.Duration
	SendPeriod    time.Duration
	CommandPeriod time.Duration
}

type Controller struct {
	log      *log2.Log
	sched    *sched.Scheduler
	session  *session.Session
	net      *state.Network
	counters *stat.Counters
	sensors  SensorReader
	gps      GPSSource
	handler  CommandFunc

	// frame under construction, refreshed by poll tasks each cycle
	frame  telemetry.Frame
	seq    uint32
	encBuf []byte
	cmdBuf [valid.CommandMax + 1]byte

	sendInFlight bool
	pending      []byte
}

// PeriodsFromConfig maps the file config onto task periods.
func PeriodsFromConfig(c *state.Config, opt *Options) {
	opt.SensorPeriod = helpers.IntMillisecondDefault(c.Sensor.PollIntervalMs, defaultSensorPeriod)
	opt.GPSPeriod = helpers.IntMillisecondDefault(c.Sensor.GpsIntervalMs, defaultGPSPeriod)
	opt.SendPeriod = helpers.IntMillisecondDefault(c.Tele.SendIntervalMs, defaultSendPeriod)
	opt.CommandPeriod = helpers.IntMillisecondDefault(c.Sensor.CommandIntervalMs, defaultCommandPeriod)
}

func New(opt Options) *Controller {
	if opt.Session == nil || opt.Network == nil || opt.Counters == nil ||
		opt.Sensors == nil || opt.GPS == nil || opt.Handler == nil {
		opt.Log.Fatal("code error ctl.New missing collaborator")
	}
	c := &Controller{
		log:      opt.Log,
		sched:    sched.New(opt.Log, opt.Now),
		session:  opt.Session,
		net:      opt.Network,
		counters: opt.Counters,
		sensors:  opt.Sensors,
		gps:      opt.GPS,
		handler:  opt.Handler,
		encBuf:   make([]byte, 0, telemetry.TelemetryMax),
	}
	if opt.SensorPeriod == 0 {
		opt.SensorPeriod = defaultSensorPeriod
	}
	if opt.GPSPeriod == 0 {
		opt.GPSPeriod = defaultGPSPeriod
	}
	if opt.SendPeriod == 0 {
		opt.SendPeriod = defaultSendPeriod
	}
	if opt.CommandPeriod == 0 {
		opt.CommandPeriod = defaultCommandPeriod
	}

	// fixed priority order: connection upkeep, then freshest sensor
	// data, then send, then inbound commands
	c.sched.Register("net", netPeriod, c.taskNet)
	c.sched.Register("sensor", opt.SensorPeriod, c.taskSensor)
	c.sched.Register("gps", opt.GPSPeriod, c.taskGPS)
	c.sched.Register("send", opt.SendPeriod, c.taskSend)
	c.sched.Register("command", opt.CommandPeriod, c.taskCommand)
	return c
}

// Tick advances every due task once. Never blocks.
func (c *Controller) Tick(ctx context.Context) { c.sched.Tick(ctx) }

func (c *Controller) taskNet(ctx context.Context) sched.Status {
	_, configOK := c.net.Current()
	c.session.Maintain(ctx, configOK)
	return sched.Done
}

func (c *Controller) taskSensor(context.Context) sched.Status {
	v, a, err := c.sensors.Read()
	if err != nil {
		c.counters.SensorError()
		c.log.Debugf("sensor read err=%v", err)
		return sched.Done
	}
	if !valid.Voltage(v) || !valid.Current(a) {
		// keep last good reading
		c.counters.SensorError()
		c.log.Debugf("sensor reading rejected v=%v a=%v", v, a)
		return sched.Done
	}
	c.frame.Voltage = float32(v)
	c.frame.Current = float32(a)
	return sched.Done
}

func (c *Controller) taskGPS(context.Context) sched.Status {
	lat, lng, ok := c.gps.Coordinate()
	if !ok {
		return sched.Done
	}
	if !valid.GPSCoordinate(lat, lng) {
		c.counters.SensorError()
		c.log.Debugf("gps coordinate rejected lat=%v lng=%v", lat, lng)
		return sched.Done
	}
	c.frame.Latitude = lat
	c.frame.Longitude = lng
	return sched.Done
}

func (c *Controller) taskSend(ctx context.Context) sched.Status {
	if !c.session.State().Online() {
		return sched.Done
	}
	if !c.sendInFlight {
		c.seq = stat.SafeIncrement(c.seq)
		c.frame.Seq = c.seq
		b, err := telemetry.EncodeTelemetry(c.encBuf, &c.frame)
		if err != nil {
			// frame dropped, never truncated or retried
			c.counters.EncodeError()
			c.log.Errorf("telemetry encode drop seq=%d err=%v", c.seq, err)
			return sched.Done
		}
		c.pending = b
		c.sendInFlight = true
	}
	r, err := c.session.Send(ctx, c.pending)
	if err != nil {
		c.sendInFlight = false
		return sched.Done
	}
	if r == session.Pending {
		if !c.session.State().Online() {
			// connection lost under the in-flight frame: drop it
			c.sendInFlight = false
			return sched.Done
		}
		return sched.Pending
	}
	c.sendInFlight = false
	return sched.Done
}

func (c *Controller) taskCommand(ctx context.Context) sched.Status {
	b := c.session.Receive()
	if b == nil {
		return sched.Done
	}
	cmd, err := telemetry.DecodeCommand(b)
	if err != nil {
		c.counters.DecodeError()
		c.log.Errorf("command rejected err=%v payload_len=%d", err, len(b))
		return sched.Done
	}
	n, err := telemetry.SafeCopy(c.cmdBuf[:], cmd.Name)
	if err != nil {
		c.counters.DecodeError()
		return sched.Done
	}
	if err := c.handler(string(c.cmdBuf[:n])); err != nil {
		c.log.Errorf("command handler name=%s err=%v", cmd.Name, err)
	}
	return sched.Done
}
