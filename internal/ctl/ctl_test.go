package ctl

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/krti/uavcore/internal/session"
	"github.com/krti/uavcore/internal/stat"
	"github.com/krti/uavcore/internal/state"
	"github.com/krti/uavcore/internal/telemetry"
	"github.com/krti/uavcore/log2"
)

type fakeSensors struct {
	v, a float64
	err  error
}

func (f *fakeSensors) Read() (float64, float64, error) { return f.v, f.a, f.err }

type fakeGPS struct {
	lat, lng float64
	ok       bool
}

func (f *fakeGPS) Coordinate() (float64, float64, bool) { return f.lat, f.lng, f.ok }

type testRig struct {
	now       int64
	ctx       context.Context
	transport *session.MockTransport
	counters  *stat.Counters
	sensors   *fakeSensors
	gps       *fakeGPS
	commands  []string
	ctl       *Controller
	session   *session.Session
}

func newTestRig(t testing.TB) *testRig {
	rig := &testRig{
		ctx:       context.Background(),
		transport: &session.MockTransport{},
		counters:  new(stat.Counters),
		sensors:   &fakeSensors{v: 12.6, a: 150},
		gps:       &fakeGPS{lat: -5.3584, lng: 105.3117, ok: true},
	}
	log := log2.NewTest(t, log2.LDebug)
	now := func() int64 { return rig.now }
	rig.session = session.New(log, rig.transport, rig.counters, nil, session.Config{
		ConnectTimeout: 5 * time.Second,
		BackoffMin:     100 * time.Millisecond,
		BackoffMax:     1 * time.Second,
	}, now)
	network := state.NewNetwork(log, &state.MemStore{}, state.NetworkConfig{
		SSID: "test", Password: "SecurePass123", TargetIP: "10.0.0.1", TargetPort: 3003,
	})
	rig.ctl = New(Options{
		Log:      log,
		Session:  rig.session,
		Network:  network,
		Counters: rig.counters,
		Sensors:  rig.sensors,
		GPS:      rig.gps,
		Handler:  func(name string) error { rig.commands = append(rig.commands, name); return nil },
		Now:      now,
	})
	return rig
}

// run advances simulated time in 20ms ticks for the given duration.
func (rig *testRig) run(d time.Duration) {
	const step = 20 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		rig.ctl.Tick(rig.ctx)
		rig.now += int64(step)
	}
}

func TestCompleteSystemCycle(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	rig.run(2 * time.Second)
	require.Equal(t, session.StateConnected, rig.session.State())
	require.NotEmpty(t, rig.transport.Sent)

	frame, err := telemetry.DecodeTelemetry(rig.transport.Sent[0])
	require.NoError(t, err)
	assert.InDelta(t, 12.6, float64(frame.Voltage), 0.001)
	assert.InDelta(t, 150, float64(frame.Current), 0.001)
	assert.InDelta(t, -5.3584, frame.Latitude, 0.000001)
	assert.InDelta(t, 105.3117, frame.Longitude, 0.000001)
	assert.Equal(t, uint32(1), frame.Seq)
	assert.Equal(t, uint32(len(rig.transport.Sent)), rig.counters.PacketsSent())

	// sequence numbers are monotonic per frame
	last, err := telemetry.DecodeTelemetry(rig.transport.Sent[len(rig.transport.Sent)-1])
	require.NoError(t, err)
	assert.Equal(t, uint32(len(rig.transport.Sent)), last.Seq)
}

func TestRecoversFromTransportFailure(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	rig.run(1 * time.Second)
	require.Equal(t, session.StateConnected, rig.session.State())
	sentBefore := len(rig.transport.Sent)

	rig.transport.ScriptSend(&session.StatusError{Code: 500})
	rig.run(600 * time.Millisecond)
	assert.Equal(t, uint32(500), rig.counters.LastErrorCode())

	// backoff elapses, session reconnects, telemetry resumes
	rig.run(3 * time.Second)
	assert.Equal(t, session.StateConnected, rig.session.State())
	assert.Greater(t, len(rig.transport.Sent), sentBefore)
}

func TestHandlesDisconnectionGracefully(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	rig.run(1 * time.Second)
	require.Equal(t, session.StateConnected, rig.session.State())

	// every operation fails for a while
	for i := 0; i < 5; i++ {
		rig.transport.ScriptSend(assert.AnError)
		rig.transport.ScriptConnect(assert.AnError)
	}
	rig.run(10 * time.Second)

	// never halts: once the transport heals, traffic resumes
	sentBefore := len(rig.transport.Sent)
	rig.run(5 * time.Second)
	assert.Equal(t, session.StateConnected, rig.session.State())
	assert.Greater(t, len(rig.transport.Sent), sentBefore)
}

func TestInboundCommandDispatch(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	rig.run(1 * time.Second)
	require.Equal(t, session.StateConnected, rig.session.State())

	rig.transport.QueueInbound([]byte(`{"command":"set_mode auto"}`))
	rig.run(500 * time.Millisecond)
	assert.Equal(t, []string{"set_mode auto"}, rig.commands)
}

func TestMaliciousCommandRejected(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	rig.run(1 * time.Second)

	rig.transport.QueueInbound([]byte(`{"command":"reboot; rm -rf /"}`))
	rig.transport.QueueInbound([]byte(`garbage`))
	rig.run(500 * time.Millisecond)
	assert.Empty(t, rig.commands)
	assert.Equal(t, uint32(2), rig.counters.DecodeErrors())
}

func TestInvalidSensorReadingKeepsLastGood(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	rig.run(1 * time.Second)
	require.NotEmpty(t, rig.transport.Sent)

	rig.sensors.v = math.NaN()
	rig.gps.lat = 91 // out of range
	rig.run(1 * time.Second)

	last, err := telemetry.DecodeTelemetry(rig.transport.Sent[len(rig.transport.Sent)-1])
	require.NoError(t, err)
	assert.InDelta(t, 12.6, float64(last.Voltage), 0.001)
	assert.InDelta(t, -5.3584, last.Latitude, 0.000001)
	assert.NotZero(t, rig.counters.SensorErrors())
}

func TestStressCycleStable(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	valid := map[session.State]bool{
		session.StateDisconnected: true, session.StateConnecting: true,
		session.StateConnected: true, session.StateRecovering: true,
	}
	for i := 0; i < 1000; i++ {
		if i%97 == 0 {
			rig.transport.ScriptSend(&session.StatusError{Code: 503})
		}
		rig.ctl.Tick(rig.ctx)
		rig.now += int64(20 * time.Millisecond)
		require.True(t, valid[rig.session.State()])
	}
	assert.NotZero(t, rig.counters.PacketsSent())
	assert.NotZero(t, rig.counters.PacketErrors())
}
