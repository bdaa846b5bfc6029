package session

import (
	"context"
	"time"

	"github.com/krti/uavcore/helpers"
	"github.com/krti/uavcore/helpers/atomic_clock"
	"github.com/krti/uavcore/internal/stat"
	"github.com/krti/uavcore/log2"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultBackoffMin     = 1 * time.Second
	defaultBackoffMax     = 60 * time.Second
)

type Config struct {
	ConnectTimeout time.Duration
	BackoffMin     time.Duration
	BackoffMax     time.Duration
}

// Session contract:
// - single execution context, driven by scheduler ticks
// - Maintain/Send/Receive never block
// - state is mutated only here, callers observe via State()
// - persistent failure cycles Recovering/Connecting forever, nothing is fatal
type Session struct {
	log       *log2.Log
	transport Transport
	stat      *stat.Counters
	diag      DiagSink
	cfg       Config
	now       func() int64

	state        State
	connectStart int64
	backoff      helpers.Backoff
	needConfig   bool
	onState      func(State)
}

func New(log *log2.Log, transport Transport, counters *stat.Counters, diag DiagSink, cfg Config, now func() int64) *Session {
	if transport == nil || counters == nil {
		log.Fatal("code error session.New transport/counters nil")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = defaultBackoffMin
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = defaultBackoffMax
	}
	if now == nil {
		now = atomic_clock.Source
	}
	if diag == nil {
		diag = LogDiag{Log: log}
	}
	s := &Session{
		log:       log,
		transport: transport,
		stat:      counters,
		diag:      diag,
		cfg:       cfg,
		now:       now,
		state:     StateDisconnected,
	}
	s.backoff = helpers.Backoff{Min: cfg.BackoffMin, Max: cfg.BackoffMax, K: 2, Now: now}
	return s
}

func (s *Session) State() State { return s.state }

// NeedConfig reports that the last failure was classified as an
// auth/config error and the active config must be re-validated.
func (s *Session) NeedConfig() bool { return s.needConfig }

// OnState registers a hook called on every state transition.
func (s *Session) OnState(f func(State)) { s.onState = f }

// Maintain advances the connection lifecycle by one non-blocking step.
// configOK tells whether a validated network config is available.
func (s *Session) Maintain(ctx context.Context, configOK bool) State {
	switch s.state {
	case StateDisconnected:
		if configOK && s.backoff.Ready() {
			s.needConfig = false
			s.connectStart = s.now()
			s.toState(StateConnecting)
			s.pollConnect(ctx)
		}

	case StateConnecting:
		s.pollConnect(ctx)

	case StateConnected:
		// sends and receives drive error detection

	case StateRecovering:
		if s.backoff.Ready() {
			s.connectStart = s.now()
			s.toState(StateConnecting)
			s.pollConnect(ctx)
		}
	}
	return s.state
}

// Send forwards one encoded frame while Connected. A failed frame is
// dropped, counted and triggers the recovery path; it is never retried.
func (s *Session) Send(ctx context.Context, payload []byte) (Result, error) {
	if s.state != StateConnected {
		return Pending, nil
	}
	r, err := s.transport.Send(ctx, payload)
	if err != nil {
		code, action := Classify(err)
		s.reportError(code, "send", err)
		s.stat.PacketError(uint32(code))
		s.backoff.Failure()
		if action == ActionReconfig {
			s.needConfig = true
			s.toState(StateDisconnected)
		} else {
			s.toState(StateRecovering)
		}
		return Pending, err
	}
	if r == OK {
		s.stat.PacketSent()
	}
	return r, nil
}

// Receive returns one inbound message while Connected, nil otherwise.
func (s *Session) Receive() []byte {
	if s.state != StateConnected {
		return nil
	}
	return s.transport.Receive()
}

func (s *Session) pollConnect(ctx context.Context) {
	r, err := s.transport.Connect(ctx)
	switch {
	case err != nil:
		code, action := Classify(err)
		s.reportError(code, "connect", err)
		s.stat.PacketError(uint32(code))
		s.backoff.Failure()
		if action == ActionReconfig {
			s.needConfig = true
		}
		s.toState(StateDisconnected)

	case r == OK:
		s.backoff.Reset()
		s.toState(StateConnected)

	default: // Pending
		if time.Duration(s.now()-s.connectStart) >= s.cfg.ConnectTimeout {
			s.reportError(0, "connect timeout", nil)
			s.stat.PacketError(0)
			s.backoff.Failure()
			s.toState(StateDisconnected)
		}
	}
}

func (s *Session) toState(next State) {
	if s.state == next {
		return
	}
	s.log.Debugf("session %s -> %s", s.state, next)
	s.state = next
	if s.onState != nil {
		s.onState(next)
	}
}

func (s *Session) reportError(code int, context string, err error) {
	if err != nil {
		context = context + ": " + err.Error()
	}
	s.diag.ReportError(code, time.Unix(0, s.now()), context)
}
