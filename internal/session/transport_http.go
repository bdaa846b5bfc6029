package session

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/krti/uavcore/internal/telemetry"
	"github.com/krti/uavcore/log2"
)

const defaultHTTPTimeout = 10 * time.Second

// inbound queue cap; ground station sends commands rarely
const httpInboundMax = 4

type HTTPOptions struct {
	Endpoint     string // telemetry POST URL
	Timeout      time.Duration
	RoundTripper http.RoundTripper // tests
}

// HTTPTransport posts telemetry frames to the ground endpoint. The
// response body may carry one command envelope which is queued for
// Receive. Requests run in a background worker; Connect/Send only
// start work and poll outcomes, satisfying the non-blocking contract.
type HTTPTransport struct {
	log      *log2.Log
	c        *http.Client
	endpoint string

	mu        sync.Mutex
	connected bool
	probe     *outcome
	send      *outcome
	sendBuf   [telemetry.TelemetryMax]byte
	inbound   [][]byte
}

type outcome struct {
	done bool
	err  error
}

var _ Transport = (*HTTPTransport)(nil)

func NewHTTP(log *log2.Log, opt HTTPOptions) *HTTPTransport {
	if opt.Endpoint == "" {
		log.Fatal("code error http transport endpoint empty")
	}
	if opt.Timeout == 0 {
		opt.Timeout = defaultHTTPTimeout
	}
	return &HTTPTransport{
		log:      log,
		endpoint: opt.Endpoint,
		c: &http.Client{
			Timeout:   opt.Timeout,
			Transport: opt.RoundTripper,
		},
	}
}

// Connect probes endpoint reachability with a HEAD request.
func (t *HTTPTransport) Connect(context.Context) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		return OK, nil
	}
	if t.probe == nil {
		t.probe = &outcome{}
		go t.doProbe(t.probe)
		return Pending, nil
	}
	if !t.probe.done {
		return Pending, nil
	}
	err := t.probe.err
	t.probe = nil
	if err != nil {
		return Pending, err
	}
	t.connected = true
	return OK, nil
}

func (t *HTTPTransport) Send(_ context.Context, payload []byte) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.send == nil {
		if len(payload) > len(t.sendBuf) {
			return Pending, errors.Errorf("payload len=%d over cap", len(payload))
		}
		n := copy(t.sendBuf[:], payload)
		t.send = &outcome{}
		go t.doSend(t.send, t.sendBuf[:n])
		return Pending, nil
	}
	if !t.send.done {
		return Pending, nil
	}
	err := t.send.err
	t.send = nil
	if err != nil {
		if _, ok := err.(*StatusError); !ok {
			// network level failure, reprobe on next connect
			t.connected = false
		}
		return Pending, err
	}
	return OK, nil
}

func (t *HTTPTransport) Receive() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inbound) == 0 {
		return nil
	}
	b := t.inbound[0]
	t.inbound = t.inbound[1:]
	return b
}

func (t *HTTPTransport) Close() error {
	t.c.CloseIdleConnections()
	return nil
}

func (t *HTTPTransport) doProbe(o *outcome) {
	resp, err := t.c.Head(t.endpoint)
	if err == nil {
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			err = &StatusError{Code: resp.StatusCode}
		}
	}
	t.mu.Lock()
	o.err = err
	o.done = true
	t.mu.Unlock()
}

func (t *HTTPTransport) doSend(o *outcome, payload []byte) {
	var body []byte
	resp, err := t.c.Post(t.endpoint, "application/json", bytes.NewReader(payload))
	if err == nil {
		if resp.StatusCode >= 300 {
			err = &StatusError{Code: resp.StatusCode}
			_ = resp.Body.Close()
		} else {
			body, err = io.ReadAll(io.LimitReader(resp.Body, telemetry.CommandMax+1))
			_ = resp.Body.Close()
			err = errors.Annotate(err, "response body")
		}
	}
	t.mu.Lock()
	if err == nil && len(body) > 0 {
		if len(t.inbound) < httpInboundMax {
			t.inbound = append(t.inbound, body)
		} else {
			t.log.Errorf("http inbound queue full, command dropped")
		}
	}
	o.err = err
	o.done = true
	t.mu.Unlock()
}
