package session

import (
	"context"
	"sync"
)

// MockTransport scripts transport behavior for tests. Queues are
// consumed in order; an empty queue means instant success.
type MockTransport struct {
	mu sync.Mutex

	connectScript []interface{} // error | Result
	sendScript    []interface{}
	inbound       [][]byte
	Sent          [][]byte
	Connects      int
	closed        bool
}

var _ Transport = (*MockTransport)(nil)

func (m *MockTransport) ScriptConnect(steps ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectScript = append(m.connectScript, steps...)
}

func (m *MockTransport) ScriptSend(steps ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendScript = append(m.sendScript, steps...)
}

func (m *MockTransport) QueueInbound(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound = append(m.inbound, b)
}

func (m *MockTransport) Connect(context.Context) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Connects++
	return m.step(&m.connectScript)
}

func (m *MockTransport) Send(_ context.Context, payload []byte) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.step(&m.sendScript)
	if err == nil && r == OK {
		m.Sent = append(m.Sent, append([]byte(nil), payload...))
	}
	return r, err
}

func (m *MockTransport) Receive() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inbound) == 0 {
		return nil
	}
	b := m.inbound[0]
	m.inbound = m.inbound[1:]
	return b
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockTransport) step(script *[]interface{}) (Result, error) {
	if len(*script) == 0 {
		return OK, nil
	}
	head := (*script)[0]
	*script = (*script)[1:]
	switch v := head.(type) {
	case error:
		return Pending, v
	case Result:
		return v, nil
	}
	return OK, nil
}
