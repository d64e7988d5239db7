package sim

import "sync"

// Memory is a register-file target. The first byte of a write selects the
// register; following bytes are stored from there on and reads continue
// from the selected register. The pointer wraps at 256.
type Memory struct {
	mu         sync.Mutex
	data       [256]byte
	ptr        uint8
	first      bool
	cur        []byte
	writes     [][]byte
	nackWrites bool
}

var _ Target = (*Memory)(nil)

// NewMemory returns a target holding init from register 0 on.
func NewMemory(init []byte) *Memory {
	m := &Memory{}
	copy(m.data[:], init)
	return m
}

// SetNackWrites makes the target refuse every written byte while still
// acknowledging its address.
func (m *Memory) SetNackWrites(nack bool) {
	m.mu.Lock()
	m.nackWrites = nack
	m.mu.Unlock()
}

func (m *Memory) Start(read bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !read {
		m.first = true
		m.cur = []byte{}
	}
	return true
}

func (m *Memory) Write(b byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nackWrites {
		return false
	}
	m.cur = append(m.cur, b)
	if m.first {
		m.ptr = b
		m.first = false
		return true
	}
	m.data[m.ptr] = b
	m.ptr++
	return true
}

func (m *Memory) Read() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.data[m.ptr]
	m.ptr++
	return b
}

func (m *Memory) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		m.writes = append(m.writes, m.cur)
		m.cur = nil
	}
}

// Writes returns the bytes of every completed write transaction.
func (m *Memory) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.writes...)
}

// Register returns the stored value of register r.
func (m *Memory) Register(r uint8) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[r]
}
