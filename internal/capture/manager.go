package capture

import "sync"

// Manager tracks one monitorProducer per monitor index, creating them lazily
// on first reader and tearing them down when the last reader detaches.
type Manager struct {
	mu        sync.Mutex
	backend   Backend
	producers map[int]*monitorProducer
}

// NewManager creates a Manager bound to the given backend. Passing nil uses
// the package default backend (the portable stub, unless a platform build
// has called SetBackend).
func NewManager(backend Backend) *Manager {
	if backend == nil {
		backend = defaultBackend
	}
	return &Manager{backend: backend, producers: make(map[int]*monitorProducer)}
}

// ListMonitors reports the monitors the backend currently sees.
func (m *Manager) ListMonitors() ([]Monitor, error) {
	return m.backend.ListMonitors()
}

// Subscribe attaches a reader to monitorIndex with the given initial
// params, starting capture if this is the first reader for that monitor.
// The returned release func must be called exactly once when the reader
// detaches.
func (m *Manager) Subscribe(monitorIndex int, params Params) (slot *FrameSlot, setParams func(Params), release func()) {
	p := m.producerFor(monitorIndex)
	p.SetParams(params)
	p.acquire()

	var once sync.Once
	return &p.slot, p.SetParams, func() {
		once.Do(p.release)
	}
}

func (m *Manager) producerFor(monitorIndex int) *monitorProducer {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.producers[monitorIndex]
	if !ok {
		p = newMonitorProducer(monitorIndex, m.backend)
		m.producers[monitorIndex] = p
	}
	return p
}
