package desktop

import (
	"errors"
	"sync"

	"github.com/xpcollage/server/internal/domain"
)

var ErrNilStore = errors.New("window store is required")

// Manager is the command and subscription surface of one desktop. Commands are serialized:
// each runs to completion against the WindowStore and publishes exactly one new Snapshot.
type Manager struct {
	mu      sync.Mutex
	store   *domain.WindowStore
	current Snapshot
	subs    map[chan Snapshot]struct{}
	closed  bool
}

func NewManager(store *domain.WindowStore) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	m := &Manager{
		store: store,
		subs:  make(map[chan Snapshot]struct{}),
	}
	m.current = m.snapshot(0)

	return m, nil
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}

// Subscribe returns a channel that immediately holds the current snapshot and then receives
// the newest snapshot after every command. A slow reader skips intermediate snapshots but
// never misses the latest one. cancel closes the channel and may be called more than once.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		close(ch)
		return ch, func() {}
	}

	ch <- m.current
	m.subs[ch] = struct{}{}

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
	}

	return ch, cancel
}

// Close ends every subscription. Commands keep working but are no longer published.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for ch := range m.subs {
		delete(m.subs, ch)
		close(ch)
	}
}

func (m *Manager) AddWindow(source, title string, aspectRatio float64) (string, Snapshot) {
	var id string
	snapshot := m.mutate(func(s *domain.WindowStore) {
		id = s.Create(source, title, aspectRatio)
	})

	return id, snapshot
}

func (m *Manager) RemoveWindow(id string) Snapshot {
	_, _, snapshot := m.removeWindow(id)
	return snapshot
}

func (m *Manager) removeWindow(id string) (domain.Window, bool, Snapshot) {
	var (
		removed domain.Window
		ok      bool
	)
	snapshot := m.mutate(func(s *domain.WindowStore) {
		removed, ok = s.Get(id)
		s.Remove(id)
	})

	return removed, ok, snapshot
}

func (m *Manager) PatchWindow(id string, patch domain.WindowPatch) Snapshot {
	return m.mutate(func(s *domain.WindowStore) {
		s.Patch(id, patch)
	})
}

// MoveWindow applies the final position of a drag gesture.
func (m *Manager) MoveWindow(id string, position domain.Position) Snapshot {
	return m.PatchWindow(id, domain.WindowPatch{Position: &position})
}

// ResizeWindow applies the final frame of a resize gesture. Only the width is taken from size,
// the height always follows the window's original aspect ratio.
func (m *Manager) ResizeWindow(id string, size domain.Size, position domain.Position) Snapshot {
	return m.PatchWindow(id, domain.WindowPatch{Size: &size, Position: &position})
}

func (m *Manager) SetMuted(id string, muted bool) Snapshot {
	return m.PatchWindow(id, domain.WindowPatch{IsMuted: &muted})
}

func (m *Manager) SetPlaying(id string, playing bool) Snapshot {
	return m.PatchWindow(id, domain.WindowPatch{IsPlaying: &playing})
}

func (m *Manager) Focus(id string) Snapshot {
	return m.mutate(func(s *domain.WindowStore) {
		s.Focus(id)
	})
}

func (m *Manager) Minimize(id string) Snapshot {
	return m.mutate(func(s *domain.WindowStore) {
		s.Minimize(id)
	})
}

func (m *Manager) Restore(id string) Snapshot {
	return m.mutate(func(s *domain.WindowStore) {
		s.Restore(id)
	})
}

func (m *Manager) ArrangeVertically() Snapshot {
	return m.mutate(func(s *domain.WindowStore) {
		s.ArrangeVertically()
	})
}

func (m *Manager) SetViewport(viewport domain.Viewport) Snapshot {
	return m.mutate(func(s *domain.WindowStore) {
		s.SetViewport(viewport)
	})
}

func (m *Manager) mutate(fn func(*domain.WindowStore)) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn(m.store)
	m.current = m.snapshot(m.current.Version + 1)
	m.publish(m.current)

	return m.current
}

func (m *Manager) snapshot(version uint64) Snapshot {
	return Snapshot{
		Version:   version,
		Windows:   m.store.Windows(),
		FocusedID: m.store.FocusedID(),
		Viewport:  m.store.Viewport(),
	}
}

// publish must be called with mu held. It is the only sender on subscriber channels, so after
// draining a stale value the send cannot block.
func (m *Manager) publish(snapshot Snapshot) {
	for ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}
