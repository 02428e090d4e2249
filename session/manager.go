package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Locker is the vault surface the session manager drives. Lock must be
// idempotent and must not return until the key material has been cleared.
type Locker interface {
	Lock()
}

// Manager locks the vault when the application leaves the foreground and
// publishes session events to its listeners. Event order is fixed for a
// background transition: background first, then locked after the vault has
// actually been locked. Returning to the foreground emits foreground only;
// the vault stays locked until the user re-enters the PIN.
type Manager struct {
	source Source
	vault  Locker

	mu           sync.Mutex
	active       bool
	inBackground bool
	cancel       func()
	nextID       int
	listeners    map[int]func(Event)
}

// NewManager creates a session manager over the given lifecycle source and
// vault. Call Start to begin observing transitions.
func NewManager(source Source, vault Locker) *Manager {
	return &Manager{
		source:    source,
		vault:     vault,
		listeners: make(map[int]func(Event)),
	}
}

// Start subscribes to the lifecycle source. Idempotent.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return
	}
	m.active = true
	m.inBackground = false
	m.cancel = m.source.Subscribe(m.handleTransition)
	log.Info().Msg("Session manager started")
}

// Stop detaches from the lifecycle source. The vault is left in whatever
// state it is in. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return
	}
	m.active = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	log.Info().Msg("Session manager stopped")
}

// AddListener registers a session event listener and returns a function
// that removes it. Listeners are invoked synchronously in emission order;
// a panicking listener is isolated and does not disturb the others.
func (m *Manager) AddListener(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// TriggerLock locks the vault on demand (user-initiated lock button,
// policy timer) and emits the locked event, without a lifecycle transition.
func (m *Manager) TriggerLock() {
	m.vault.Lock()
	m.emit(EventLocked)
}

func (m *Manager) handleTransition(state AppState) {
	switch state {
	case AppStateBackground, AppStateInactive:
		m.mu.Lock()
		already := m.inBackground
		m.inBackground = true
		m.mu.Unlock()
		if already {
			return
		}
		m.emit(EventBackground)
		m.vault.Lock()
		m.emit(EventLocked)
	case AppStateForeground:
		m.mu.Lock()
		wasBackground := m.inBackground
		m.inBackground = false
		m.mu.Unlock()
		if !wasBackground {
			return
		}
		m.emit(EventForeground)
	default:
		log.Warn().Str("state", string(state)).Msg("Ignoring unknown app state")
	}
}

// emit delivers ev to a snapshot of the current listeners. Listeners run
// outside the manager mutex so they may add or remove listeners; changes
// take effect from the next emission.
func (m *Manager) emit(eventType EventType) {
	ev := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}

	m.mu.Lock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("event", string(ev.Type)).Msg("Session listener panicked")
				}
			}()
			fn(ev)
		}()
	}
}
