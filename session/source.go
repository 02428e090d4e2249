package session

import "sync"

// Source delivers application lifecycle transitions to a subscriber. The
// returned cancel function detaches the subscriber; it is safe to call more
// than once.
type Source interface {
	Subscribe(fn func(AppState)) (cancel func())
}

// ManualSource is a Source driven by explicit Emit calls. The mobile host
// bridges platform lifecycle callbacks into it; tests drive it directly.
// Emit is synchronous: it returns only after the subscriber has processed
// the transition.
type ManualSource struct {
	mu sync.Mutex
	fn func(AppState)
}

// NewManualSource creates an unsubscribed manual source
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// Subscribe registers fn as the single subscriber, replacing any prior one.
func (m *ManualSource) Subscribe(fn func(AppState)) func() {
	m.mu.Lock()
	m.fn = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.fn = nil
	}
}

// Emit delivers a lifecycle transition to the subscriber, if any.
func (m *ManualSource) Emit(state AppState) {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}
