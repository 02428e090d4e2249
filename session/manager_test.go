package session

import (
	"sync"
	"testing"
)

// recordingVault records Lock calls so tests can assert ordering against
// emitted events.
type recordingVault struct {
	mu    sync.Mutex
	locks int
}

func (v *recordingVault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.locks++
}

func (v *recordingVault) lockCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.locks
}

func newTestManager() (*Manager, *ManualSource, *recordingVault) {
	source := NewManualSource()
	vault := &recordingVault{}
	return NewManager(source, vault), source, vault
}

func TestBackgroundLocksVault(t *testing.T) {
	m, source, vault := newTestManager()
	m.Start()
	defer m.Stop()

	var events []EventType
	m.AddListener(func(ev Event) {
		events = append(events, ev.Type)
	})

	source.Emit(AppStateBackground)

	if vault.lockCount() != 1 {
		t.Errorf("expected 1 lock, got %d", vault.lockCount())
	}
	want := []EventType{EventBackground, EventLocked}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(events), events)
	}
	for i, typ := range want {
		if events[i] != typ {
			t.Errorf("event %d: got %s, want %s", i, events[i], typ)
		}
	}
}

func TestLockedEmittedAfterVaultLocked(t *testing.T) {
	m, source, vault := newTestManager()
	m.Start()
	defer m.Stop()

	var lockedBeforeEvent bool
	m.AddListener(func(ev Event) {
		if ev.Type == EventLocked {
			lockedBeforeEvent = vault.lockCount() == 1
		}
	})

	source.Emit(AppStateBackground)

	if !lockedBeforeEvent {
		t.Error("locked event delivered before the vault was actually locked")
	}
}

func TestEmitIsSynchronous(t *testing.T) {
	m, source, vault := newTestManager()
	m.Start()
	defer m.Stop()

	source.Emit(AppStateInactive)

	// By the time Emit returns the key must already be gone.
	if vault.lockCount() != 1 {
		t.Error("Emit returned before the vault was locked")
	}
}

func TestRepeatedBackgroundLocksOnce(t *testing.T) {
	m, source, vault := newTestManager()
	m.Start()
	defer m.Stop()

	var events []EventType
	m.AddListener(func(ev Event) {
		events = append(events, ev.Type)
	})

	source.Emit(AppStateBackground)
	source.Emit(AppStateInactive)
	source.Emit(AppStateBackground)

	if vault.lockCount() != 1 {
		t.Errorf("expected 1 lock for a sustained background stay, got %d", vault.lockCount())
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d: %v", len(events), events)
	}
}

func TestForegroundDoesNotUnlock(t *testing.T) {
	m, source, vault := newTestManager()
	m.Start()
	defer m.Stop()

	var events []EventType
	m.AddListener(func(ev Event) {
		events = append(events, ev.Type)
	})

	source.Emit(AppStateBackground)
	source.Emit(AppStateForeground)

	if vault.lockCount() != 1 {
		t.Errorf("expected 1 lock, got %d", vault.lockCount())
	}
	want := []EventType{EventBackground, EventLocked, EventForeground}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i, typ := range want {
		if events[i] != typ {
			t.Errorf("event %d: got %s, want %s", i, events[i], typ)
		}
	}
}

func TestForegroundWithoutBackgroundIgnored(t *testing.T) {
	m, source, _ := newTestManager()
	m.Start()
	defer m.Stop()

	var events []EventType
	m.AddListener(func(ev Event) {
		events = append(events, ev.Type)
	})

	source.Emit(AppStateForeground)

	if len(events) != 0 {
		t.Errorf("foreground at startup must not emit, got %v", events)
	}
}

func TestTriggerLock(t *testing.T) {
	m, _, vault := newTestManager()
	m.Start()
	defer m.Stop()

	var events []EventType
	m.AddListener(func(ev Event) {
		events = append(events, ev.Type)
	})

	m.TriggerLock()

	if vault.lockCount() != 1 {
		t.Errorf("expected 1 lock, got %d", vault.lockCount())
	}
	if len(events) != 1 || events[0] != EventLocked {
		t.Errorf("expected a single locked event, got %v", events)
	}
}

func TestRemoveListener(t *testing.T) {
	m, source, _ := newTestManager()
	m.Start()
	defer m.Stop()

	var first, second int
	remove := m.AddListener(func(ev Event) { first++ })
	m.AddListener(func(ev Event) { second++ })

	source.Emit(AppStateBackground)
	remove()
	source.Emit(AppStateForeground)

	if first != 2 {
		t.Errorf("removed listener saw %d events, want 2", first)
	}
	if second != 3 {
		t.Errorf("remaining listener saw %d events, want 3", second)
	}

	// Removing twice is harmless.
	remove()
}

func TestPanickingListenerIsolated(t *testing.T) {
	m, source, _ := newTestManager()
	m.Start()
	defer m.Stop()

	var delivered int
	m.AddListener(func(ev Event) { panic("listener bug") })
	m.AddListener(func(ev Event) { delivered++ })

	source.Emit(AppStateBackground)

	if delivered != 2 {
		t.Errorf("listener after the panicking one saw %d events, want 2", delivered)
	}
}

func TestEventFieldsPopulated(t *testing.T) {
	m, source, _ := newTestManager()
	m.Start()
	defer m.Stop()

	var events []Event
	m.AddListener(func(ev Event) {
		events = append(events, ev)
	})

	source.Emit(AppStateBackground)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID == "" || events[1].ID == "" {
		t.Error("event IDs must be populated")
	}
	if events[0].ID == events[1].ID {
		t.Error("event IDs must be unique per emission")
	}
	if events[0].Timestamp.IsZero() || events[1].Timestamp.IsZero() {
		t.Error("event timestamps must be populated")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	m, source, vault := newTestManager()

	m.Start()
	m.Start()
	m.Stop()
	m.Stop()

	source.Emit(AppStateBackground)
	if vault.lockCount() != 0 {
		t.Error("stopped manager still handled transitions")
	}

	m.Start()
	source.Emit(AppStateBackground)
	if vault.lockCount() != 1 {
		t.Errorf("restarted manager missed transition, locks=%d", vault.lockCount())
	}
	m.Stop()
}
