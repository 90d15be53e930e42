package session

import (
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func noopEmitter() Emitter {
	return EmitterFunc(func(interface{}) {})
}

func TestRegistry_CreateLookupRemove(t *testing.T) {
	reg := NewRegistry()

	sess, err := reg.Create("conn-1", "device-1", Config{}, &scriptedRecognizer{}, noopEmitter(), zap.NewNop())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.State() != StateIdle {
		t.Errorf("new session should be idle, got %s", sess.State())
	}

	got, ok := reg.Lookup("conn-1")
	if !ok || got != sess {
		t.Error("Lookup should return the created session")
	}

	if _, ok := reg.Lookup("conn-2"); ok {
		t.Error("Lookup of unknown identity should miss")
	}

	reg.Remove("conn-1")
	if _, ok := reg.Lookup("conn-1"); ok {
		t.Error("session still visible after Remove")
	}
	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Len())
	}
}

func TestRegistry_DuplicateIdentityRejected(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Create("conn-1", "device-1", Config{}, &scriptedRecognizer{}, noopEmitter(), zap.NewNop()); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := reg.Create("conn-1", "device-2", Config{}, &scriptedRecognizer{}, noopEmitter(), zap.NewNop()); err == nil {
		t.Error("duplicate identity should be rejected")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			if _, err := reg.Create(id, "device", Config{}, &scriptedRecognizer{}, noopEmitter(), zap.NewNop()); err != nil {
				t.Errorf("Create %s failed: %v", id, err)
			}
			if _, ok := reg.Lookup(id); !ok {
				t.Errorf("Lookup %s missed", id)
			}
		}(i)
	}
	wg.Wait()

	if reg.Len() != 20 {
		t.Errorf("expected 20 sessions, got %d", reg.Len())
	}

	seen := 0
	reg.ForEach(func(*Session) { seen++ })
	if seen != 20 {
		t.Errorf("ForEach visited %d of 20 sessions", seen)
	}
}
