package agent

import (
	"fmt"
	"sync"
	"testing"
)

func TestTaskRegistryAddRemove(t *testing.T) {
	r := NewTaskRegistry()

	key := r.Add("U123", "how do I reset my password?")
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	entries := r.Snapshot()
	if len(entries) != 1 || entries[0].Requester != "U123" {
		t.Errorf("Snapshot = %+v", entries)
	}

	r.Remove(key)
	if r.Len() != 0 {
		t.Errorf("Len = %d after remove, want 0", r.Len())
	}

	// Removing again is a no-op.
	r.Remove(key)
}

func TestTaskRegistryDuplicateKeyReplaces(t *testing.T) {
	r := NewTaskRegistry()

	r.Add("U123", "same question")
	r.Add("U123", "same question")
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1 for duplicate key", r.Len())
	}

	r.Add("U456", "same question")
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2 for different requesters", r.Len())
	}
}

func TestTaskRegistryConcurrentAccess(t *testing.T) {
	r := NewTaskRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := r.Add("user", fmt.Sprintf("question %d", i))
			r.Snapshot()
			r.Remove(key)
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Len = %d after concurrent add/remove, want 0", r.Len())
	}
}
