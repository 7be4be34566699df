package services

import (
	"reflect"
	"sync"
	"testing"
)

func TestSelectionStore_Toggle(t *testing.T) {
	store := NewSelectionStore()

	if got := store.Toggle(1, 10, 2); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Toggle() = %v, want [2]", got)
	}
	if got := store.Toggle(1, 10, 0); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Toggle() = %v, want [0 2]", got)
	}

	// Toggling an already selected option removes it
	if got := store.Toggle(1, 10, 2); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Toggle() = %v, want [0]", got)
	}

	// Selections are isolated per question and per assignment
	if got := store.Get(1, 11); len(got) != 0 {
		t.Errorf("Get(other question) = %v, want empty", got)
	}
	if got := store.Get(2, 10); len(got) != 0 {
		t.Errorf("Get(other assignment) = %v, want empty", got)
	}
}

func TestSelectionStore_Clear(t *testing.T) {
	store := NewSelectionStore()
	store.Toggle(1, 10, 0)
	store.Toggle(1, 11, 1)
	store.Toggle(2, 20, 2)

	store.Clear(1, 10)
	if got := store.Get(1, 10); len(got) != 0 {
		t.Errorf("Get() after Clear = %v, want empty", got)
	}
	if got := store.Get(1, 11); len(got) != 1 {
		t.Errorf("Clear() must not touch other questions, got %v", got)
	}

	store.ClearAssignment(1)
	if got := store.Get(1, 11); len(got) != 0 {
		t.Errorf("Get() after ClearAssignment = %v, want empty", got)
	}
	if got := store.Get(2, 20); len(got) != 1 {
		t.Errorf("ClearAssignment() must not touch other assignments, got %v", got)
	}
}

func TestSelectionStore_Concurrent(t *testing.T) {
	store := NewSelectionStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(option int) {
			defer wg.Done()
			store.Toggle(1, 10, option)
		}(i)
	}
	wg.Wait()

	if got := store.Get(1, 10); len(got) != 10 {
		t.Errorf("Get() = %v, want 10 selected options", got)
	}
}
