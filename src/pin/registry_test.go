package pin

import "testing"

func TestRegistryTracksOpenSessions(t *testing.T) {
	reg := NewRegistry()
	a := newActive(t, Options{})
	b := newActive(t, Options{})
	reg.Add(a)
	reg.Add(b)
	reg.Add(a)

	if reg.Len() != 2 {
		t.Fatalf("Expected 2 sessions, got %d", reg.Len())
	}
	if got, ok := reg.Get(b.ID()); !ok || got != b {
		t.Fatal("Get should find b")
	}

	a.Close()
	if reg.Len() != 1 {
		t.Fatalf("Closed sessions leave the registry, got %d", reg.Len())
	}
	if _, ok := reg.Get(a.ID()); ok {
		t.Fatal("a should be gone")
	}
	if list := reg.List(); len(list) != 1 || list[0] != b {
		t.Fatalf("Unexpected list %v", list)
	}
}

func TestRegistryCloseAll(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 3; i++ {
		reg.Add(newActive(t, Options{}))
	}
	if n := reg.CloseAll(); n != 3 {
		t.Fatalf("Expected 3 closed, got %d", n)
	}
	if reg.Len() != 0 {
		t.Fatalf("Registry should be empty, got %d", reg.Len())
	}
}
