package relationships

import (
	"reflect"
	"testing"
)

func TestStore_SetAndAdd(t *testing.T) {
	s := NewStore()
	s.SetInitial("npc_ash", 10)
	if s.Get("npc_ash") != 10 {
		t.Fatalf("initial = %d", s.Get("npc_ash"))
	}
	if v := s.Add("npc_ash", 5); v != 15 || s.Get("npc_ash") != 15 {
		t.Fatalf("after add = %d", v)
	}
	if s.Get("npc_unknown") != 0 {
		t.Fatalf("unknown character should read 0")
	}
}

func TestStore_Bounds(t *testing.T) {
	s := NewStore()
	if v := s.Add("npc_jen", -4); v != MinAffection {
		t.Fatalf("floor: got %d", v)
	}
	s.SetInitial("npc_max", 5000)
	if s.Get("npc_max") != MaxAffection {
		t.Fatalf("ceiling: got %d", s.Get("npc_max"))
	}
}

func TestStore_SnapshotRestore(t *testing.T) {
	s := NewStore()
	s.SetInitial("npc_jen", 20)
	s.SetInitial("npc_ash", 3)
	snap := s.Snapshot()

	s.Add("npc_jen", 100) // snapshot must be a copy

	other := NewStore()
	other.SetInitial("npc_stale", 1)
	other.Restore(snap)
	if other.Get("npc_jen") != 20 || other.Get("npc_stale") != 0 {
		t.Fatalf("restore mismatch: %v", other.Snapshot())
	}
	if !reflect.DeepEqual(other.IDs(), []string{"npc_ash", "npc_jen"}) {
		t.Fatalf("ids = %v", other.IDs())
	}
}
