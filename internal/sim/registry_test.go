package sim

import "testing"

func TestRegistryCreateAndLookup(t *testing.T) {
	reg := NewRegistry()

	if reg.Running("room-1") {
		t.Fatal("empty registry reports room running")
	}
	if !reg.create(&RoomState{RoomID: "room-1", Round: 3}) {
		t.Fatal("create failed on fresh registry")
	}
	if !reg.Running("room-1") {
		t.Fatal("room not reported running after create")
	}
	if reg.Len() != 1 {
		t.Fatalf("len = %d, want 1", reg.Len())
	}

	round, ok := reg.CurrentRound("room-1")
	if !ok || round != 3 {
		t.Fatalf("CurrentRound = (%d, %v), want (3, true)", round, ok)
	}
}

func TestRegistryCreateDuplicateFails(t *testing.T) {
	reg := NewRegistry()
	if !reg.create(&RoomState{RoomID: "room-1"}) {
		t.Fatal("first create failed")
	}
	if reg.create(&RoomState{RoomID: "room-1"}) {
		t.Fatal("duplicate create succeeded")
	}
	if reg.Len() != 1 {
		t.Fatalf("len = %d, want 1", reg.Len())
	}
}

func TestRegistryDelete(t *testing.T) {
	reg := NewRegistry()
	reg.create(&RoomState{RoomID: "room-1"})
	reg.delete("room-1")

	if reg.Running("room-1") {
		t.Fatal("room still running after delete")
	}
	if _, ok := reg.CurrentRound("room-1"); ok {
		t.Fatal("CurrentRound found deleted room")
	}
	// Deleting a missing room is harmless.
	reg.delete("room-1")
}
