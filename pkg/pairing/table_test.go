package pairing

import "testing"

func TestLookupEmptySlot(t *testing.T) {
	tbl := New(4, nil)
	if _, ok := tbl.Lookup(0); ok {
		t.Error("Lookup on empty slot should report ok=false")
	}
}

func TestInstallAndLookup(t *testing.T) {
	tbl := New(4, nil)
	e := Entry{PeerShortAddr: 0x1234, FrameCounter: 5}
	if err := tbl.Install(2, e); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	got, ok := tbl.Lookup(2)
	if !ok {
		t.Fatal("Lookup() ok = false after Install")
	}
	if got.LocalRef != 2 {
		t.Errorf("LocalRef = %d, want 2 (ref must be stable once installed)", got.LocalRef)
	}
	if got.PeerShortAddr != 0x1234 || got.FrameCounter != 5 {
		t.Errorf("Lookup() = %+v, unexpected", got)
	}
}

func TestInstallOutOfRange(t *testing.T) {
	tbl := New(4, nil)
	if err := tbl.Install(10, Entry{}); err == nil {
		t.Error("Install() with out-of-range ref should error")
	}
}

func TestFrameCounterMonotonicityOnReinstall(t *testing.T) {
	tbl := New(4, nil)
	addr := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := tbl.Install(0, Entry{PeerExtAddr: addr, FrameCounter: 10}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if err := tbl.Install(0, Entry{PeerExtAddr: addr, FrameCounter: 5}); err == nil {
		t.Error("re-installing the same peer with a lower frame counter must fail (monotonicity invariant)")
	}
	if err := tbl.Install(0, Entry{PeerExtAddr: addr, FrameCounter: 11}); err != nil {
		t.Errorf("advancing frame counter on reinstall should succeed: %v", err)
	}
}

func TestAdvanceFrameCounterRejectsDecrease(t *testing.T) {
	tbl := New(4, nil)
	if err := tbl.Install(0, Entry{FrameCounter: 10}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if err := tbl.AdvanceFrameCounter(0, 9); err == nil {
		t.Error("AdvanceFrameCounter should reject a decreasing counter")
	}
	if err := tbl.AdvanceFrameCounter(0, 20); err != nil {
		t.Errorf("AdvanceFrameCounter should accept an increasing counter: %v", err)
	}
	got, _ := tbl.Lookup(0)
	if got.FrameCounter != 20 {
		t.Errorf("FrameCounter = %d, want 20", got.FrameCounter)
	}
}

func TestClearInvokesHooksAndFreesSlot(t *testing.T) {
	tbl := New(4, nil)
	if err := tbl.Install(1, Entry{}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	var hookRef uint8 = InvalidRef
	tbl.RegisterClearHook(func(ref uint8) { hookRef = ref })

	if err := tbl.Clear(1); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := tbl.Lookup(1); ok {
		t.Error("Lookup() after Clear should report ok=false")
	}
	if hookRef != 1 {
		t.Errorf("clear hook invoked with ref=%d, want 1", hookRef)
	}
}

func TestIterActiveAndFindFreeRef(t *testing.T) {
	tbl := New(3, nil)
	tbl.Install(0, Entry{})
	tbl.Install(2, Entry{})

	active := tbl.IterActive()
	if len(active) != 2 {
		t.Fatalf("IterActive() = %d entries, want 2", len(active))
	}

	ref, ok := tbl.FindFreeRef()
	if !ok || ref != 1 {
		t.Errorf("FindFreeRef() = (%d, %v), want (1, true)", ref, ok)
	}
}

func TestFindFreeRefTableFull(t *testing.T) {
	tbl := New(1, nil)
	tbl.Install(0, Entry{})
	if _, ok := tbl.FindFreeRef(); ok {
		t.Error("FindFreeRef() on a full table should report ok=false")
	}
}
