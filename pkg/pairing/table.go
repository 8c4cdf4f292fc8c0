// Package pairing implements the pairing table: a fixed-size slotted array
// of entry records, NV-backed through pkg/nvstore, with sentinel/overwrite/
// clear semantics and a frame-counter monotonicity invariant.
package pairing

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/rf4ce/remoti/internal/obs"
	"github.com/rf4ce/remoti/pkg/nvstore"
)

// InvalidRef is the sentinel pairing-reference value marking an empty slot.
const InvalidRef uint8 = 0xFF

// Entry is the central persistent record of a paired peer.
type Entry struct {
	LocalRef              uint8    `json:"local_ref"`
	PeerExtAddr           [8]byte  `json:"peer_ext_addr"`
	PeerShortAddr         uint16   `json:"peer_short_addr"`
	PeerPANID             uint16   `json:"peer_pan_id"`
	LogicalChannel        uint8    `json:"logical_channel"`
	FrameCounter          uint32   `json:"frame_counter"`
	LinkKey               [16]byte `json:"link_key"`
	RecipientCapabilities uint8    `json:"recipient_capabilities"`
	ProfileDiscovery      uint32   `json:"profile_discovery"`
	DeviceTypeList        []uint8  `json:"device_type_list"`
	VendorID              uint16   `json:"vendor_id"`
}

// Table is the fixed-capacity slotted pairing table.
type Table struct {
	mu      sync.RWMutex
	slots   []*Entry // nil == empty slot
	store   *nvstore.Store
	onClear []func(ref uint8)
}

// New creates a pairing table with the given capacity (default 10),
// NV-backed through store.
func New(capacity int, store *nvstore.Store) *Table {
	if capacity <= 0 {
		capacity = 10
	}
	return &Table{
		slots: make([]*Entry, capacity),
		store: store,
	}
}

// Capacity returns the table's fixed slot count.
func (t *Table) Capacity() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// RegisterClearHook registers a callback invoked whenever a slot is
// cleared, so co-layers owning parallel per-slot state (ZID pair_info's
// adapter_disc/cfg_complete_disc bitsets) can stay in sync without
// pkg/pairing depending on pkg/zid.
func (t *Table) RegisterClearHook(fn func(ref uint8)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClear = append(t.onClear, fn)
}

// Lookup returns the entry at ref, or ok=false if the slot is unused
// (NO_PAIRING).
func (t *Table) Lookup(ref uint8) (entry *Entry, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(ref) >= len(t.slots) || t.slots[ref] == nil {
		return nil, false
	}
	cp := *t.slots[ref]
	return &cp, true
}

// Install writes (overwriting) the entry at ref. A fresh install (no prior
// entry, or a different peer extended address) resets the frame counter
// lineage; re-installing the same peer onto the same ref must not move
// the frame counter backwards.
func (t *Table) Install(ref uint8, entry Entry) error {
	if int(ref) >= len(t.slots) {
		return fmt.Errorf("pairing ref %d out of range (capacity %d)", ref, len(t.slots))
	}
	entry.LocalRef = ref

	t.mu.Lock()
	if existing := t.slots[ref]; existing != nil && existing.PeerExtAddr == entry.PeerExtAddr {
		if entry.FrameCounter < existing.FrameCounter {
			t.mu.Unlock()
			return fmt.Errorf("pairing ref %d: frame counter must be non-decreasing (have %d, got %d)",
				ref, existing.FrameCounter, entry.FrameCounter)
		}
	}
	cp := entry
	t.slots[ref] = &cp
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Put(nvstore.ItemPairingTable, strconv.Itoa(int(ref)), entry); err != nil {
			return err
		}
	}
	obs.WithPairing(ref).Debug("pairing entry installed")
	return nil
}

// AdvanceFrameCounter enforces monotonic, non-decreasing frame-counter
// advance for an existing entry, used on every NLDE-DATA/NLME-PAIR
// exchange that increments the peer's frame counter.
func (t *Table) AdvanceFrameCounter(ref uint8, counter uint32) error {
	t.mu.Lock()
	if int(ref) >= len(t.slots) || t.slots[ref] == nil {
		t.mu.Unlock()
		return fmt.Errorf("pairing ref %d: no pairing (NO_PAIRING)", ref)
	}
	if counter < t.slots[ref].FrameCounter {
		t.mu.Unlock()
		return fmt.Errorf("pairing ref %d: frame counter must be non-decreasing (have %d, got %d)",
			ref, t.slots[ref].FrameCounter, counter)
	}
	t.slots[ref].FrameCounter = counter
	cp := *t.slots[ref]
	t.mu.Unlock()

	if t.store != nil {
		return t.store.Put(nvstore.ItemPairingTable, strconv.Itoa(int(ref)), cp)
	}
	return nil
}

// Clear frees the slot at ref, and invokes every registered clear hook
// (e.g. to clear ZID pair_info's adapter_disc/cfg_complete_disc bits for
// that ref).
func (t *Table) Clear(ref uint8) error {
	t.mu.Lock()
	if int(ref) >= len(t.slots) {
		t.mu.Unlock()
		return fmt.Errorf("pairing ref %d out of range (capacity %d)", ref, len(t.slots))
	}
	t.slots[ref] = nil
	hooks := append([]func(uint8){}, t.onClear...)
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Delete(nvstore.ItemPairingTable, strconv.Itoa(int(ref))); err != nil {
			return err
		}
	}
	for _, hook := range hooks {
		hook(ref)
	}
	obs.WithPairing(ref).Debug("pairing entry cleared")
	return nil
}

// IterActive enumerates occupied slots in ascending ref order.
func (t *Table) IterActive() []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Entry
	for _, e := range t.slots {
		if e != nil {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// FindFreeRef returns the first unused slot, or ok=false if the table is
// full (NO_ORG_CAPACITY/NO_REC_CAPACITY at the caller).
func (t *Table) FindFreeRef() (ref uint8, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, e := range t.slots {
		if e == nil {
			return uint8(i), true
		}
	}
	return InvalidRef, false
}
