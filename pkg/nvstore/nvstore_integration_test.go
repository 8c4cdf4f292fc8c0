//go:build integration

package nvstore

import (
	"testing"

	"github.com/rf4ce/remoti/internal/testutil"
)

type sample struct {
	FrameCounter uint32 `json:"frame_counter"`
	ShortAddr    uint16 `json:"short_addr"`
}

func TestPutGetRoundTrip(t *testing.T) {
	testutil.RequireRedis(t)
	testutil.FlushDB(t, 0)

	s := Open(testutil.RedisAddr(), 0)
	defer s.Close()

	in := sample{FrameCounter: 42, ShortAddr: 0xBEEF}
	if err := s.Put(ItemPairingTable, "0", in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var out sample
	found, err := s.Get(ItemPairingTable, "0", &out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() found = false, want true")
	}
	if out != in {
		t.Errorf("Get() = %+v, want %+v", out, in)
	}
}

func TestGetMissingFieldNotFound(t *testing.T) {
	testutil.RequireRedis(t)
	testutil.FlushDB(t, 0)

	s := Open(testutil.RedisAddr(), 0)
	defer s.Close()

	var out sample
	found, err := s.Get(ItemPairingTable, "99", &out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Get() found = true for an unwritten field, want false")
	}
}

func TestDeleteAndFields(t *testing.T) {
	testutil.RequireRedis(t)
	testutil.FlushDB(t, 0)

	s := Open(testutil.RedisAddr(), 0)
	defer s.Close()

	for _, slot := range []string{"0", "1", "2"} {
		if err := s.Put(ItemPairingTable, slot, sample{FrameCounter: 1}); err != nil {
			t.Fatalf("Put(%s) error = %v", slot, err)
		}
	}
	if err := s.Delete(ItemPairingTable, "1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	fields, err := s.Fields(ItemPairingTable)
	if err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	if len(fields) != 2 {
		t.Errorf("Fields() = %v, want 2 remaining", fields)
	}
}

func TestClearItem(t *testing.T) {
	testutil.RequireRedis(t)
	testutil.FlushDB(t, 0)

	s := Open(testutil.RedisAddr(), 0)
	defer s.Close()

	if err := s.Put(ItemNIB, "singleton", sample{FrameCounter: 7}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.ClearItem(ItemNIB); err != nil {
		t.Fatalf("ClearItem() error = %v", err)
	}
	fields, err := s.Fields(ItemNIB)
	if err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("Fields() after ClearItem = %v, want empty", fields)
	}
}
