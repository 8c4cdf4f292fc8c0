package nvstore

import "testing"

func TestKeyForIsStablePerItem(t *testing.T) {
	k1 := keyFor(ItemPairingTable)
	k2 := keyFor(ItemPairingTable)
	if k1 != k2 {
		t.Errorf("keyFor not stable: %q vs %q", k1, k2)
	}
	if keyFor(ItemNIB) == keyFor(ItemPairingTable) {
		t.Error("distinct items must map to distinct keys")
	}
}

func TestKeyForFormat(t *testing.T) {
	got := keyFor(ItemBootFlag)
	want := "rf4ce:nv:0001"
	if got != want {
		t.Errorf("keyFor(ItemBootFlag) = %q, want %q", got, want)
	}
}
