package cli

import "testing"

func TestVisualLenStripsANSI(t *testing.T) {
	colored := "\x1b[32mPASS\x1b[0m"
	if got := visualLen(colored); got != 4 {
		t.Errorf("visualLen(%q) = %d, want 4", colored, got)
	}
}

func TestTableFlushEmptyProducesNoOutput(t *testing.T) {
	table := NewTable("REF", "STATUS")
	// No rows appended: Flush must not panic and (per its doc comment)
	// prints nothing — nothing to assert on stdout here beyond that it
	// returns cleanly.
	table.Flush()
}

func TestTableRowCountMatchesHeaders(t *testing.T) {
	table := NewTable("REF", "PEER_EXT_ADDR")
	table.Row("0", "0102030405060708")
	table.Row("1", "0807060504030201")
	if len(table.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.rows))
	}
	if len(table.headers) != 2 {
		t.Fatalf("headers = %d, want 2", len(table.headers))
	}
}
