package common

import (
	"bytes"
	"testing"
	"time"

	"github.com/rf4ce/remoti/pkg/config"
)

func TestReportRoundTrip(t *testing.T) {
	want := Report{Type: ReportIn, ID: 3, Data: []byte{1, 2, 3, 4}}
	encoded := EncodeReport(want)
	got, n, err := DecodeReport(encoded)
	if err != nil {
		t.Fatalf("DecodeReport() error = %v", err)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, want %d", n, len(encoded))
	}
	if got.Type != want.Type || got.ID != want.ID || !bytes.Equal(got.Data, want.Data) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestUnsafeWindowGuardUpgradesWithinWindow(t *testing.T) {
	stack := config.Defaults()
	g := NewUnsafeWindowGuard(stack)
	now := time.Unix(0, 0)
	g.RecordInterruptPipeTx(1, now)

	if !g.Unsafe(1, now.Add(10*time.Millisecond)) {
		t.Error("should be unsafe immediately after an interrupt-pipe transmission")
	}
	if g.Unsafe(1, now.Add(stack.MinIntPipeUnsafeTxWindow+time.Millisecond)) {
		t.Error("should no longer be unsafe once the window elapses")
	}
}

func TestNonStdDescReassemblyHappyPath(t *testing.T) {
	stack := config.Defaults()
	rsm := NewNonStdDescReassembler(stack)

	frag0 := make([]byte, stack.MaxNonStdDescFragmentSize)
	for i := range frag0 {
		frag0[i] = byte(i)
	}
	frag1 := []byte{0xAA, 0xBB}
	total := len(frag0) + len(frag1)

	if out, err := rsm.Fragment(0, 7, total, frag0); err != nil || out != nil {
		t.Fatalf("first fragment: out=%v err=%v", out, err)
	}
	out, err := rsm.Fragment(1, 7, total, frag1)
	if err != nil {
		t.Fatalf("final fragment error = %v", err)
	}
	if len(out) != total {
		t.Fatalf("reassembled length = %d, want %d", len(out), total)
	}
}

func TestNonStdDescReassemblyRejectsOutOfOrderFragment(t *testing.T) {
	stack := config.Defaults()
	rsm := NewNonStdDescReassembler(stack)
	if _, err := rsm.Fragment(1, 7, 100, []byte{1}); err != ErrMissingFragment {
		t.Errorf("err = %v, want ErrMissingFragment", err)
	}
}

func TestNonStdDescReassemblyRejectsHeaderMismatch(t *testing.T) {
	stack := config.Defaults()
	rsm := NewNonStdDescReassembler(stack)
	if _, err := rsm.Fragment(0, 7, 160, make([]byte, 80)); err != nil {
		t.Fatalf("first fragment error = %v", err)
	}
	if _, err := rsm.Fragment(1, 8, 160, make([]byte, 80)); err != ErrInvalidParam {
		t.Errorf("err = %v, want ErrInvalidParam on report-id mismatch", err)
	}
}

func TestFragmentCountRoundsUp(t *testing.T) {
	stack := config.Defaults()
	if got := FragmentCount(stack, 100); got != 2 {
		t.Errorf("FragmentCount(100) = %d, want 2 (80 + 20)", got)
	}
}

func TestValidateUnsafeWindowRejectsBelowMinimum(t *testing.T) {
	stack := config.Defaults()
	if err := ValidateUnsafeWindow(stack, 10*time.Millisecond); err == nil {
		t.Error("should reject an unsafe window below the configured minimum")
	}
	if err := ValidateUnsafeWindow(stack, stack.MinIntPipeUnsafeTxWindow); err != nil {
		t.Errorf("should accept the minimum exactly: %v", err)
	}
}

func TestValidatePollIntervalRange(t *testing.T) {
	if err := ValidatePollInterval(0); err == nil {
		t.Error("should reject poll interval 0")
	}
	if err := ValidatePollInterval(17); err == nil {
		t.Error("should reject poll interval 17")
	}
	if err := ValidatePollInterval(1); err != nil {
		t.Errorf("should accept poll interval 1: %v", err)
	}
}

func TestValidateDescriptorCounts(t *testing.T) {
	stack := config.Defaults()
	if err := ValidateDescriptorCounts(stack, stack.MaxStdDescCompsPerHID+1, 0); err == nil {
		t.Error("should reject std desc count over the configured maximum")
	}
	if err := ValidateDescriptorCounts(stack, 0, stack.MaxNonStdDescCompsPerHID+1); err == nil {
		t.Error("should reject non-std desc count over the configured maximum")
	}
}
