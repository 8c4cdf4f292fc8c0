// Package common implements the machinery shared by both ZID roles
// (Class Device and Adapter): the response-wait timer, the interrupt-pipe
// unsafe-window guard, non-standard-descriptor fragment reassembly, and
// attribute write-range validation.
package common

import (
	"fmt"
	"time"

	"github.com/rf4ce/remoti/pkg/config"
)

// Frame-control / command layout shared by both roles.
const (
	FrameControlDataPending = 1 << 7
	FrameControlGDPFlag     = 1 << 6
	FrameControlCmdMask     = 0x3F
)

// ZID command codes (carried in the low bits of the frame-control byte
// when the GDP flag is clear).
const (
	CmdGetReport  uint8 = 0x01
	CmdReportData uint8 = 0x02
	CmdSetReport  uint8 = 0x03
)

// Standard report ids. ReportIDKeyboard is singled out because keyboard
// reports are the one report class the profile requires security on.
const (
	ReportIDMouse             uint8 = 0x01
	ReportIDKeyboard          uint8 = 0x02
	ReportIDContactData       uint8 = 0x03
	ReportIDGestureTap        uint8 = 0x04
	ReportIDGestureScroll     uint8 = 0x05
	ReportIDGesturePinch      uint8 = 0x06
	ReportIDGestureRotate     uint8 = 0x07
	ReportIDGestureSync       uint8 = 0x08
	ReportIDTouchSensorProps  uint8 = 0x09
	ReportIDTapSupportProps   uint8 = 0x0A
)

// Attribute ids defined at ZID scope (the push-side proxy-entry
// attributes and the non-standard-descriptor fragment-push attribute).
const (
	AttrHIDParserVersion        uint8 = 0x80
	AttrHIDDeviceReleaseNumber  uint8 = 0x81
	AttrHIDVendorID             uint8 = 0x82
	AttrHIDProductID            uint8 = 0x83
	AttrHIDCountryCode          uint8 = 0x84
	AttrHIDDeviceIdleRate       uint8 = 0x85
	AttrHIDNumStdDescComps      uint8 = 0x86
	AttrHIDStdDescCompsList     uint8 = 0x87
	AttrHIDNumNullReports       uint8 = 0x88
	AttrHIDNumNonStdDescComps   uint8 = 0x89
	AttrHIDNonStdDescCompSpecN  uint8 = 0x8A
)

// ReportType is the report-record type byte.
type ReportType uint8

const (
	ReportIn      ReportType = 1
	ReportOut     ReportType = 2
	ReportFeature ReportType = 3
)

// Report is one length-prefixed report record:
// {len, type, id, data[len-2]}.
type Report struct {
	Type ReportType
	ID   uint8
	Data []byte
}

// EncodeReport packs a single report record.
func EncodeReport(r Report) []byte {
	out := []byte{byte(len(r.Data) + 2), byte(r.Type), r.ID}
	return append(out, r.Data...)
}

// DecodeReport reads one report record from the front of payload,
// returning the record and the number of bytes consumed.
func DecodeReport(payload []byte) (Report, int, error) {
	if len(payload) < 1 {
		return Report{}, 0, fmt.Errorf("zid: empty report payload")
	}
	length := int(payload[0])
	if length < 2 {
		return Report{}, 0, fmt.Errorf("zid: report length %d below minimum of 2", length)
	}
	if 1+length > len(payload) {
		return Report{}, 0, fmt.Errorf("zid: truncated report (want %d bytes, have %d)", length, len(payload)-1)
	}
	r := Report{
		Type: ReportType(payload[1]),
		ID:   payload[2],
		Data: append([]byte{}, payload[3:1+length]...),
	}
	return r, 1 + length, nil
}

// ResponseWaitTimer arms after any message expecting a reply. Runtime and
// configuration use different durations (aplcMaxResponseWaitTime /
// aplcMaxConfigWaitTime); the caller selects which when arming.
type ResponseWaitTimer struct {
	stack *config.Stack
	timer *time.Timer
}

// NewResponseWaitTimer binds a response-wait timer to stack's tunables.
func NewResponseWaitTimer(stack *config.Stack) *ResponseWaitTimer {
	return &ResponseWaitTimer{stack: stack}
}

// ArmRuntime arms the timer for aplcMaxResponseWaitTime and invokes onTimeout
// if it is not stopped first.
func (w *ResponseWaitTimer) ArmRuntime(onTimeout func()) {
	w.arm(w.stack.MaxResponseWaitTime, onTimeout)
}

// ArmConfig arms the timer for aplcMaxConfigWaitTime.
func (w *ResponseWaitTimer) ArmConfig(onTimeout func()) {
	w.arm(w.stack.MaxConfigWaitTime, onTimeout)
}

func (w *ResponseWaitTimer) arm(d time.Duration, onTimeout func()) {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, onTimeout)
}

// Stop cancels a pending response-wait timer.
func (w *ResponseWaitTimer) Stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

// UnsafeWindowGuard tracks, per pairing, whether the interrupt pipe is in
// its post-transmission unsafe window during which any further
// interrupt-pipe attempt must be upgraded to an acknowledged control-pipe
// transmission.
type UnsafeWindowGuard struct {
	stack   *config.Stack
	unsafe  map[uint8]time.Time // pairing ref -> unsafe-until
}

// NewUnsafeWindowGuard binds a guard to stack's minimum unsafe-window
// duration.
func NewUnsafeWindowGuard(stack *config.Stack) *UnsafeWindowGuard {
	return &UnsafeWindowGuard{stack: stack, unsafe: make(map[uint8]time.Time)}
}

// RecordInterruptPipeTx marks ref unsafe for the configured window,
// starting now.
func (g *UnsafeWindowGuard) RecordInterruptPipeTx(ref uint8, now time.Time) {
	window := g.stack.MinIntPipeUnsafeTxWindow
	g.unsafe[ref] = now.Add(window)
}

// Unsafe reports whether ref is still inside its unsafe window at now.
func (g *UnsafeWindowGuard) Unsafe(ref uint8, now time.Time) bool {
	until, ok := g.unsafe[ref]
	if !ok {
		return false
	}
	return now.Before(until)
}

// NonStdDescReassembler tracks in-progress non-standard-descriptor
// fragment reassembly for one descriptor slot: expected fragment id
// starts at 0 and must advance by exactly one per fragment; all
// fragments of one descriptor must agree on size and report id. The
// fragment encoding carries no descriptor type, so type is not compared.
type NonStdDescReassembler struct {
	stack *config.Stack

	started       bool
	reportID      uint8
	totalSize     int
	expectedFragID uint8
	buf           []byte
}

// NewNonStdDescReassembler binds a reassembler to stack's fragment-size
// tunables.
func NewNonStdDescReassembler(stack *config.Stack) *NonStdDescReassembler {
	return &NonStdDescReassembler{stack: stack}
}

// EncodeNonStdDescFragment packs one non-standard-descriptor fragment as
// the value of an AttrHIDNonStdDescCompSpecN attribute record: fragment
// id, report id, total size (little-endian uint16), then the chunk.
func EncodeNonStdDescFragment(fragID, reportID uint8, totalSize int, chunk []byte) []byte {
	out := []byte{fragID, reportID, byte(totalSize), byte(totalSize >> 8)}
	return append(out, chunk...)
}

// DecodeNonStdDescFragment reverses EncodeNonStdDescFragment.
func DecodeNonStdDescFragment(value []byte) (fragID, reportID uint8, totalSize int, chunk []byte, err error) {
	if len(value) < 4 {
		return 0, 0, 0, nil, fmt.Errorf("zid: non-std descriptor fragment header too short")
	}
	fragID = value[0]
	reportID = value[1]
	totalSize = int(value[2]) | int(value[3])<<8
	chunk = value[4:]
	return fragID, reportID, totalSize, chunk, nil
}

// ErrMissingFragment and ErrInvalidParam classify reassembly failures so
// callers can map them to the matching Generic-Response code.
var (
	ErrMissingFragment = fmt.Errorf("zid: unexpected fragment id (MISSING_FRAGMENT)")
	ErrInvalidParam    = fmt.Errorf("zid: fragment header mismatch (INVALID_PARAM)")
)

// Fragment pushes one received non-standard-descriptor fragment. It
// returns the completed descriptor bytes once the last fragment arrives,
// or nil while reassembly is still in progress.
func (rsm *NonStdDescReassembler) Fragment(fragID uint8, reportID uint8, totalSize int, data []byte) ([]byte, error) {
	if !rsm.started {
		if fragID != 0 {
			return nil, ErrMissingFragment
		}
		if totalSize <= 0 || totalSize > rsm.stack.MaxNonStdDescCompSize {
			return nil, ErrInvalidParam
		}
		rsm.started = true
		rsm.reportID = reportID
		rsm.totalSize = totalSize
		rsm.expectedFragID = 0
		rsm.buf = nil
	}

	if fragID != rsm.expectedFragID {
		rsm.reset()
		return nil, ErrMissingFragment
	}
	if reportID != rsm.reportID || rsm.totalSize != totalSize {
		rsm.reset()
		return nil, ErrInvalidParam
	}

	rsm.buf = append(rsm.buf, data...)
	rsm.expectedFragID++

	if len(rsm.buf) == rsm.totalSize {
		out := rsm.buf
		rsm.reset()
		return out, nil
	}
	if len(rsm.buf) > rsm.totalSize {
		rsm.reset()
		return nil, ErrInvalidParam
	}
	return nil, nil
}

func (rsm *NonStdDescReassembler) reset() {
	rsm.started = false
	rsm.buf = nil
	rsm.expectedFragID = 0
}

// FragmentCount returns ceil(size / aplcMaxNonStdDescFragmentSize).
func FragmentCount(stack *config.Stack, size int) int {
	frag := stack.MaxNonStdDescFragmentSize
	if frag <= 0 {
		return 0
	}
	return (size + frag - 1) / frag
}

// AttributeWriteError reports a rejected attribute write with the field
// and constraint that failed.
type AttributeWriteError struct {
	Field string
	Msg   string
}

func (e *AttributeWriteError) Error() string {
	return fmt.Sprintf("zid: attribute write rejected for %s: %s", e.Field, e.Msg)
}

// ValidateUnsafeWindow rejects a programmed unsafe-window duration below
// aplcMinIntPipeUnsafeTxWindowTime.
func ValidateUnsafeWindow(stack *config.Stack, d time.Duration) error {
	if d < stack.MinIntPipeUnsafeTxWindow {
		return &AttributeWriteError{Field: "unsafe_window", Msg: fmt.Sprintf("must be >= %s", stack.MinIntPipeUnsafeTxWindow)}
	}
	return nil
}

// ValidateReportRepeatInterval rejects a report-repeat interval above
// 100ms.
func ValidateReportRepeatInterval(d time.Duration) error {
	if d > 100*time.Millisecond {
		return &AttributeWriteError{Field: "report_repeat_interval", Msg: "must be <= 100ms"}
	}
	return nil
}

// ValidatePollInterval rejects a poll interval outside [1,16].
func ValidatePollInterval(v int) error {
	if v < 1 || v > 16 {
		return &AttributeWriteError{Field: "poll_interval", Msg: "must be in [1,16]"}
	}
	return nil
}

// ValidateDescriptorCounts rejects descriptor counts exceeding the
// configured per-HID maximums.
func ValidateDescriptorCounts(stack *config.Stack, stdCount, nonStdCount int) error {
	if stdCount > stack.MaxStdDescCompsPerHID {
		return &AttributeWriteError{Field: "std_desc_count", Msg: fmt.Sprintf("must be <= %d", stack.MaxStdDescCompsPerHID)}
	}
	if nonStdCount > stack.MaxNonStdDescCompsPerHID {
		return &AttributeWriteError{Field: "non_std_desc_count", Msg: fmt.Sprintf("must be <= %d", stack.MaxNonStdDescCompsPerHID)}
	}
	return nil
}

// ProfileVersionIsReadOnly always rejects a profile-version write attempt.
func ProfileVersionIsReadOnly() error {
	return &AttributeWriteError{Field: "profile_version", Msg: "read-only"}
}
