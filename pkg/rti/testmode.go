package rti

import "fmt"

// TestMode selects a radio test-mode transmission pattern. Chip-level test
// modes (raw carrier, pseudo-random data) are a development-only escape
// hatch; production code never issues TestModeReq.
type TestMode uint8

const (
	TestModeTxRawCarrier TestMode = iota
	TestModeTxRandomData
	TestModeRxAtFreq
)

// TestModeReq places the radio into one of the chip-level test modes used
// during RF conformance testing. It bypasses the network layer entirely
// and is mutually exclusive with normal operation: callers are expected to
// SwResetReq before resuming real traffic.
func (r *RTI) TestModeReq(mode TestMode, txPowerDBm int, channel uint8) error {
	r.mu.Lock()
	mac := r.layer.MAC()
	r.mu.Unlock()

	switch mode {
	case TestModeRxAtFreq:
		if _, err := mac.SampleEnergy(channel); err != nil {
			return fmt.Errorf("rti: test mode rx-at-freq on channel %d: %w", channel, err)
		}
	case TestModeTxRawCarrier, TestModeTxRandomData:
		if _, err := mac.Transmit(channel, 0xFFFF, txPowerDBm, false, nil); err != nil {
			return fmt.Errorf("rti: test mode tx on channel %d: %w", channel, err)
		}
	default:
		return fmt.Errorf("rti: unknown test mode %d", mode)
	}
	return nil
}

// TestRxCounterGetReq returns the number of frames received while in
// RX_AT_FREQ test mode. The MAC interface exposes no receive counter, so
// it always returns 0.
func (r *RTI) TestRxCounterGetReq() int {
	return 0
}

// SwResetReq triggers a software reset of the radio processor, restoring
// it to the START state. Restricted to development use; production
// platforms reset via a hardware reset line instead.
func (r *RTI) SwResetReq() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setState(StateStart)
}
