package rcn

import (
	"time"

	"github.com/rf4ce/remoti/pkg/config"
)

// NIB is the Network Information Base: the network layer's persistent
// attribute set. The pairing table itself is owned separately by
// pkg/pairing.Table and addressed by index.
type NIB struct {
	IEEEAddr                   [8]byte
	ActivePeriod               time.Duration
	DiscoveryLQIThreshold      uint8
	DiscoveryRepetitionInterval time.Duration
	DutyCycle                  time.Duration
	FrameCounter               uint32
	MaxDiscoveryRepetitions    uint8
	MaxReportedNodeDescriptors uint8
	ResponseWaitTime           time.Duration
	ScanDuration               time.Duration
	UserString                 [16]byte
	NodeCapabilities           uint8
	VendorID                   uint16
	VendorString               [7]byte
	Started                    bool
	PANID                      uint16
	ShortAddr                  uint16
}

// NodeCapabilities bits .
const (
	NodeCapTargetBit   uint8 = 1 << 0 // 1 = Target, 0 = Controller
	NodeCapSecurityBit uint8 = 1 << 1
	NodeCapChannelNormalizationBit uint8 = 1 << 2
)

// IsTarget reports whether the device's role bit marks it a Target.
func (n *NIB) IsTarget() bool { return n.NodeCapabilities&NodeCapTargetBit != 0 }

// DefaultNIB returns the NIB defaults applied by NLME-RESET(set_default_nib=true)
// / cold boot, seeded from the stack's tunable defaults.
func DefaultNIB(stack *config.Stack) *NIB {
	return &NIB{
		DiscoveryLQIThreshold:       uint8(stack.FreqAgilityNoiseLQIThreshold),
		DiscoveryRepetitionInterval: 100 * time.Millisecond,
		MaxDiscoveryRepetitions:     3,
		MaxReportedNodeDescriptors:  uint8(stack.MinReportedNodeDescriptors),
		ResponseWaitTime:            stack.MaxResponseWaitTime,
		ScanDuration:                50 * time.Millisecond,
		VendorID:                    stack.VendorID,
		VendorString:                stack.VendorString,
		NodeCapabilities:            stack.NodeCapabilities,
		Started:                     false,
		PANID:                       0xFFFF,
		ShortAddr:                   0xFFFF,
	}
}
