// Package config loads the stack's tunable constants: NIB defaults, the
// ZID/GDP timing constants, the channel list, pairing-table capacity and
// the frequency-agility parameters. It is loaded from a YAML tunables file
// the way newtest's scenario parser loads YAML scenarios, and merges
// board-specific overrides over stack defaults the way spec.Resolver merges
// device profiles over platform defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Stack holds every tunable constant the network and profile layers need:
// protocol identity, pairing-table sizing, security parameters,
// frequency-agility thresholds, RTI timing, and ZID/GDP descriptor limits.
type Stack struct {
	// protocol identity
	ProtocolID      uint8   `yaml:"protocol_id"`
	ProtocolVersion uint8   `yaml:"protocol_version"`
	Channels        []uint8 `yaml:"channels"`

	// pairing table
	PairingTableSize int `yaml:"pairing_table_size"`

	// configuration-parameter table (RTI_CP_ITEM_*): snapshotted into the
	// CP table once on cold boot and held fixed thereafter.
	VendorID            uint16  `yaml:"vendor_id"`
	VendorString        [7]byte `yaml:"-"`
	NodeCapabilities    uint8   `yaml:"node_capabilities"`
	StandbyActivePeriod uint32  `yaml:"standby_active_period_ms"`

	// security
	SecurityMICLength     int `yaml:"security_mic_length"`
	SecurityLevel         int `yaml:"security_level"`
	FrameCounterWindow    int `yaml:"frame_counter_window"`
	MinKeyExchangeCount   int `yaml:"min_key_exchange_transfer_count"`
	KeyExchangeTxPowerDBm int `yaml:"key_exchange_tx_power_dbm"`

	// frequency agility
	FreqAgilitySuspendDuration     time.Duration `yaml:"freq_agility_suspend_duration"`
	FreqAgilityShortDuration       time.Duration `yaml:"freq_agility_short_duration"`
	FreqAgilityNoisySampleThresh   int           `yaml:"freq_agility_noisy_sample_threshold"`
	FreqAgilityMinSamplesBeforeAct int           `yaml:"freq_agility_min_samples_before_action"`
	FreqAgilityNoiseLQIThreshold   int           `yaml:"freq_agility_noise_lqi_threshold"`

	// RTI timing
	ConfigBlackoutTime      time.Duration `yaml:"config_blackout_time"`
	AllowPairIndicationWait time.Duration `yaml:"allow_pair_indication_wait"`

	// ZID common timing
	MaxResponseWaitTime      time.Duration `yaml:"max_response_wait_time"`
	MaxConfigWaitTime        time.Duration `yaml:"max_config_wait_time"`
	MinIntPipeUnsafeTxWindow time.Duration `yaml:"min_int_pipe_unsafe_tx_window"`

	// ZID runtime
	MaxRxOnWaitTime   time.Duration `yaml:"max_rx_on_wait_time"`
	IdleRateGuardTime time.Duration `yaml:"idle_rate_guard_time"`

	// descriptor limits
	MaxNonStdDescCompSize     int `yaml:"max_non_std_desc_comp_size"`
	MaxNonStdDescFragmentSize int `yaml:"max_non_std_desc_fragment_size"`
	MaxNonStdDescCompsPerHID  int `yaml:"max_non_std_desc_comps_per_hid"`
	MaxStdDescCompsPerHID     int `yaml:"max_std_desc_comps_per_hid"`

	// discovery
	MinReportedNodeDescriptors int `yaml:"min_reported_node_descriptors"`
}

// Defaults returns the stack's default tunable values.
func Defaults() *Stack {
	return &Stack{
		ProtocolID:      0xCE,
		ProtocolVersion: 0x01,
		Channels:        []uint8{15, 20, 25},

		PairingTableSize: 10,

		VendorID:            0x0001,
		VendorString:        vendorString("RF4CE"),
		NodeCapabilities:    0,
		StandbyActivePeriod: 100,

		SecurityMICLength:     4,
		SecurityLevel:         5,
		FrameCounterWindow:    1024,
		MinKeyExchangeCount:   3,
		KeyExchangeTxPowerDBm: -25,

		FreqAgilitySuspendDuration:     60 * time.Second,
		FreqAgilityShortDuration:       60 * time.Second,
		FreqAgilityNoisySampleThresh:   16,
		FreqAgilityMinSamplesBeforeAct: 32,
		FreqAgilityNoiseLQIThreshold:   lqiFor(-72),

		ConfigBlackoutTime:      100 * time.Millisecond,
		AllowPairIndicationWait: 1200 * time.Millisecond,

		MaxResponseWaitTime:      200 * time.Millisecond,
		MaxConfigWaitTime:        300 * time.Millisecond,
		MinIntPipeUnsafeTxWindow: 50 * time.Millisecond,

		MaxRxOnWaitTime:   100 * time.Millisecond,
		IdleRateGuardTime: 1500 * time.Millisecond,

		MaxNonStdDescCompSize:     256,
		MaxNonStdDescFragmentSize: 80,
		MaxNonStdDescCompsPerHID:  4,
		MaxStdDescCompsPerHID:     12,

		MinReportedNodeDescriptors: 3,
	}
}

// vendorString left-packs s into the 7-byte vendor-string field
// (RCN_NVID_NWKC_VENDOR_STRING), truncating or zero-padding as needed.
func vendorString(s string) [7]byte {
	var out [7]byte
	copy(out[:], s)
	return out
}

// lqiFor converts a dBm figure to the coarse LQI-equivalent scale the
// original firmware uses (LQI 0-255 mapping roughly to -100..0 dBm).
func lqiFor(dBm int) int {
	if dBm < -100 {
		dBm = -100
	}
	if dBm > 0 {
		dBm = 0
	}
	return (dBm + 100) * 255 / 100
}

// Load reads a YAML tunables file and merges it over Defaults(). A missing
// file is not an error: Defaults() alone is returned, matching cold-boot
// set-default-NIB semantics.
func Load(path string) (*Stack, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stack config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing stack config %s: %w", path, err)
	}
	return s, nil
}

// ChannelMask returns the OR of all configured channel bits
// ("Channel mask is the OR of the three").
func (s *Stack) ChannelMask() uint32 {
	var mask uint32
	for _, ch := range s.Channels {
		mask |= 1 << ch
	}
	return mask
}
