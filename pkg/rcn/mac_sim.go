package rcn

import (
	"sync"
	"time"
)

// SimMAC is a deterministic in-memory MAC used by tests and by the sample
// CLI when no physical radio is attached. It is not a faithful radio
// simulation — it exists only to exercise pkg/rcn's contracts.
type SimMAC struct {
	mu      sync.Mutex
	energy  map[uint8]int // per-channel LQI reading, settable by tests
	keys    map[[8]byte][16]byte
	now     time.Time
	Sent    []SentFrame
	AckDefault bool
}

// SentFrame records one Transmit() call for assertions in tests.
type SentFrame struct {
	Channel      uint8
	DstShort     uint16
	TxPowerDBm   int
	Acknowledged bool
	Payload      []byte
}

// NewSimMAC creates a SimMAC with a fixed starting clock.
func NewSimMAC() *SimMAC {
	return &SimMAC{
		energy:     make(map[uint8]int),
		keys:       make(map[[8]byte][16]byte),
		now:        time.Unix(0, 0),
		AckDefault: true,
	}
}

// SetEnergy fixes the LQI reading SampleEnergy returns for a channel.
func (m *SimMAC) SetEnergy(channel uint8, lqi int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.energy[channel] = lqi
}

// Advance moves the simulated clock forward by d.
func (m *SimMAC) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *SimMAC) SampleEnergy(channel uint8) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.energy[channel], nil
}

func (m *SimMAC) Transmit(channel uint8, dstShort uint16, txPowerDBm int, acknowledged bool, payload []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.Sent = append(m.Sent, SentFrame{channel, dstShort, txPowerDBm, acknowledged, cp})
	return m.AckDefault, nil
}

func (m *SimMAC) InstallKey(peerExtAddr [8]byte, key [16]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[peerExtAddr] = key
	return nil
}

func (m *SimMAC) HasKey(peerExtAddr [8]byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[peerExtAddr]
	return ok
}

func (m *SimMAC) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

var _ MAC = (*SimMAC)(nil)
