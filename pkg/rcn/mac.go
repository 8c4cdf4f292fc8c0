package rcn

import "time"

// MAC is the narrow interface the network layer needs from the external
// 802.15.4 MAC/radio driver: channel access, frame tx/rx, timestamps, and
// security-key install/use. Production code plugs in the real radio
// driver; tests use SimMAC.
type MAC interface {
	// SampleEnergy returns an LQI-equivalent noise reading for channel,
	// used by the frequency-agility state machine.
	SampleEnergy(channel uint8) (lqi int, err error)

	// Transmit sends a raw frame to dstShort on the given channel at
	// txPowerDBm, with ack requested if acknowledged is true. It returns
	// whether a MAC-level ack was received (ignored if !acknowledged).
	Transmit(channel uint8, dstShort uint16, txPowerDBm int, acknowledged bool, payload []byte) (acked bool, err error)

	// InstallKey installs a 128-bit link key for use with a peer's frame
	// counter window (CCM*, frame-counter window 1024).
	InstallKey(peerExtAddr [8]byte, key [16]byte) error

	// HasKey reports whether a link key is installed for peerExtAddr.
	HasKey(peerExtAddr [8]byte) bool

	// Now returns the current time, indirected so frequency-agility tests
	// can control elapsed time deterministically.
	Now() time.Time
}
