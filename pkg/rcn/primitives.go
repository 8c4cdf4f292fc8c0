package rcn

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/rf4ce/remoti/internal/obs"
	"github.com/rf4ce/remoti/pkg/config"
	"github.com/rf4ce/remoti/pkg/pairing"
)

// AppInfo carries the application-level descriptor exchanged during
// discovery and pairing (device type list, profile id list).
type AppInfo struct {
	UserString     [16]byte
	DeviceTypeList []uint8
	ProfileIDList  []uint8
}

// TxOptions are the NLDE-DATA transmit-option bits.
type TxOptions uint8

const (
	TxOptBroadcast         TxOptions = 1 << 0
	TxOptIEEEAddress       TxOptions = 1 << 1
	TxOptAcknowledged      TxOptions = 1 << 2
	TxOptSecurity          TxOptions = 1 << 3
	TxOptSingleChannel     TxOptions = 1 << 4
	TxOptChannelDesignator TxOptions = 1 << 5
	TxOptVendorSpecific    TxOptions = 1 << 6
)

func (o TxOptions) has(bit TxOptions) bool { return o&bit != 0 }

// DiscoveredEvent is one NLME-DISCOVERED-EVENT indication.
type DiscoveredEvent struct {
	Channel               uint8
	PANID                 uint16
	PeerExtAddr           [8]byte
	PeerShortAddr         uint16
	DeviceTypeList        []uint8
	ProfileIDList         []uint8
	RecipientCapabilities uint8
	VendorID              uint16
	LQI                   uint8
}

// DiscoveryConfirm is the terminal confirm of an NLME-DISCOVERY sequence.
type DiscoveryConfirm struct {
	Status   Status
	NumNodes int
}

// PairConfirm is the result of NLME-PAIR.
type PairConfirm struct {
	Status         Status
	PairingRef     uint8
	PeerDeviceInfo DiscoveredEvent
}

// Layer is the RF4CE network layer: NIB owner, pairing-table front door,
// and NLME/NLDE primitive surface.
type Layer struct {
	mu    sync.Mutex
	stack *config.Stack
	mac   MAC
	nib   *NIB
	table *pairing.Table

	discoveryActive bool
	discoverySeen   map[[8]byte]bool
	discoveryHits   []DiscoveredEvent

	freq *FreqAgility

	// OnDiscovered, if set, is invoked synchronously for every discovery
	// indication that passes the tie-break filter. RTI installs this to
	// implement the push-button-pair policy at its own layer.
	OnDiscovered func(ev DiscoveredEvent)
}

// NewLayer constructs a network layer bound to mac and a capacity-matched
// pairing table.
func NewLayer(stack *config.Stack, mac MAC, table *pairing.Table) *Layer {
	l := &Layer{
		stack: stack,
		mac:   mac,
		nib:   DefaultNIB(stack),
		table: table,
	}
	l.freq = NewFreqAgility(stack, mac)
	return l
}

// MAC returns the underlying MAC driver, for callers (test-mode radio
// control, diagnostics) that need to reach past the NLME/NLDE surface.
func (l *Layer) MAC() MAC {
	return l.mac
}

// PairingTable returns the pairing table backing this layer, for callers
// (CLI listing, startup-control clearing) that need direct access beyond
// the NLME/NLDE primitive surface.
func (l *Layer) PairingTable() *pairing.Table {
	return l.table
}

// NIB returns a copy of the current NIB attribute set.
func (l *Layer) NIB() NIB {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.nib
}

// ResetReq implements NLME-RESET. On setDefaultNIB, the NIB (and pairing
// table) are restored to defaults; otherwise persisted attributes are
// retained.
func (l *Layer) ResetReq(setDefaultNIB bool) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	if setDefaultNIB {
		ieee := l.nib.IEEEAddr
		l.nib = DefaultNIB(l.stack)
		l.nib.IEEEAddr = ieee
		for _, e := range l.table.IterActive() {
			l.table.Clear(e.LocalRef)
		}
	}
	obs.WithField("set_default_nib", setDefaultNIB).Debug("NLME-RESET")
	return StatusSuccess
}

// StartReq implements NLME-START: samples each configured channel and
// selects the one with minimum noise, then marks the NIB started.
func (l *Layer) StartReq() (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.stack.Channels) == 0 {
		return StatusInvalidParameter, fmt.Errorf("no channels configured")
	}

	best := l.stack.Channels[0]
	bestNoise := -1
	const samplesPerChannel = 4
	for _, ch := range l.stack.Channels {
		total := 0
		for i := 0; i < samplesPerChannel; i++ {
			lqi, err := l.mac.SampleEnergy(ch)
			if err != nil {
				return StatusCommunication, err
			}
			total += lqi
		}
		avg := total / samplesPerChannel
		if bestNoise < 0 || avg < bestNoise {
			bestNoise = avg
			best = ch
		}
	}

	l.nib.Started = true
	l.freq.SetCurrentChannel(best)
	obs.WithField("channel", best).Info("NLME-START selected channel")
	return StatusSuccess, nil
}

// DiscoveryReq begins an NLME-DISCOVERY sequence; discovery responses
// arrive via HandleDiscoveryIndication, and the sequence is closed with
// DiscoveryConfirm.
func (l *Layer) DiscoveryReq() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discoveryActive = true
	l.discoverySeen = make(map[[8]byte]bool)
	l.discoveryHits = nil
}

// HandleDiscoveryIndication applies the tie-break (reject duplicate peers,
// reject LQI below nwkDiscoveryLQIThreshold) and, if the event passes,
// records it and invokes OnDiscovered.
func (l *Layer) HandleDiscoveryIndication(ev DiscoveredEvent) {
	l.mu.Lock()
	if !l.discoveryActive {
		l.mu.Unlock()
		return
	}
	if l.discoverySeen[ev.PeerExtAddr] {
		l.mu.Unlock()
		return
	}
	if ev.LQI < l.nib.DiscoveryLQIThreshold {
		l.mu.Unlock()
		return
	}
	l.discoverySeen[ev.PeerExtAddr] = true
	l.discoveryHits = append(l.discoveryHits, ev)
	cb := l.OnDiscovered
	l.mu.Unlock()

	if cb != nil {
		cb(ev)
	}
}

// DiscoveryConfirm ends the discovery sequence and reports how many
// distinct nodes were discovered.
func (l *Layer) DiscoveryConfirm() DiscoveryConfirm {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discoveryActive = false
	n := len(l.discoveryHits)
	status := StatusSuccess
	if n == 0 {
		status = StatusDiscoveryTimeout
	}
	return DiscoveryConfirm{Status: status, NumNodes: n}
}

// DiscoveryAbortReq always returns to READY with success when it completes
// (cancellation-state rules live in pkg/rti; here it is simply idempotent).
func (l *Layer) DiscoveryAbortReq() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discoveryActive = false
	return StatusSuccess
}

// PairReq implements NLME-PAIR: peer pair-request, provisional pairing
// reference, CCM*-protected key-seed exchange of keyExTransferCount seeds
// (>= aplcMinKeyExchangeTransferCount), 128-bit link-key derivation, and
// pairing-entry write. If the key exchange does not complete, no partial
// entry is written.
func (l *Layer) PairReq(peer DiscoveredEvent, appInfo AppInfo, keyExTransferCount int) (PairConfirm, error) {
	if keyExTransferCount < l.stack.MinKeyExchangeCount {
		return PairConfirm{Status: StatusInvalidParameter}, fmt.Errorf(
			"key_ex_transfer_count %d below aplcMinKeyExchangeTransferCount %d",
			keyExTransferCount, l.stack.MinKeyExchangeCount)
	}

	l.mu.Lock()
	ref, ok := l.table.FindFreeRef()
	l.mu.Unlock()
	if !ok {
		return PairConfirm{Status: StatusNoOrgCapacity}, nil
	}

	// Key-seed exchange frames are capped at the protocol power limit.
	for i := 0; i < keyExTransferCount; i++ {
		seed := keySeed(peer.PeerExtAddr, i)
		if _, err := l.mac.Transmit(peer.Channel, peer.PeerShortAddr, l.stack.KeyExchangeTxPowerDBm, true, seed[:]); err != nil {
			return PairConfirm{Status: StatusSecurityFailure}, err
		}
	}

	key := deriveLinkKey(peer.PeerExtAddr, keyExTransferCount)
	if err := l.mac.InstallKey(peer.PeerExtAddr, key); err != nil {
		return PairConfirm{Status: StatusSecurityFailure}, err
	}

	var profileDisc uint32
	for _, p := range peer.ProfileIDList {
		if p < 32 {
			profileDisc |= 1 << p
		}
	}

	entry := pairing.Entry{
		PeerExtAddr:           peer.PeerExtAddr,
		PeerShortAddr:         peer.PeerShortAddr,
		PeerPANID:             peer.PANID,
		LogicalChannel:        peer.Channel,
		FrameCounter:          0,
		LinkKey:               key,
		RecipientCapabilities: peer.RecipientCapabilities,
		ProfileDiscovery:      profileDisc,
		DeviceTypeList:        append([]uint8{}, peer.DeviceTypeList...),
		VendorID:              peer.VendorID,
	}
	if err := l.table.Install(ref, entry); err != nil {
		return PairConfirm{Status: StatusDuplicatePairing}, err
	}

	obs.WithPairing(ref).WithField("vendor_id", peer.VendorID).Info("NLME-PAIR complete")
	return PairConfirm{Status: StatusSuccess, PairingRef: ref, PeerDeviceInfo: peer}, nil
}

// AutoDiscoveryReq pre-arms a single incoming pair sequence on a Target.
// The actual on-air arming and armed-duration timer are delegated to the
// MAC driver, out of scope here.
func (l *Layer) AutoDiscoveryReq() Status {
	return StatusSuccess
}

// UnpairReq triggers the on-air unpair-request command and removes the
// local entry on confirm.
func (l *Layer) UnpairReq(ref uint8) Status {
	entry, ok := l.table.Lookup(ref)
	if !ok {
		return StatusNoPairing
	}
	if _, err := l.mac.Transmit(entry.LogicalChannel, entry.PeerShortAddr, l.stack.KeyExchangeTxPowerDBm, true, []byte{0x02 /* unpair-request cmd */}); err != nil {
		return StatusCommunication
	}
	if err := l.table.Clear(ref); err != nil {
		return StatusInvalidIndex
	}
	return StatusSuccess
}

// DataReq implements NLDE-DATA. Invariants: broadcast is
// disallowed on single-channel transmissions; security requires an
// installed link key; acknowledged triggers MAC-level retry.
func (l *Layer) DataReq(ref uint8, profileID uint8, vendorID uint16, opts TxOptions, nsdu []byte) Status {
	if opts.has(TxOptBroadcast) && opts.has(TxOptSingleChannel) {
		return StatusInvalidParameter
	}

	entry, ok := l.table.Lookup(ref)
	if !ok {
		return StatusNoPairing
	}

	if opts.has(TxOptSecurity) && !l.mac.HasKey(entry.PeerExtAddr) {
		return StatusNoSecurityKey
	}

	const maxRetries = 3
	attempts := 1
	if opts.has(TxOptAcknowledged) {
		attempts = maxRetries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		acked, err := l.mac.Transmit(entry.LogicalChannel, entry.PeerShortAddr, 0, opts.has(TxOptAcknowledged), nsdu)
		if err != nil {
			lastErr = err
			continue
		}
		if !opts.has(TxOptAcknowledged) || acked {
			return StatusSuccess
		}
	}
	if lastErr != nil {
		return StatusCommunication
	}
	return StatusNoResponse
}

func keySeed(peer [8]byte, index int) [16]byte {
	h := sha256.Sum256(append(append([]byte{}, peer[:]...), byte(index)))
	var out [16]byte
	copy(out[:], h[:16])
	return out
}

func deriveLinkKey(peer [8]byte, transferCount int) [16]byte {
	h := sha256.Sum256(append(append([]byte{}, peer[:]...), byte(transferCount), 0xFE))
	var out [16]byte
	copy(out[:], h[16:32])
	return out
}
