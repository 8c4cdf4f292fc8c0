package rti

import (
	"fmt"
	"sync"
	"time"

	"github.com/rf4ce/remoti/internal/obs"
	"github.com/rf4ce/remoti/pkg/config"
	"github.com/rf4ce/remoti/pkg/nvstore"
	"github.com/rf4ce/remoti/pkg/rcn"
)

// ConfigResult is what a profile co-layer reports back after its
// per-pairing configuration handshake completes (or fails).
type ConfigResult struct {
	Status rcn.Status
	Err    error
}

// Configurator is implemented by every profile co-layer that needs a
// per-pairing configuration handshake once a pairing reaches CONFIGURATION
// (GDP's Heartbeat round trip, ZID's non-std-descriptor push, ...). The
// returned channel is sent exactly one ConfigResult and then closed.
type Configurator interface {
	Configure(pairRef uint8) <-chan ConfigResult
}

// profileBit values used to order the CONFIGURATION profile-chain walk.
const (
	ProfileBitGDP uint8 = 0
	ProfileBitZID uint8 = 1
	ProfileBitZ3D uint8 = 2
)

// InvalidPairingRef and InvalidDeviceType are the sentinel values carried in
// an AllowPairConfirm or PairConfirm when no real pairing ref or device type
// applies (allow-pair timeout, a pairing attempt that never reached NLME-PAIR
// success), matching the firmware's RTI_INVALID_PAIRING_REF/RTI_INVALID_DEVICE_TYPE.
const (
	InvalidPairingRef uint8 = 0xFF
	InvalidDeviceType uint8 = 0xFF
)

// AllowPairConfirm is the 3-tuple result of an AllowPairReq window: either a
// peer paired within the window (Status carries the NLME-PAIR outcome, ref
// and devType identify it) or the window expired first (Status is
// ALLOW_PAIRING_TIMEOUT, ref and devType are the invalid sentinels).
type AllowPairConfirm struct {
	Status  rcn.Status
	Ref     uint8
	DevType uint8
}

// RTI is the application-facing orchestrator sitting above the network
// layer: it owns the top-level state, the discovery/pairing/configuration
// hand-off, allow-pair, un-pairing and bridge mode.
type RTI struct {
	mu    sync.Mutex
	stack *config.Stack
	layer *rcn.Layer
	store *nvstore.Store

	state State

	pendingDiscovered *rcn.DiscoveredEvent
	discoveryHitCount int

	configurators map[uint8]Configurator

	allowPairActive   bool
	allowPairDeadline time.Time
	allowPairTimer    *time.Timer

	// bridgeHandler, if set, receives every RCN callback verbatim and
	// suppresses native state-machine processing of it.
	bridgeHandler func(event string, payload interface{})

	discoveryFilterUserString  *[16]byte
	discoveryFilterTargetTypes []uint8

	OnPairConfirm      func(rcn.PairConfirm)
	OnAllowPairConfirm func(AllowPairConfirm)
	OnDiscoveryTimeout func()
}

// New constructs an RTI orchestrator bound to layer and an optional NV
// store for boot-state persistence (nil store runs NV-less, for tests).
func New(stack *config.Stack, layer *rcn.Layer, store *nvstore.Store) *RTI {
	r := &RTI{
		stack:         stack,
		layer:         layer,
		store:         store,
		state:         StateStart,
		configurators: make(map[uint8]Configurator),
	}
	layer.OnDiscovered = r.handleDiscovered
	return r
}

// State returns the current top-level state.
func (r *RTI) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *RTI) setState(s State) {
	obs.WithState(s.String()).Debug("RTI state transition")
	r.state = s
}

// RegisterConfigurator wires a profile co-layer into the CONFIGURATION
// profile-chain walk at the given profile bit.
func (r *RTI) RegisterConfigurator(profileBit uint8, c Configurator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configurators[profileBit] = c
}

// SetDiscoveryFilter installs the discovery-response acceptance policy:
// targetTypes, if non-empty, must intersect the peer's device-type list.
// userString is stored but not matched against anything: DiscoveredEvent
// carries no user string, so no response is rejected on that basis.
func (r *RTI) SetDiscoveryFilter(userString *[16]byte, targetTypes []uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discoveryFilterUserString = userString
	r.discoveryFilterTargetTypes = targetTypes
}

// SetBridgeMode installs a verbatim RCN-callback forwarder and disables
// native discovery/pairing/configuration processing while it is set.
func (r *RTI) SetBridgeMode(fn func(event string, payload interface{})) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bridgeHandler = fn
}

func (r *RTI) bridged() bool {
	return r.bridgeHandler != nil
}

// StartReq issues NLME-START. On success the state advances START -> READY;
// on failure it remains in START so a caller may retry.
func (r *RTI) StartReq() (rcn.Status, error) {
	status, err := r.layer.StartReq()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bridged() {
		r.bridgeHandler("start_confirm", status)
		return status, err
	}
	if status == rcn.StatusSuccess && err == nil {
		r.setState(StateReady)
	}
	return status, err
}

// DiscoveryReq begins the push-button-pair discovery sequence: exactly one
// distinct responding peer is expected; more than one forces
// DISCOVERY_ERROR rather than an arbitrary pick.
func (r *RTI) DiscoveryReq() error {
	r.mu.Lock()
	if r.state != StateReady {
		r.mu.Unlock()
		return fmt.Errorf("rti: DiscoveryReq requires READY, have %s", r.state)
	}
	r.pendingDiscovered = nil
	r.discoveryHitCount = 0
	r.setState(StateDiscovery)
	r.mu.Unlock()

	r.layer.DiscoveryReq()
	return nil
}

func (r *RTI) handleDiscovered(ev rcn.DiscoveredEvent) {
	r.mu.Lock()
	if r.bridged() {
		h := r.bridgeHandler
		r.mu.Unlock()
		h("discovered", ev)
		return
	}
	if !r.passesDiscoveryFilter(ev) {
		r.mu.Unlock()
		return
	}
	r.discoveryHitCount++
	if r.discoveryHitCount == 1 {
		cp := ev
		r.pendingDiscovered = &cp
	} else {
		r.pendingDiscovered = nil
	}
	r.mu.Unlock()
}

func (r *RTI) passesDiscoveryFilter(ev rcn.DiscoveredEvent) bool {
	if r.discoveryFilterUserString != nil {
		// The discovery event carries no user string, so no user-string
		// match is made here or at PairReq. Target-type filtering is
		// checked here because it is carried on the discovery response.
	}
	if len(r.discoveryFilterTargetTypes) == 0 {
		return true
	}
	for _, want := range r.discoveryFilterTargetTypes {
		for _, got := range ev.DeviceTypeList {
			if want == got {
				return true
			}
		}
	}
	return false
}

// DiscoveryConfirm closes the discovery sequence and transitions to
// DISCOVERED (exactly one accepted peer) or DISCOVERY_ERROR (zero, or more
// than one, distinct accepted peers).
func (r *RTI) DiscoveryConfirm() rcn.DiscoveryConfirm {
	cnf := r.layer.DiscoveryConfirm()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bridged() {
		return cnf
	}

	if cnf.Status == rcn.StatusSuccess && r.discoveryHitCount == 1 && r.pendingDiscovered != nil {
		r.setState(StateDiscovered)
		return cnf
	}

	r.setState(StateDiscoveryError)
	if r.discoveryHitCount > 1 {
		cnf.Status = rcn.StatusFailedToDiscover
	}
	if r.discoveryHitCount == 0 && cnf.Status == rcn.StatusSuccess {
		cnf.Status = rcn.StatusDiscoveryTimeout
	}
	if r.OnDiscoveryTimeout != nil && cnf.Status == rcn.StatusDiscoveryTimeout {
		go r.OnDiscoveryTimeout()
	}
	return cnf
}

// PairReq issues NLME-PAIR against the single peer accepted during
// discovery and, on success, hands the new pairing off to CONFIGURATION.
func (r *RTI) PairReq(appInfo rcn.AppInfo, keyExTransferCount int) (rcn.PairConfirm, error) {
	r.mu.Lock()
	if r.state != StateDiscovered || r.pendingDiscovered == nil {
		r.mu.Unlock()
		return rcn.PairConfirm{Status: rcn.StatusNotPermitted}, fmt.Errorf("rti: PairReq requires DISCOVERED with a single accepted peer")
	}
	peer := *r.pendingDiscovered
	r.setState(StatePair)
	r.mu.Unlock()

	cnf, err := r.layer.PairReq(peer, appInfo, keyExTransferCount)

	r.mu.Lock()
	if err != nil || cnf.Status != rcn.StatusSuccess {
		r.setState(StateReady)
		r.mu.Unlock()
		// The firmware collapses every non-success NLME-PAIR confirm status
		// into a single generic FAILED_TO_PAIR, discarding the underlying
		// NLME status code and the pairing ref/device type.
		cnf.Status = rcn.StatusFailedToPair
		cnf.PairingRef = InvalidPairingRef
		return cnf, err
	}
	r.setState(StateConfiguration)
	blackout := r.stack.ConfigBlackoutTime
	r.mu.Unlock()

	time.AfterFunc(blackout, func() { r.runConfiguration(cnf) })

	return cnf, nil
}

// runConfiguration walks the pairing entry's profile-discovery bitmap in
// ascending order (GDP first, then ZID, then Z3D) invoking each registered
// Configurator in turn. The first failure unpairs the peer and returns to
// READY without trying the remaining profiles.
func (r *RTI) runConfiguration(pairCnf rcn.PairConfirm) {
	r.mu.Lock()
	profileDisc := pairCnf.PeerDeviceInfo.ProfileIDList
	ref := pairCnf.PairingRef
	r.mu.Unlock()

	var bits []uint8
	for _, p := range profileDisc {
		bits = append(bits, p)
	}

	var failed bool
	var prevConfigured uint8
	for bit := uint8(0); bit < 32 && !failed; bit++ {
		r.mu.Lock()
		c, wired := r.configurators[bit]
		r.mu.Unlock()
		if !wired || !containsBit(bits, bit) {
			continue
		}
		result := <-c.Configure(ref)
		if result.Err != nil || result.Status != rcn.StatusSuccess {
			failed = true
			obs.WithPairing(ref).WithField("profile_bit", bit).
				WithError(result.Err).Warn("profile configuration failed")
			continue
		}
		prevConfigured++
	}

	r.mu.Lock()
	if failed {
		r.layer.UnpairReq(ref)
		pairCnf.Status = rcn.StatusFailedToConfigure(prevConfigured)
		pairCnf.PairingRef = InvalidPairingRef
	}
	r.setState(StateReady)
	cb := r.OnPairConfirm
	r.mu.Unlock()

	if cb != nil {
		cb(pairCnf)
	}
}

func containsBit(bits []uint8, want uint8) bool {
	for _, b := range bits {
		if b == want {
			return true
		}
	}
	return false
}

// UnpairReq removes a pairing and returns the machine to READY.
func (r *RTI) UnpairReq(ref uint8) rcn.Status {
	status := r.layer.UnpairReq(ref)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.bridged() {
		r.setState(StateReady)
	}
	return status
}

// AllowPairReq arms a bounded window during which an incoming pair
// indication is accepted; no indication within the window surfaces
// ALLOW_PAIRING_TIMEOUT through OnAllowPairConfirm.
func (r *RTI) AllowPairReq(window time.Duration) {
	if window <= 0 {
		window = r.stack.AllowPairIndicationWait
	}

	r.mu.Lock()
	if r.allowPairTimer != nil {
		r.allowPairTimer.Stop()
	}
	r.allowPairActive = true
	r.allowPairDeadline = time.Now().Add(window)
	r.allowPairTimer = time.AfterFunc(window, r.allowPairExpired)
	r.mu.Unlock()
}

func (r *RTI) allowPairExpired() {
	r.mu.Lock()
	if !r.allowPairActive {
		r.mu.Unlock()
		return
	}
	r.allowPairActive = false
	cb := r.OnAllowPairConfirm
	r.mu.Unlock()

	if cb != nil {
		cb(AllowPairConfirm{
			Status:  rcn.StatusAllowPairingTimeout,
			Ref:     InvalidPairingRef,
			DevType: InvalidDeviceType,
		})
	}
}

// AllowPairAbortReq cancels an outstanding allow-pair window.
func (r *RTI) AllowPairAbortReq() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allowPairTimer != nil {
		r.allowPairTimer.Stop()
	}
	r.allowPairActive = false
}

// PairIndicationReceived is called by the network layer when a peer
// pair-request arrives while AllowPairReq's window is open. It atomically
// clears the allow-pair flag before the caller issues NLME-PAIR.response,
// matching the firmware's guard against a race between the window timer
// and the indication.
func (r *RTI) PairIndicationReceived() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.allowPairActive {
		return false
	}
	if time.Now().After(r.allowPairDeadline) {
		r.allowPairActive = false
		return false
	}
	r.allowPairActive = false
	if r.allowPairTimer != nil {
		r.allowPairTimer.Stop()
	}
	return true
}
