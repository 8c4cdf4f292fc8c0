package rti

import (
	"sync"
	"testing"
	"time"

	"github.com/rf4ce/remoti/pkg/config"
	"github.com/rf4ce/remoti/pkg/pairing"
	"github.com/rf4ce/remoti/pkg/rcn"
)

type stubConfigurator struct {
	status rcn.Status
	err    error
}

func (s *stubConfigurator) Configure(ref uint8) <-chan ConfigResult {
	ch := make(chan ConfigResult, 1)
	ch <- ConfigResult{Status: s.status, Err: s.err}
	close(ch)
	return ch
}

func newTestRTI(t *testing.T) (*RTI, *rcn.SimMAC) {
	t.Helper()
	stack := config.Defaults()
	stack.ConfigBlackoutTime = 5 * time.Millisecond
	mac := rcn.NewSimMAC()
	table := pairing.New(stack.PairingTableSize, nil)
	layer := rcn.NewLayer(stack, mac, table)
	r := New(stack, layer, nil)
	return r, mac
}

func peerEvent(id byte, profiles ...uint8) rcn.DiscoveredEvent {
	return rcn.DiscoveredEvent{
		Channel:        15,
		PeerExtAddr:    [8]byte{id, 1, 2, 3, 4, 5, 6, 7},
		PeerShortAddr:  uint16(id),
		LQI:            255,
		DeviceTypeList: []uint8{1},
		ProfileIDList:  profiles,
	}
}

func startAndDiscoverOne(t *testing.T, r *RTI, ev rcn.DiscoveredEvent) rcn.DiscoveryConfirm {
	t.Helper()
	if status, err := r.StartReq(); status != rcn.StatusSuccess || err != nil {
		t.Fatalf("StartReq() = %v, %v", status, err)
	}
	if err := r.DiscoveryReq(); err != nil {
		t.Fatalf("DiscoveryReq() error = %v", err)
	}
	r.layer.HandleDiscoveryIndication(ev)
	return r.DiscoveryConfirm()
}

func TestInitReqColdBootReturnsReadyState(t *testing.T) {
	r, _ := newTestRTI(t)
	cp, err := r.InitReq(RestoreState)
	if err != nil {
		t.Fatalf("InitReq() error = %v", err)
	}
	if cp.PairingTableSize != r.stack.PairingTableSize {
		t.Errorf("CPTable.PairingTableSize = %d, want %d", cp.PairingTableSize, r.stack.PairingTableSize)
	}
	if r.State() != StateReady {
		t.Errorf("state = %s, want READY", r.State())
	}
}

func TestInitReqClearStateClearsPairingTable(t *testing.T) {
	r, _ := newTestRTI(t)
	entry := pairing.Entry{PeerExtAddr: [8]byte{9}, PeerShortAddr: 9}
	if err := r.layer.PairingTable().Install(0, entry); err != nil {
		t.Fatalf("install entry: %v", err)
	}
	if _, err := r.InitReq(ClearState); err != nil {
		t.Fatalf("InitReq() error = %v", err)
	}
	if len(r.layer.PairingTable().IterActive()) != 0 {
		t.Error("ClearState should leave no active pairing entries")
	}
}

func TestDiscoveryPushButtonPolicySingleHitReachesDiscovered(t *testing.T) {
	r, _ := newTestRTI(t)
	cnf := startAndDiscoverOne(t, r, peerEvent(1))
	if cnf.Status != rcn.StatusSuccess || cnf.NumNodes != 1 {
		t.Fatalf("DiscoveryConfirm() = %+v, want success/1", cnf)
	}
	if r.State() != StateDiscovered {
		t.Errorf("state = %s, want DISCOVERED", r.State())
	}
}

func TestDiscoveryPushButtonPolicyTwoHitsForcesDiscoveryError(t *testing.T) {
	r, _ := newTestRTI(t)
	if status, err := r.StartReq(); status != rcn.StatusSuccess || err != nil {
		t.Fatalf("StartReq() = %v, %v", status, err)
	}
	if err := r.DiscoveryReq(); err != nil {
		t.Fatalf("DiscoveryReq() error = %v", err)
	}
	r.layer.HandleDiscoveryIndication(peerEvent(1))
	r.layer.HandleDiscoveryIndication(peerEvent(2))

	cnf := r.DiscoveryConfirm()
	if cnf.Status != rcn.StatusFailedToDiscover {
		t.Errorf("status = %v, want FAILED_TO_DISCOVER", cnf.Status)
	}
	if r.State() != StateDiscoveryError {
		t.Errorf("state = %s, want DISCOVERY_ERROR", r.State())
	}
}

func TestPairReqRequiresDiscoveredState(t *testing.T) {
	r, _ := newTestRTI(t)
	_, err := r.PairReq(rcn.AppInfo{}, 3)
	if err == nil {
		t.Error("PairReq() from START should fail")
	}
}

func TestPairConfirmRunsConfigurationChainToSuccess(t *testing.T) {
	r, _ := newTestRTI(t)
	r.RegisterConfigurator(ProfileBitGDP, &stubConfigurator{status: rcn.StatusSuccess})

	cnf := startAndDiscoverOne(t, r, peerEvent(1, ProfileBitGDP))
	if cnf.Status != rcn.StatusSuccess {
		t.Fatalf("DiscoveryConfirm() = %+v", cnf)
	}

	var mu sync.Mutex
	var got *rcn.PairConfirm
	done := make(chan struct{})
	r.OnPairConfirm = func(pc rcn.PairConfirm) {
		mu.Lock()
		got = &pc
		mu.Unlock()
		close(done)
	}

	pairCnf, err := r.PairReq(rcn.AppInfo{}, 3)
	if err != nil || pairCnf.Status != rcn.StatusSuccess {
		t.Fatalf("PairReq() = %+v, %v", pairCnf, err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for configuration chain to complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if got == nil || got.Status != rcn.StatusSuccess {
		t.Errorf("OnPairConfirm result = %+v, want success", got)
	}
	if r.State() != StateReady {
		t.Errorf("state = %s, want READY after configuration", r.State())
	}
}

func TestConfigurationFailureUnpairsAndReturnsReady(t *testing.T) {
	r, _ := newTestRTI(t)
	r.RegisterConfigurator(ProfileBitGDP, &stubConfigurator{status: rcn.StatusSecurityFailure})

	cnf := startAndDiscoverOne(t, r, peerEvent(1, ProfileBitGDP))
	if cnf.Status != rcn.StatusSuccess {
		t.Fatalf("DiscoveryConfirm() = %+v", cnf)
	}

	done := make(chan struct{})
	r.OnPairConfirm = func(rcn.PairConfirm) { close(done) }

	pairCnf, err := r.PairReq(rcn.AppInfo{}, 3)
	if err != nil || pairCnf.Status != rcn.StatusSuccess {
		t.Fatalf("PairReq() = %+v, %v", pairCnf, err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for configuration chain to complete")
	}

	if r.State() != StateReady {
		t.Errorf("state = %s, want READY after failed configuration", r.State())
	}
	if _, ok := r.layer.PairingTable().Lookup(pairCnf.PairingRef); ok {
		t.Error("pairing entry should have been removed after configuration failure")
	}
}

func TestAllowPairTimeoutFiresWithoutIndication(t *testing.T) {
	r, _ := newTestRTI(t)
	done := make(chan AllowPairConfirm, 1)
	r.OnAllowPairConfirm = func(c AllowPairConfirm) { done <- c }

	r.AllowPairReq(20 * time.Millisecond)

	select {
	case c := <-done:
		if c.Status != rcn.StatusAllowPairingTimeout {
			t.Errorf("allow-pair timeout status = %v, want ALLOW_PAIRING_TIMEOUT", c.Status)
		}
		if c.Ref != InvalidPairingRef || c.DevType != InvalidDeviceType {
			t.Errorf("allow-pair timeout ref/devType = %d/%d, want invalid sentinels", c.Ref, c.DevType)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for allow-pair timeout")
	}
}

func TestAllowPairIndicationWithinWindowClearsFlag(t *testing.T) {
	r, _ := newTestRTI(t)
	fired := false
	r.OnAllowPairConfirm = func(AllowPairConfirm) { fired = true }

	r.AllowPairReq(100 * time.Millisecond)
	if !r.PairIndicationReceived() {
		t.Fatal("PairIndicationReceived() should accept within the allow-pair window")
	}

	time.Sleep(150 * time.Millisecond)
	if fired {
		t.Error("allow-pair timeout should not fire once an indication was accepted")
	}
}

func TestDiscoveryFilterRejectsUnwantedTargetType(t *testing.T) {
	r, _ := newTestRTI(t)
	r.SetDiscoveryFilter(nil, []uint8{9})

	if status, err := r.StartReq(); status != rcn.StatusSuccess || err != nil {
		t.Fatalf("StartReq() = %v, %v", status, err)
	}
	if err := r.DiscoveryReq(); err != nil {
		t.Fatalf("DiscoveryReq() error = %v", err)
	}
	r.layer.HandleDiscoveryIndication(peerEvent(1)) // DeviceTypeList is {1}, filter wants {9}

	cnf := r.DiscoveryConfirm()
	if cnf.Status != rcn.StatusDiscoveryTimeout {
		t.Errorf("status = %v, want DISCOVERY_TIMEOUT (filtered out)", cnf.Status)
	}
}
