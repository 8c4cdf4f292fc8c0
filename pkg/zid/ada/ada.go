// Package ada implements the ZID Adapter (target) role: configuration
// intake from a paired Class Device, the proxy table, the NULL-report
// store, and the idle-rate guard, grounded on the Adapter sub-state walk
// eAdaDor -> eAdaCfg -> eAdaUnpair -> eAdaRdy.
package ada

import (
	"fmt"
	"sync"
	"time"

	"github.com/rf4ce/remoti/internal/obs"
	"github.com/rf4ce/remoti/pkg/config"
	"github.com/rf4ce/remoti/pkg/gdp"
	"github.com/rf4ce/remoti/pkg/nvstore"
	"github.com/rf4ce/remoti/pkg/rcn"
	"github.com/rf4ce/remoti/pkg/rti"
	"github.com/rf4ce/remoti/pkg/zid/common"
)

// ProxyEntry is the HID descriptor metadata extracted from a paired
// Class Device over the course of configuration.
type ProxyEntry struct {
	ParserVersion   uint8
	Release         uint16
	VendorID        uint16
	ProductID       uint16
	CountryCode     uint8
	CurrentProtocol uint8
	DeviceIdleRate  uint8
	StdDescIDs      []uint8
	NonStdDescIDs   []uint8
}

type pendingConfig struct {
	expectedDiscretes map[uint8]bool // attribute/descriptor ids still awaited
	entry             ProxyEntry
	reassemblers      map[uint8]*common.NonStdDescReassembler
	done              chan rti.ConfigResult
	timeout           *time.Timer
}

// Layer is the Adapter ZID co-layer for one local device.
type Layer struct {
	stack *config.Stack
	store *nvstore.Store

	mu        sync.Mutex
	pending   map[uint8]*pendingConfig
	proxies   map[uint8]ProxyEntry
	nullReps  map[uint8]map[uint8]common.Report // ref -> reportID -> report

	LocalAttrs func(ref uint8) []gdp.AttributeRecord

	// OnReport is invoked for validated runtime Report-Data from the pair.
	OnReport func(ref uint8, report common.Report)
}

// New constructs an Adapter ZID layer.
func New(stack *config.Stack, store *nvstore.Store) *Layer {
	return &Layer{
		stack:    stack,
		store:    store,
		pending:  make(map[uint8]*pendingConfig),
		proxies:  make(map[uint8]ProxyEntry),
		nullReps: make(map[uint8]map[uint8]common.Report),
	}
}

// Configure implements rti.Configurator for the ZID profile bit on the
// Adapter side: it arms a 2x aplcMaxConfigWaitTime timer and returns the
// pending entry's own result channel directly. No goroutine is spawned
// here; the channel is written synchronously by whichever task-thread
// event completes the configuration first — HandleCfgComplete, or the
// timer service firing configTimeout.
func (l *Layer) Configure(ref uint8) <-chan rti.ConfigResult {
	l.mu.Lock()
	pc := &pendingConfig{
		expectedDiscretes: map[uint8]bool{gdp.AttrKeyExchangeTransferCount: true},
		reassemblers:      make(map[uint8]*common.NonStdDescReassembler),
		done:              make(chan rti.ConfigResult, 1),
	}
	pc.timeout = time.AfterFunc(2*l.stack.MaxConfigWaitTime, func() { l.configTimeout(ref) })
	l.pending[ref] = pc
	l.mu.Unlock()

	return pc.done
}

// configTimeout fires on the timer service when no CFG_COMPLETE arrived
// within the configuration window; a no-op if configuration already
// completed (HandleCfgComplete already removed the pending entry).
func (l *Layer) configTimeout(ref uint8) {
	l.mu.Lock()
	pc, ok := l.pending[ref]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.pending, ref)
	l.mu.Unlock()

	pc.done <- rti.ConfigResult{Status: rcn.StatusSecurityTimeout}
	close(pc.done)
}

// HandleGetAttr packs this Adapter's attribute values for a GET_ATTR
// request arriving during configuration or at runtime.
func (l *Layer) HandleGetAttr(ref uint8, ids []uint8) []gdp.AttributeRecord {
	if l.LocalAttrs != nil {
		return l.LocalAttrs(ref)
	}
	return nil
}

// HandlePushAttr walks attribute records pushed by the Class Device,
// clearing the matching expected-configuration discrete; non-standard
// descriptor fragments are reassembled through the shared machinery.
// Other records are not range-checked: their values are not inspected.
func (l *Layer) HandlePushAttr(ref uint8, records []gdp.AttributeRecord) gdp.ResponseCode {
	l.mu.Lock()
	pc, ok := l.pending[ref]
	l.mu.Unlock()
	if !ok {
		return gdp.RspUnsupportedReq
	}

	for _, rec := range records {
		if rec.ID == common.AttrHIDNonStdDescCompSpecN {
			if err := l.reassembleNonStdDesc(pc, rec.Value); err != nil {
				return gdp.RspInvalidParameter
			}
			continue
		}
		delete(pc.expectedDiscretes, rec.ID)
	}
	return gdp.RspSuccess
}

// reassembleNonStdDesc feeds one non-std-descriptor fragment record
// through the shared reassembler keyed by report id, completing the
// descriptor into pc.entry once the final fragment arrives.
func (l *Layer) reassembleNonStdDesc(pc *pendingConfig, value []byte) error {
	fragID, reportID, totalSize, chunk, err := common.DecodeNonStdDescFragment(value)
	if err != nil {
		return err
	}
	rsm, ok := pc.reassemblers[reportID]
	if !ok {
		rsm = common.NewNonStdDescReassembler(l.stack)
		pc.reassemblers[reportID] = rsm
	}
	desc, err := rsm.Fragment(fragID, reportID, totalSize, chunk)
	if err != nil {
		return err
	}
	if desc != nil {
		pc.entry.NonStdDescIDs = append(pc.entry.NonStdDescIDs, reportID)
		delete(pc.reassemblers, reportID)
	}
	return nil
}

// HandleSetReport provisions a NULL report (type=IN) for a non-std report
// id, persisting it in NV.
func (l *Layer) HandleSetReport(ref uint8, report common.Report) gdp.ResponseCode {
	if report.Type != common.ReportIn {
		return gdp.RspUnsupportedReq
	}
	l.mu.Lock()
	if l.nullReps[ref] == nil {
		l.nullReps[ref] = make(map[uint8]common.Report)
	}
	l.nullReps[ref][report.ID] = report
	l.mu.Unlock()

	if l.store != nil {
		l.store.Put(nvstore.ItemNullReport, fmt.Sprintf("%d_%d", ref, report.ID), report)
	}
	return gdp.RspSuccess
}

// HandleCfgComplete verifies every expected configuration discrete has
// been cleared, and on success commits the proxy entry, adds the pairing
// to the proxy table, and unblocks Configure's waiter.
func (l *Layer) HandleCfgComplete(ref uint8) gdp.ResponseCode {
	l.mu.Lock()
	pc, ok := l.pending[ref]
	if !ok {
		l.mu.Unlock()
		return gdp.RspUnsupportedReq
	}
	delete(l.pending, ref)
	pc.timeout.Stop()

	if len(pc.expectedDiscretes) > 0 {
		l.mu.Unlock()
		pc.done <- rti.ConfigResult{Status: rcn.StatusInvalidParameter}
		close(pc.done)
		return gdp.RspConfigFailure
	}

	l.proxies[ref] = pc.entry
	l.mu.Unlock()

	if l.store != nil {
		l.store.Put(nvstore.ItemProxyEntry, fmt.Sprintf("%d", ref), pc.entry)
	}
	obs.WithPairing(ref).Info("zid ada: configuration complete")
	pc.done <- rti.ConfigResult{Status: rcn.StatusSuccess}
	close(pc.done)
	return gdp.RspSuccess
}

// ProxyEntryFor returns the committed proxy entry for ref, if any.
func (l *Layer) ProxyEntryFor(ref uint8) (ProxyEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.proxies[ref]
	return e, ok
}

// Proxies returns a snapshot of every committed proxy entry, keyed by
// pairing ref.
func (l *Layer) Proxies() map[uint8]ProxyEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[uint8]ProxyEntry, len(l.proxies))
	for ref, e := range l.proxies {
		out[ref] = e
	}
	return out
}

// HandleReportData validates and forwards a runtime Report-Data frame: only
// valid once configuration has completed for ref, and keyboard reports are
// rejected unless they arrived with security applied.
func (l *Layer) HandleReportData(ref uint8, report common.Report, securityApplied bool) error {
	l.mu.Lock()
	_, configured := l.proxies[ref]
	l.mu.Unlock()
	if !configured {
		return fmt.Errorf("zid ada: Report-Data from unconfigured pair %d", ref)
	}
	if report.ID == common.ReportIDKeyboard && !securityApplied {
		return fmt.Errorf("zid ada: keyboard Report-Data from pair %d without security applied", ref)
	}
	if l.OnReport != nil {
		l.OnReport(ref, report)
	}
	return nil
}

// IdleRateGuard fires callback with the cached NULL report for
// reportID once aplcIdleRateGuardTime elapses without a fresh report,
// synthesizing the report up to Application.
func (l *Layer) IdleRateGuard(ref uint8, reportID uint8, callback func(common.Report)) *time.Timer {
	return time.AfterFunc(l.stack.IdleRateGuardTime, func() {
		l.mu.Lock()
		report, ok := l.nullReps[ref][reportID]
		l.mu.Unlock()
		if ok {
			callback(report)
		}
	})
}

// ClearPair drops all Adapter-side state for ref, invoked by
// pairing.Table's clear hook.
func (l *Layer) ClearPair(ref uint8) {
	l.mu.Lock()
	if pc, ok := l.pending[ref]; ok {
		pc.timeout.Stop()
	}
	delete(l.pending, ref)
	delete(l.proxies, ref)
	delete(l.nullReps, ref)
	l.mu.Unlock()
	if l.store != nil {
		l.store.Delete(nvstore.ItemProxyEntry, fmt.Sprintf("%d", ref))
	}
}
