// Package cld implements the ZID Class-Device (controller) role: the
// configuration-phase descriptor/null-report push sequence and the
// runtime report transport, grounded on the Class-Device sub-state walk
// eCldCfgGet -> eCldCfgPxy -> eCldCfgExt -> eCldCfgXmitNonStdDescCompFrags
// -> eCldCfgNullReports -> eCldCfgComplete -> eCldCfgRdy -> eCldRdy.
package cld

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

// NonStdDescComponent is one non-standard HID descriptor this Class
// Device pushes during configuration.
type NonStdDescComponent struct {
	ReportID uint8
	Data     []byte
}

// ProxyEntryAttrs are the attribute-id/value records pushed as the
// Class Device's proxy-entry description (parser version, vendor,
// product, country, standard-descriptor list, ...). The caller supplies
// the encoded records; cld does not interpret their contents.
type ProxyEntryAttrs []gdp.AttributeRecord

// NullReportSpec is one NULL report provisioned for a non-std descriptor
// component during configuration.
type NullReportSpec struct {
	ReportID uint8
	Data     []byte
}

// DataTransport is the narrow NLDE-DATA-backed surface cld needs to send
// ZID runtime commands (Report-Data, Get-Report response) to the paired
// Adapter.
type DataTransport interface {
	DataReq(ref uint8, profileID uint8, vendorID uint16, opts rcn.TxOptions, nsdu []byte) rcn.Status
}

// Layer is the Class-Device ZID co-layer for one local device. One Layer
// instance serves every pairing; per-pairing state (cfg_complete_disc) is
// tracked internally and persisted through store.
type Layer struct {
	stack  *config.Stack
	gdp    *gdp.Layer
	data   DataTransport
	store  *nvstore.Store
	unsafe *common.UnsafeWindowGuard

	mu              sync.Mutex
	cfgCompleteDisc map[uint8]bool

	ProxyAttrs   ProxyEntryAttrs
	NonStdDescs  []NonStdDescComponent
	NullReports  []NullReportSpec
	ProfileID    uint8
	VendorID     uint16
}

// New constructs a Class-Device ZID layer.
func New(stack *config.Stack, gdpLayer *gdp.Layer, data DataTransport, store *nvstore.Store) *Layer {
	return &Layer{
		stack:           stack,
		gdp:             gdpLayer,
		data:            data,
		store:           store,
		unsafe:          common.NewUnsafeWindowGuard(stack),
		cfgCompleteDisc: make(map[uint8]bool),
	}
}

// Configure implements rti.Configurator for the ZID profile bit: it runs
// the eCldCfgGet..eCldCfgRdy sequence against the pairing at ref and
// reports the terminal result. Runs synchronously on the calling task
// thread; the returned channel is already filled and closed.
func (l *Layer) Configure(ref uint8) <-chan rti.ConfigResult {
	ch := make(chan rti.ConfigResult, 1)
	ch <- rti.ConfigResult{Status: l.runConfiguration(ref)}
	close(ch)
	return ch
}

func (l *Layer) runConfiguration(ref uint8) rcn.Status {
	// eCldCfgGet: issue GDP_GET_ATTR for the Adapter-side HID parser,
	// country, release, vendor and product attributes.
	if _, err := l.gdp.GetAttributes(ref, []uint8{common.AttrHIDParserVersion, common.AttrHIDCountryCode, common.AttrHIDDeviceReleaseNumber, common.AttrHIDVendorID, common.AttrHIDProductID}); err != nil {
		obs.WithPairing(ref).WithError(err).Warn("zid cld: GET_ATTR failed during configuration")
		return rcn.StatusCommunication
	}

	// eCldCfgPxy / eCldCfgExt: push the full proxy-entry attribute set in
	// a single Push-Attributes frame.
	code, err := l.gdp.PushAttributes(ref, l.ProxyAttrs)
	if err != nil {
		return rcn.StatusCommunication
	}
	if code != gdp.RspSuccess {
		return rcn.StatusInvalidParameter
	}

	// eCldCfgXmitNonStdDescCompFrags: push each non-standard descriptor
	// component in ceil(size/aplcMaxNonStdDescFragmentSize) fragments.
	for _, desc := range l.NonStdDescs {
		if err := l.pushNonStdDesc(ref, desc); err != nil {
			obs.WithPairing(ref).WithError(err).Warn("zid cld: non-std descriptor push failed")
			return rcn.StatusInvalidParameter
		}
	}

	// eCldCfgNullReports: provision NULL reports via SET_REPORT(type=IN).
	for _, nr := range l.NullReports {
		report := common.Report{Type: common.ReportIn, ID: nr.ReportID, Data: nr.Data}
		if status := l.data.DataReq(ref, l.ProfileID, l.VendorID, rcn.TxOptAcknowledged, encodeZIDCommand(common.CmdSetReport, common.EncodeReport(report))); status != rcn.StatusSuccess {
			return status
		}
	}

	// eCldCfgComplete: emit CFG_COMPLETE and require Generic-Response(success).
	rsp, err := l.gdp.ConfigComplete(ref)
	if err != nil {
		return rcn.StatusCommunication
	}
	if rsp != gdp.RspSuccess {
		return rcn.StatusInvalidParameter
	}

	l.mu.Lock()
	l.cfgCompleteDisc[ref] = true
	l.mu.Unlock()
	if l.store != nil {
		l.store.Put(nvstore.ItemZIDPairInfo, fmt.Sprintf("cfg_complete_%d", ref), true)
	}

	obs.WithPairing(ref).Info("zid cld: configuration complete")
	return rcn.StatusSuccess
}

func (l *Layer) pushNonStdDesc(ref uint8, desc NonStdDescComponent) error {
	fragSize := l.stack.MaxNonStdDescFragmentSize
	total := len(desc.Data)
	count := common.FragmentCount(l.stack, total)
	for frag := 0; frag < count; frag++ {
		start := frag * fragSize
		end := start + fragSize
		if end > total {
			end = total
		}
		record := gdp.AttributeRecord{
			ID:    common.AttrHIDNonStdDescCompSpecN,
			Value: common.EncodeNonStdDescFragment(uint8(frag), desc.ReportID, total, desc.Data[start:end]),
		}
		code, err := l.gdp.PushAttributes(ref, []gdp.AttributeRecord{record})
		if err != nil {
			return err
		}
		if code != gdp.RspSuccess {
			return fmt.Errorf("zid cld: fragment %d/%d rejected (%v)", frag, count-1, code)
		}
	}
	return nil
}

func encodeZIDCommand(cmd uint8, payload []byte) []byte {
	return append([]byte{cmd}, payload...)
}

// SendDataReq selects tx-options from wantInterruptPipe and the
// unsafe-window guard; the first byte of nsdu is not inspected to choose
// the pipe. An Interrupt-Pipe attempt made while
// still inside the unsafe window is upgraded to an acknowledged
// control-pipe transmission.
func (l *Layer) SendDataReq(ref uint8, now time.Time, wantInterruptPipe bool, nsdu []byte) rcn.Status {
	opts := rcn.TxOptSingleChannel
	if !wantInterruptPipe || l.unsafe.Unsafe(ref, now) {
		opts = rcn.TxOptAcknowledged
	} else {
		l.unsafe.RecordInterruptPipeTx(ref, now)
	}
	return l.data.DataReq(ref, l.ProfileID, l.VendorID, opts, nsdu)
}

// SendReport transmits one Report-Data frame for ref over the interrupt
// pipe, subject to the unsafe-window upgrade in SendDataReq.
func (l *Layer) SendReport(ref uint8, now time.Time, report common.Report) rcn.Status {
	nsdu := encodeZIDCommand(common.CmdReportData, common.EncodeReport(report))
	return l.SendDataReq(ref, now, true, nsdu)
}

// CfgCompleteDisc reports whether ref finished ZID configuration.
func (l *Layer) CfgCompleteDisc(ref uint8) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfgCompleteDisc[ref]
}

// ClearPair drops per-pairing ZID state, invoked by pairing.Table's clear
// hook so Class-Device state never outlives its pairing entry.
func (l *Layer) ClearPair(ref uint8) {
	l.mu.Lock()
	delete(l.cfgCompleteDisc, ref)
	l.mu.Unlock()
	if l.store != nil {
		l.store.Delete(nvstore.ItemZIDPairInfo, fmt.Sprintf("cfg_complete_%d", ref))
	}
}
