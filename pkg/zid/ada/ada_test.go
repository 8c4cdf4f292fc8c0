package ada

import (
	"testing"
	"time"

	"github.com/rf4ce/remoti/pkg/config"
	"github.com/rf4ce/remoti/pkg/gdp"
	"github.com/rf4ce/remoti/pkg/rcn"
	"github.com/rf4ce/remoti/pkg/zid/common"
)

func TestConfigureSucceedsAfterDiscretesCleared(t *testing.T) {
	stack := config.Defaults()
	l := New(stack, nil)

	resultCh := l.Configure(1)
	code := l.HandlePushAttr(1, []gdp.AttributeRecord{{ID: gdp.AttrKeyExchangeTransferCount, Value: []byte{3}}})
	if code != gdp.RspSuccess {
		t.Fatalf("HandlePushAttr() = %v, want success", code)
	}
	if code := l.HandleCfgComplete(1); code != gdp.RspSuccess {
		t.Fatalf("HandleCfgComplete() = %v, want success", code)
	}

	select {
	case result := <-resultCh:
		if result.Status != rcn.StatusSuccess {
			t.Errorf("Configure() result = %+v, want success", result)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Configure() result")
	}

	if _, ok := l.ProxyEntryFor(1); !ok {
		t.Error("proxy entry should be committed after successful configuration")
	}
}

func TestConfigureFailsWhenDiscretesRemain(t *testing.T) {
	stack := config.Defaults()
	l := New(stack, nil)
	resultCh := l.Configure(1)

	if code := l.HandleCfgComplete(1); code != gdp.RspConfigFailure {
		t.Fatalf("HandleCfgComplete() = %v, want config failure", code)
	}

	select {
	case result := <-resultCh:
		if result.Status == rcn.StatusSuccess {
			t.Error("Configure() should not succeed while discretes remain outstanding")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Configure() result")
	}
}

func TestConfigureTimesOutWithoutCfgComplete(t *testing.T) {
	stack := config.Defaults()
	stack.MaxConfigWaitTime = 5 * time.Millisecond
	l := New(stack, nil)

	resultCh := l.Configure(1)
	select {
	case result := <-resultCh:
		if result.Status != rcn.StatusSecurityTimeout {
			t.Errorf("Configure() result = %+v, want SECURITY_TIMEOUT", result)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Configure() to time out")
	}
}

func TestHandleSetReportProvisionsNullReport(t *testing.T) {
	stack := config.Defaults()
	l := New(stack, nil)
	report := common.Report{Type: common.ReportIn, ID: 9, Data: []byte{0, 0}}
	if code := l.HandleSetReport(1, report); code != gdp.RspSuccess {
		t.Fatalf("HandleSetReport() = %v, want success", code)
	}

	fired := make(chan common.Report, 1)
	timer := l.IdleRateGuard(1, 9, func(r common.Report) { fired <- r })
	defer timer.Stop()

	select {
	case r := <-fired:
		if r.ID != 9 {
			t.Errorf("idle-rate guard fired with report id %d, want 9", r.ID)
		}
	case <-time.After(stack.IdleRateGuardTime + 500*time.Millisecond):
		t.Fatal("idle-rate guard did not fire")
	}
}

func TestHandleReportDataRejectsUnconfiguredPair(t *testing.T) {
	stack := config.Defaults()
	l := New(stack, nil)
	err := l.HandleReportData(1, common.Report{Type: common.ReportIn, ID: 1}, true)
	if err == nil {
		t.Error("HandleReportData should reject a pair that has not completed configuration")
	}
}

func TestHandleReportDataRejectsUnsecuredKeyboardReport(t *testing.T) {
	stack := config.Defaults()
	l := New(stack, nil)
	l.proxies[1] = ProxyEntry{}

	keyboard := common.Report{Type: common.ReportIn, ID: common.ReportIDKeyboard, Data: make([]byte, 8)}
	if err := l.HandleReportData(1, keyboard, false); err == nil {
		t.Error("HandleReportData should reject a keyboard report without security applied")
	}
	if err := l.HandleReportData(1, keyboard, true); err != nil {
		t.Errorf("HandleReportData() with security applied = %v, want nil", err)
	}

	mouse := common.Report{Type: common.ReportIn, ID: common.ReportIDMouse, Data: make([]byte, 3)}
	if err := l.HandleReportData(1, mouse, false); err != nil {
		t.Errorf("HandleReportData() for a non-keyboard report without security = %v, want nil", err)
	}
}

func TestHandlePushAttrReassemblesNonStdDescriptorFragments(t *testing.T) {
	stack := config.Defaults()
	l := New(stack, nil)
	resultCh := l.Configure(1)

	data := []byte("a non standard hid report descriptor blob")
	fragSize := stack.MaxNonStdDescFragmentSize
	if fragSize <= 0 || fragSize > len(data) {
		fragSize = len(data)
	}
	for i := 0; i*fragSize < len(data); i++ {
		start := i * fragSize
		end := start + fragSize
		if end > len(data) {
			end = len(data)
		}
		rec := gdp.AttributeRecord{
			ID:    common.AttrHIDNonStdDescCompSpecN,
			Value: common.EncodeNonStdDescFragment(uint8(i), 7, len(data), data[start:end]),
		}
		if code := l.HandlePushAttr(1, []gdp.AttributeRecord{rec}); code != gdp.RspSuccess {
			t.Fatalf("HandlePushAttr() fragment %d = %v, want success", i, code)
		}
	}
	l.HandlePushAttr(1, []gdp.AttributeRecord{{ID: gdp.AttrKeyExchangeTransferCount, Value: []byte{1}}})

	if code := l.HandleCfgComplete(1); code != gdp.RspSuccess {
		t.Fatalf("HandleCfgComplete() = %v, want success", code)
	}
	if result := <-resultCh; result.Status != rcn.StatusSuccess {
		t.Fatalf("Configure() result = %+v, want success", result)
	}
	proxy, ok := l.ProxyEntryFor(1)
	if !ok {
		t.Fatal("expected committed proxy entry")
	}
	if len(proxy.NonStdDescIDs) != 1 || proxy.NonStdDescIDs[0] != 7 {
		t.Errorf("proxy.NonStdDescIDs = %v, want [7]", proxy.NonStdDescIDs)
	}
}

func TestHandlePushAttrRejectsOutOfOrderFragment(t *testing.T) {
	stack := config.Defaults()
	l := New(stack, nil)
	l.Configure(1)

	rec := gdp.AttributeRecord{
		ID:    common.AttrHIDNonStdDescCompSpecN,
		Value: common.EncodeNonStdDescFragment(1, 7, 10, []byte{1, 2, 3}),
	}
	if code := l.HandlePushAttr(1, []gdp.AttributeRecord{rec}); code != gdp.RspInvalidParameter {
		t.Errorf("HandlePushAttr() = %v, want RspInvalidParameter for an out-of-order fragment", code)
	}
}

func TestClearPairRemovesAllState(t *testing.T) {
	stack := config.Defaults()
	l := New(stack, nil)
	resultCh := l.Configure(1)
	l.HandlePushAttr(1, []gdp.AttributeRecord{{ID: gdp.AttrKeyExchangeTransferCount, Value: []byte{3}}})
	l.HandleCfgComplete(1)
	<-resultCh

	l.ClearPair(1)
	if _, ok := l.ProxyEntryFor(1); ok {
		t.Error("ClearPair should remove the committed proxy entry")
	}
}
