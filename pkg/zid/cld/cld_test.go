package cld

import (
	"testing"

	"github.com/rf4ce/remoti/pkg/config"
	"github.com/rf4ce/remoti/pkg/gdp"
	"github.com/rf4ce/remoti/pkg/rcn"
)

type stubGDPTransport struct {
	genericOK bool
}

func (s *stubGDPTransport) SendReceive(pairRef uint8, cmd gdp.Command, payload []byte) ([]byte, error) {
	if cmd == gdp.CmdGetAttributes {
		return gdp.EncodeGetAttributesResponse([]gdp.AttributeRecord{
			{ID: gdp.AttrKeyExchangeTransferCount, Status: gdp.AttrSuccess, Value: []byte{3}},
		}), nil
	}
	if s.genericOK {
		return gdp.EncodeGenericResponse(gdp.RspSuccess), nil
	}
	return gdp.EncodeGenericResponse(gdp.RspConfigFailure), nil
}

type stubDataTransport struct {
	sent   [][]byte
	status rcn.Status
}

func (s *stubDataTransport) DataReq(ref uint8, profileID uint8, vendorID uint16, opts rcn.TxOptions, nsdu []byte) rcn.Status {
	s.sent = append(s.sent, nsdu)
	if s.status == 0 {
		return rcn.StatusSuccess
	}
	return s.status
}

func TestConfigureHappyPathReachesCfgComplete(t *testing.T) {
	stack := config.Defaults()
	gdpLayer := gdp.NewLayer(&stubGDPTransport{genericOK: true})
	data := &stubDataTransport{}
	l := New(stack, gdpLayer, data, nil)
	l.NonStdDescs = []NonStdDescComponent{{ReportID: 1, Data: make([]byte, 100)}}
	l.NullReports = []NullReportSpec{{ReportID: 1, Data: []byte{0, 0}}}

	result := <-l.Configure(0)
	if result.Status != rcn.StatusSuccess {
		t.Fatalf("Configure() = %+v, want success", result)
	}
	if !l.CfgCompleteDisc(0) {
		t.Error("CfgCompleteDisc(0) should be true after successful configuration")
	}
	if len(data.sent) != 1 {
		t.Errorf("expected one NULL-report SET_REPORT send, got %d", len(data.sent))
	}
}

func TestConfigureFailsWhenPushAttributesRejected(t *testing.T) {
	stack := config.Defaults()
	gdpLayer := gdp.NewLayer(&stubGDPTransport{genericOK: false})
	l := New(stack, gdpLayer, &stubDataTransport{}, nil)

	result := <-l.Configure(0)
	if result.Status == rcn.StatusSuccess {
		t.Error("Configure() should fail when the peer rejects Push-Attributes")
	}
	if l.CfgCompleteDisc(0) {
		t.Error("CfgCompleteDisc(0) should remain false after a failed configuration")
	}
}

func TestClearPairRemovesState(t *testing.T) {
	stack := config.Defaults()
	gdpLayer := gdp.NewLayer(&stubGDPTransport{genericOK: true})
	l := New(stack, gdpLayer, &stubDataTransport{}, nil)
	<-l.Configure(2)
	if !l.CfgCompleteDisc(2) {
		t.Fatal("expected configuration to succeed before ClearPair")
	}
	l.ClearPair(2)
	if l.CfgCompleteDisc(2) {
		t.Error("ClearPair should drop cfg_complete_disc state")
	}
}
