package npi

import (
	"net"
	"testing"
	"time"

	"github.com/rf4ce/remoti/pkg/marshal"
)

func pipeTransports(t *testing.T) (*Transport, *Transport) {
	t.Helper()
	a, b := net.Pipe()
	ta, tb := Open(a), Open(b)
	ta.Start()
	tb.Start()
	t.Cleanup(func() {
		ta.Close()
		tb.Close()
	})
	return ta, tb
}

func TestCallReceivesMatchingConfirm(t *testing.T) {
	host, radio := pipeTransports(t)

	radio.SetIndicationHandler(func(f marshal.Frame) {
		if f.CommandID == marshal.CmdStartReq {
			radio.Send(marshal.Frame{Subsystem: marshal.SubsystemRCN, CommandID: marshal.CmdStartCnf, Payload: []byte{0}})
		}
	})

	resp, err := host.Call(marshal.Frame{Subsystem: marshal.SubsystemRCN, CommandID: marshal.CmdStartReq}, marshal.CmdStartCnf, time.Second)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if resp.CommandID != marshal.CmdStartCnf {
		t.Errorf("response command = 0x%02x, want CmdStartCnf", resp.CommandID)
	}
}

func TestCallTimesOutWithoutConfirm(t *testing.T) {
	host, _ := pipeTransports(t)
	_, err := host.Call(marshal.Frame{Subsystem: marshal.SubsystemRCN, CommandID: marshal.CmdStartReq}, marshal.CmdStartCnf, 50*time.Millisecond)
	if err == nil {
		t.Error("Call() should time out when no confirm arrives")
	}
}

func TestIndicationHandlerInvokedForUnmatchedFrames(t *testing.T) {
	host, radio := pipeTransports(t)
	received := make(chan marshal.Frame, 1)
	host.SetIndicationHandler(func(f marshal.Frame) { received <- f })

	if err := radio.Send(marshal.Frame{Subsystem: marshal.SubsystemRCN, CommandID: marshal.CmdDiscoveredInd, Payload: []byte{1}}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case f := <-received:
		if f.CommandID != marshal.CmdDiscoveredInd {
			t.Errorf("received command = 0x%02x, want CmdDiscoveredInd", f.CommandID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for indication")
	}
}

func TestCallRejectsConcurrentSameConfirm(t *testing.T) {
	host, _ := pipeTransports(t)
	go host.Call(marshal.Frame{Subsystem: marshal.SubsystemRCN, CommandID: marshal.CmdStartReq}, marshal.CmdStartCnf, 200*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, err := host.Call(marshal.Frame{Subsystem: marshal.SubsystemRCN, CommandID: marshal.CmdStartReq}, marshal.CmdStartCnf, 20*time.Millisecond)
	if err == nil {
		t.Error("Call() should reject a second in-flight call awaiting the same confirm")
	}
}
