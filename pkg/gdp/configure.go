package gdp

import (
	"github.com/rf4ce/remoti/pkg/rcn"
	"github.com/rf4ce/remoti/pkg/rti"
)

// Transport is the narrow send/receive surface GDP needs from whatever
// carries its frames to the peer (NLDE-DATA over pkg/rcn in production,
// a stub in tests): send cmd with payload to pairRef, block for the
// matching response payload.
type Transport interface {
	SendReceive(pairRef uint8, cmd Command, payload []byte) (respPayload []byte, err error)
}

// Layer is the GDP co-layer bound to a Transport. It implements
// rti.Configurator at the GDP profile bit: every pairing walks through a
// Heartbeat round trip as its (trivial) GDP configuration step, since GDP
// itself has no descriptor/report state to negotiate.
type Layer struct {
	transport Transport
}

// NewLayer constructs a GDP co-layer over transport.
func NewLayer(transport Transport) *Layer {
	return &Layer{transport: transport}
}

// Configure implements rti.Configurator: sends a Heartbeat and reports
// success once a Generic-Response(success) comes back. The round trip runs
// synchronously on the calling task thread, matching the cooperative
// scheduling model: no goroutine is spawned, the returned channel is
// already filled and closed by the time Configure returns.
func (l *Layer) Configure(pairRef uint8) <-chan rti.ConfigResult {
	ch := make(chan rti.ConfigResult, 1)
	defer close(ch)

	resp, err := l.transport.SendReceive(pairRef, CmdHeartbeat, nil)
	if err != nil {
		ch <- rti.ConfigResult{Err: err}
		return ch
	}
	code, err := DecodeGenericResponse(resp)
	if err != nil {
		ch <- rti.ConfigResult{Err: err}
		return ch
	}
	ch <- rti.ConfigResult{Status: genericResponseStatus(code)}
	return ch
}

func genericResponseStatus(code ResponseCode) rcn.Status {
	if code == RspSuccess {
		return rcn.StatusSuccess
	}
	return rcn.StatusInvalidParameter
}

// GetAttributes issues GET_ATTR for ids and returns the decoded response
// records.
func (l *Layer) GetAttributes(pairRef uint8, ids []uint8) ([]AttributeRecord, error) {
	resp, err := l.transport.SendReceive(pairRef, CmdGetAttributes, EncodeGetAttributes(ids))
	if err != nil {
		return nil, err
	}
	return DecodeGetAttributesResponse(resp)
}

// PushAttributes issues PUSH_ATTR with records and returns the Generic-Response
// code the peer replied with.
func (l *Layer) PushAttributes(pairRef uint8, records []AttributeRecord) (ResponseCode, error) {
	resp, err := l.transport.SendReceive(pairRef, CmdPushAttributes, EncodePushAttributes(records))
	if err != nil {
		return 0, err
	}
	return DecodeGenericResponse(resp)
}

// ConfigComplete emits CFG_COMPLETE and returns the Generic-Response code.
func (l *Layer) ConfigComplete(pairRef uint8) (ResponseCode, error) {
	resp, err := l.transport.SendReceive(pairRef, CmdConfigComplete, nil)
	if err != nil {
		return 0, err
	}
	return DecodeGenericResponse(resp)
}
