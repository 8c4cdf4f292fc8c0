package main

import (
	"github.com/rf4ce/remoti/internal/obs"
	"github.com/rf4ce/remoti/pkg/gdp"
	"github.com/rf4ce/remoti/pkg/rcn"
)

// loopbackGDPTransport answers GDP command/response round trips directly,
// standing in for the absent second radio: this sample CLI has no peer
// process to carry real NLDE-DATA frames to, so profile-chain
// configuration is exercised against a canned, always-succeeding peer.
type loopbackGDPTransport struct{}

func (t *loopbackGDPTransport) SendReceive(pairRef uint8, cmd gdp.Command, payload []byte) ([]byte, error) {
	obs.WithPairing(pairRef).WithField("gdp_cmd", cmd).Debug("loopback gdp transport: request")
	switch cmd {
	case gdp.CmdGetAttributes:
		ids := gdp.DecodeGetAttributes(payload)
		records := make([]gdp.AttributeRecord, 0, len(ids))
		for _, id := range ids {
			records = append(records, gdp.AttributeRecord{ID: id, Status: gdp.AttrSuccess, Value: []byte{3}})
		}
		return gdp.EncodeGetAttributesResponse(records), nil
	default:
		return gdp.EncodeGenericResponse(gdp.RspSuccess), nil
	}
}

// loopbackDataTransport answers NLDE-DATA sends used for ZID runtime and
// NULL-report provisioning traffic with an immediate success, logging the
// frame for visibility.
type loopbackDataTransport struct{}

func (t *loopbackDataTransport) DataReq(ref uint8, profileID uint8, vendorID uint16, opts rcn.TxOptions, nsdu []byte) rcn.Status {
	obs.WithPairing(ref).WithField("nsdu_len", len(nsdu)).Debug("loopback data transport: send")
	return rcn.StatusSuccess
}
