package marshal

import "fmt"

// RCN command ids, stable across the wire.
const (
	CmdResetReq      uint8 = 0x01
	CmdResetCnf      uint8 = 0x81
	CmdStartReq      uint8 = 0x02
	CmdStartCnf      uint8 = 0x82
	CmdDiscoveryReq  uint8 = 0x03
	CmdDiscoveredInd uint8 = 0x83
	CmdDiscoveryCnf  uint8 = 0x84
	CmdPairReq       uint8 = 0x04
	CmdPairCnf       uint8 = 0x85
	CmdDataReq       uint8 = 0x05
	CmdDataCnf       uint8 = 0x86
	CmdUnpairReq     uint8 = 0x06
	CmdUnpairCnf     uint8 = 0x87
	CmdGetReq        uint8 = 0x07
	CmdGetCnf        uint8 = 0x88
	CmdSetReq        uint8 = 0x08
	CmdSetCnf        uint8 = 0x89
)

// ResetReqPayload is NLME-RESET.request's pointer-free wire form.
type ResetReqPayload struct {
	SetDefaultNIB bool
}

func EncodeResetReq(p ResetReqPayload) []byte {
	b := byte(0)
	if p.SetDefaultNIB {
		b = 1
	}
	return []byte{b}
}

func DecodeResetReq(payload []byte) (ResetReqPayload, error) {
	if len(payload) < 1 {
		return ResetReqPayload{}, fmt.Errorf("marshal: ResetReq payload too short")
	}
	return ResetReqPayload{SetDefaultNIB: payload[0] != 0}, nil
}

// StatusCnfPayload is the wire form shared by every primitive whose only
// confirm field is a status code (RESET, START, UNPAIR, SET).
type StatusCnfPayload struct {
	Status uint8
}

func EncodeStatusCnf(p StatusCnfPayload) []byte { return []byte{p.Status} }

func DecodeStatusCnf(payload []byte) (StatusCnfPayload, error) {
	if len(payload) < 1 {
		return StatusCnfPayload{}, fmt.Errorf("marshal: status confirm payload too short")
	}
	return StatusCnfPayload{Status: payload[0]}, nil
}

// DiscoveredEventPayload is NLME-DISCOVERED-EVENT's pointer-free wire form:
// fixed header followed by inlined variable-length device-type and
// profile-id lists.
type DiscoveredEventPayload struct {
	Channel               uint8
	PANID                 uint16
	PeerExtAddr           [8]byte
	PeerShortAddr         uint16
	RecipientCapabilities uint8
	VendorID              uint16
	LQI                   uint8
	DeviceTypeList        []uint8
	ProfileIDList         []uint8
}

func EncodeDiscoveredEvent(p DiscoveredEventPayload) []byte {
	out := make([]byte, 0, 18+len(p.DeviceTypeList)+len(p.ProfileIDList))
	out = append(out, p.Channel)
	u16 := make([]byte, 2)
	PutUint16(u16, p.PANID)
	out = append(out, u16...)
	out = append(out, p.PeerExtAddr[:]...)
	PutUint16(u16, p.PeerShortAddr)
	out = append(out, u16...)
	out = append(out, p.RecipientCapabilities)
	PutUint16(u16, p.VendorID)
	out = append(out, u16...)
	out = append(out, p.LQI)
	out = append(out, byte(len(p.DeviceTypeList)))
	out = append(out, p.DeviceTypeList...)
	out = append(out, byte(len(p.ProfileIDList)))
	out = append(out, p.ProfileIDList...)
	return out
}

func DecodeDiscoveredEvent(payload []byte) (DiscoveredEventPayload, error) {
	const fixedLen = 1 + 2 + 8 + 2 + 1 + 2 + 1
	if len(payload) < fixedLen+1 {
		return DiscoveredEventPayload{}, fmt.Errorf("marshal: DiscoveredEvent payload too short")
	}
	var p DiscoveredEventPayload
	i := 0
	p.Channel = payload[i]
	i++
	p.PANID = Uint16(payload[i:])
	i += 2
	copy(p.PeerExtAddr[:], payload[i:i+8])
	i += 8
	p.PeerShortAddr = Uint16(payload[i:])
	i += 2
	p.RecipientCapabilities = payload[i]
	i++
	p.VendorID = Uint16(payload[i:])
	i += 2
	p.LQI = payload[i]
	i++

	devLen := int(payload[i])
	i++
	if len(payload) < i+devLen+1 {
		return DiscoveredEventPayload{}, fmt.Errorf("marshal: DiscoveredEvent device-type list truncated")
	}
	p.DeviceTypeList = append([]uint8{}, payload[i:i+devLen]...)
	i += devLen

	profLen := int(payload[i])
	i++
	if len(payload) < i+profLen {
		return DiscoveredEventPayload{}, fmt.Errorf("marshal: DiscoveredEvent profile-id list truncated")
	}
	p.ProfileIDList = append([]uint8{}, payload[i:i+profLen]...)
	return p, nil
}

// DiscoveryCnfPayload is NLME-DISCOVERY.confirm's wire form.
type DiscoveryCnfPayload struct {
	Status   uint8
	NumNodes uint8
}

func EncodeDiscoveryCnf(p DiscoveryCnfPayload) []byte { return []byte{p.Status, p.NumNodes} }

func DecodeDiscoveryCnf(payload []byte) (DiscoveryCnfPayload, error) {
	if len(payload) < 2 {
		return DiscoveryCnfPayload{}, fmt.Errorf("marshal: DiscoveryCnf payload too short")
	}
	return DiscoveryCnfPayload{Status: payload[0], NumNodes: payload[1]}, nil
}

// PairCnfPayload is NLME-PAIR.confirm's wire form.
type PairCnfPayload struct {
	Status     uint8
	PairingRef uint8
	VendorID   uint16
}

func EncodePairCnf(p PairCnfPayload) []byte {
	out := []byte{p.Status, p.PairingRef, 0, 0}
	PutUint16(out[2:], p.VendorID)
	return out
}

func DecodePairCnf(payload []byte) (PairCnfPayload, error) {
	if len(payload) < 4 {
		return PairCnfPayload{}, fmt.Errorf("marshal: PairCnf payload too short")
	}
	return PairCnfPayload{Status: payload[0], PairingRef: payload[1], VendorID: Uint16(payload[2:])}, nil
}

// DataReqPayload is NLDE-DATA.request's wire form: fixed header with the
// NSDU inlined.
type DataReqPayload struct {
	PairingRef uint8
	ProfileID  uint8
	VendorID   uint16
	TxOptions  uint8
	NSDU       []byte
}

func EncodeDataReq(p DataReqPayload) []byte {
	out := make([]byte, 0, 6+len(p.NSDU))
	out = append(out, p.PairingRef, p.ProfileID)
	u16 := make([]byte, 2)
	PutUint16(u16, p.VendorID)
	out = append(out, u16...)
	out = append(out, p.TxOptions)
	out = append(out, byte(len(p.NSDU)))
	out = append(out, p.NSDU...)
	return out
}

func DecodeDataReq(payload []byte) (DataReqPayload, error) {
	if len(payload) < 6 {
		return DataReqPayload{}, fmt.Errorf("marshal: DataReq payload too short")
	}
	p := DataReqPayload{
		PairingRef: payload[0],
		ProfileID:  payload[1],
		VendorID:   Uint16(payload[2:]),
		TxOptions:  payload[4],
	}
	nsduLen := int(payload[5])
	if len(payload) < 6+nsduLen {
		return DataReqPayload{}, fmt.Errorf("marshal: DataReq NSDU truncated")
	}
	p.NSDU = append([]byte{}, payload[6:6+nsduLen]...)
	return p, nil
}
