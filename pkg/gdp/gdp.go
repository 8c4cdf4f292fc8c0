// Package gdp implements the Generic Device Profile co-layer: the
// Generic-Response/Get-Attributes/Push-Attributes/Heartbeat command set
// shared by every RF4CE profile built over it, and the attributes the
// core itself defines at GDP scope (KeyExchangeTransferCount, PowerStatus).
package gdp

import "fmt"

// Command is a GDP command id. The top two bits of the ZID/GDP frame
// control byte select data-pending and GDP-vs-profile framing; Command
// values here already include the GDP bit (0x40) over the command code.
type Command uint8

const (
	CmdGenericResponse Command = 0x40
	CmdConfigComplete   Command = 0x41
	CmdHeartbeat        Command = 0x42
	CmdGetAttributes    Command = 0x43
	CmdGetAttributesRsp Command = 0x44
	CmdPushAttributes   Command = 0x45
)

// ResponseCode is a Generic-Response status code.
type ResponseCode uint8

const (
	RspSuccess          ResponseCode = 0x00
	RspUnsupportedReq   ResponseCode = 0x01
	RspInvalidParameter ResponseCode = 0x02
	RspConfigFailure    ResponseCode = 0x03
)

// AttributeStatus is the per-attribute status packed into a
// Get-Attributes-Response record.
type AttributeStatus uint8

const (
	AttrSuccess         AttributeStatus = 0x00
	AttrUnsupported     AttributeStatus = 0x01
	AttrIllegalRequest  AttributeStatus = 0x02
)

// Attribute ids defined at GDP scope.
const (
	AttrKeyExchangeTransferCount uint8 = 0x01
	AttrPowerStatus              uint8 = 0x02
)

// PowerStatus decodes the GDP PowerStatus attribute byte: low nibble is a
// 0-15 battery meter, bit 4 is charging, bit 7 is impending-doom.
type PowerStatus struct {
	Meter          uint8
	Charging       bool
	ImpendingDoom  bool
}

// DecodePowerStatus unpacks a raw PowerStatus attribute byte.
func DecodePowerStatus(b byte) PowerStatus {
	return PowerStatus{
		Meter:         b & 0x0F,
		Charging:      b&0x10 != 0,
		ImpendingDoom: b&0x80 != 0,
	}
}

// Encode packs a PowerStatus back into its wire byte.
func (p PowerStatus) Encode() byte {
	b := p.Meter & 0x0F
	if p.Charging {
		b |= 0x10
	}
	if p.ImpendingDoom {
		b |= 0x80
	}
	return b
}

// AttributeRecord is one entry of a Get-Attributes-Response or
// Push-Attributes frame: id, status (response only), value.
type AttributeRecord struct {
	ID     uint8
	Status AttributeStatus
	Value  []byte
}

// EncodeGenericResponse builds a one-byte Generic-Response payload.
func EncodeGenericResponse(code ResponseCode) []byte {
	return []byte{byte(code)}
}

// DecodeGenericResponse reads a Generic-Response payload.
func DecodeGenericResponse(payload []byte) (ResponseCode, error) {
	if len(payload) < 1 {
		return 0, fmt.Errorf("gdp: generic response payload too short")
	}
	return ResponseCode(payload[0]), nil
}

// EncodeGetAttributes builds a Get-Attributes request payload: a bare
// list of requested attribute ids.
func EncodeGetAttributes(ids []uint8) []byte {
	return append([]byte{}, ids...)
}

// DecodeGetAttributes reads the requested id list from a Get-Attributes
// command payload.
func DecodeGetAttributes(payload []byte) []uint8 {
	return append([]uint8{}, payload...)
}

// EncodeGetAttributesResponse packs, for each record in order, the id
// byte, status byte, length byte, and value bytes (little-endian, as the
// value was already ordered by the caller).
func EncodeGetAttributesResponse(records []AttributeRecord) []byte {
	var out []byte
	for _, r := range records {
		out = append(out, r.ID, byte(r.Status), byte(len(r.Value)))
		out = append(out, r.Value...)
	}
	return out
}

// DecodeGetAttributesResponse unpacks a Get-Attributes-Response payload
// built by EncodeGetAttributesResponse.
func DecodeGetAttributesResponse(payload []byte) ([]AttributeRecord, error) {
	var out []AttributeRecord
	i := 0
	for i < len(payload) {
		if i+3 > len(payload) {
			return nil, fmt.Errorf("gdp: truncated attribute record header at offset %d", i)
		}
		id := payload[i]
		status := AttributeStatus(payload[i+1])
		length := int(payload[i+2])
		i += 3
		if i+length > len(payload) {
			return nil, fmt.Errorf("gdp: truncated attribute value at offset %d (want %d bytes)", i, length)
		}
		value := append([]byte{}, payload[i:i+length]...)
		i += length
		out = append(out, AttributeRecord{ID: id, Status: status, Value: value})
	}
	return out, nil
}

// EncodePushAttributes packs a Push-Attributes frame: for each record,
// id byte, length byte, value bytes. No status byte: the recipient replies
// with a single Generic-Response covering the whole push.
func EncodePushAttributes(records []AttributeRecord) []byte {
	var out []byte
	for _, r := range records {
		out = append(out, r.ID, byte(len(r.Value)))
		out = append(out, r.Value...)
	}
	return out
}

// DecodePushAttributes unpacks a Push-Attributes payload built by
// EncodePushAttributes.
func DecodePushAttributes(payload []byte) ([]AttributeRecord, error) {
	var out []AttributeRecord
	i := 0
	for i < len(payload) {
		if i+2 > len(payload) {
			return nil, fmt.Errorf("gdp: truncated attribute record header at offset %d", i)
		}
		id := payload[i]
		length := int(payload[i+1])
		i += 2
		if i+length > len(payload) {
			return nil, fmt.Errorf("gdp: truncated attribute value at offset %d (want %d bytes)", i, length)
		}
		value := append([]byte{}, payload[i:i+length]...)
		i += length
		out = append(out, AttributeRecord{ID: id, Value: value})
	}
	return out, nil
}
