// Package rcn implements the RF4CE network layer: the NIB, the NLME/NLDE
// primitive surface, the pairing table owner, and the frequency-agility
// background channel monitor.
package rcn

import "fmt"

// Status is a primitive confirm/response status code. Numeric values are
// part of the wire contract and must never be renumbered.
type Status uint8

const (
	StatusSuccess               Status = 0x00
	StatusInvalidIndex          Status = 0xF9
	StatusInvalidParameter      Status = 0xE8
	StatusUnsupportedAttribute  Status = 0xF4
	StatusNoOrgCapacity         Status = 0xB0
	StatusNoRecCapacity         Status = 0xB1
	StatusNoPairing             Status = 0xB2
	StatusNoResponse            Status = 0xB3
	StatusNotPermitted          Status = 0xB4
	StatusDuplicatePairing      Status = 0xB5
	StatusFrameCounterExpired   Status = 0xB6
	StatusDiscoveryError        Status = 0xB7
	StatusDiscoveryTimeout      Status = 0xB8
	StatusSecurityTimeout       Status = 0xB9
	StatusSecurityFailure       Status = 0xBA
	StatusNoSecurityKey         Status = 0xBD
	StatusOutOfMemory           Status = 0xBE
	StatusCommunication         Status = 0xBF

	// RTI-level error kinds synthesized by pkg/rti rather than forwarded
	// verbatim from an NLME confirm: AllowPairReq timing out, PairReq
	// collapsing any non-success NLME-PAIR status, and the push-button
	// discovery policy seeing more than one distinct responder.
	StatusAllowPairingTimeout Status = 0x91
	StatusFailedToPair        Status = 0x92
	StatusFailedToDiscover    Status = 0x93

	// StatusFailedToConfigureMask marks the profile-configuration-failure
	// range 0xA0-0xAF; the low nibble carries the count of profiles
	// successfully configured before the one that failed. Use
	// StatusFailedToConfigure to build a value and IsFailedToConfigure /
	// PrevConfiguredProfiles to read one back.
	StatusFailedToConfigureMask Status = 0xA0
)

// StatusFailedToConfigure synthesizes a FAILED_TO_CONFIGURE status carrying
// the count of profiles (0-15) successfully configured before the failing
// one, matching the original firmware's
// RTI_ERROR_FAILED_TO_CONFIGURE_INV_MASK | (prevConfiguredProfile & 0xF).
func StatusFailedToConfigure(prevConfiguredProfiles uint8) Status {
	return StatusFailedToConfigureMask | Status(prevConfiguredProfiles&0x0F)
}

// IsFailedToConfigure reports whether s is a FAILED_TO_CONFIGURE status.
func (s Status) IsFailedToConfigure() bool {
	return s&0xF0 == StatusFailedToConfigureMask
}

// PrevConfiguredProfiles returns the count of profiles successfully
// configured before the failure, valid only when IsFailedToConfigure is true.
func (s Status) PrevConfiguredProfiles() uint8 {
	return uint8(s & 0x0F)
}

var statusNames = map[Status]string{
	StatusSuccess:              "SUCCESS",
	StatusInvalidIndex:         "INVALID_INDEX",
	StatusInvalidParameter:     "INVALID_PARAMETER",
	StatusUnsupportedAttribute: "UNSUPPORTED_ATTRIBUTE",
	StatusNoOrgCapacity:        "NO_ORG_CAPACITY",
	StatusNoRecCapacity:        "NO_REC_CAPACITY",
	StatusNoPairing:            "NO_PAIRING",
	StatusNoResponse:           "NO_RESPONSE",
	StatusNotPermitted:         "NOT_PERMITTED",
	StatusDuplicatePairing:     "DUPLICATE_PAIRING",
	StatusFrameCounterExpired:  "FRAME_COUNTER_EXPIRED",
	StatusDiscoveryError:       "DISCOVERY_ERROR",
	StatusDiscoveryTimeout:     "DISCOVERY_TIMEOUT",
	StatusSecurityTimeout:      "SECURITY_TIMEOUT",
	StatusSecurityFailure:      "SECURITY_FAILURE",
	StatusNoSecurityKey:        "NO_SECURITY_KEY",
	StatusOutOfMemory:          "OUT_OF_MEMORY",
	StatusCommunication:        "COMMUNICATION",
	StatusAllowPairingTimeout:  "ALLOW_PAIRING_TIMEOUT",
	StatusFailedToPair:         "FAILED_TO_PAIR",
	StatusFailedToDiscover:     "FAILED_TO_DISCOVER",
}

func (s Status) String() string {
	if s.IsFailedToConfigure() {
		return fmt.Sprintf("FAILED_TO_CONFIGURE(%d)", s.PrevConfiguredProfiles())
	}
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN_STATUS"
}

// Error adapts a Status to the error interface so confirm handlers can
// return it through normal Go error plumbing while preserving the
// original numeric code for callers that need it (errors.As).
type Error struct {
	Status Status
	Op     string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Status.String()
	}
	return e.Op + ": " + e.Status.String()
}

// NewError wraps a Status as an error tagged with the operation that failed.
func NewError(op string, status Status) error {
	if status == StatusSuccess {
		return nil
	}
	return &Error{Status: status, Op: op}
}
