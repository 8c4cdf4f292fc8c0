// Package rti implements the application-facing orchestrator: startup
// (cold/warm boot), discovery/pairing with configuration-phase hand-off,
// un-pairing, data send/receive, allow-pair with timeout, and per-pairing
// configuration chaining across profiles (GDP -> ZID -> Z3D).
package rti

// State is one of the top-level RTI states.
type State uint8

const (
	StateStart State = iota
	StateReady
	StateDiscovery
	StateDiscovered
	StateDiscoveryError
	StateDiscoveryAbort
	StatePair
	StateNData
	StateUnpair
	StateConfiguration
)

var stateNames = map[State]string{
	StateStart:          "START",
	StateReady:          "READY",
	StateDiscovery:      "DISCOVERY",
	StateDiscovered:     "DISCOVERED",
	StateDiscoveryError: "DISCOVERY_ERROR",
	StateDiscoveryAbort: "DISCOVERY_ABORT",
	StatePair:           "PAIR",
	StateNData:          "NDATA",
	StateUnpair:         "UNPAIR",
	StateConfiguration:  "CONFIGURATION",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN_STATE"
}
