// Package z3d is a minimal stand-in for the Z3D/ZRC profile co-layer: it
// occupies the third slot of the RTI profile-chain walk (GDP -> ZID ->
// Z3D) so a pairing whose profile-discovery bitmap advertises Z3D support
// still gets a configuration hand-off, without implementing Z3D/ZRC's
// remote-control command set.
package z3d

import (
	"github.com/rf4ce/remoti/pkg/rcn"
	"github.com/rf4ce/remoti/pkg/rti"
)

// Layer is a no-op Z3D co-layer: every pairing configures immediately
// with success.
type Layer struct{}

// New constructs a Z3D stub layer.
func New() *Layer {
	return &Layer{}
}

// Configure implements rti.Configurator for the Z3D profile bit.
func (l *Layer) Configure(ref uint8) <-chan rti.ConfigResult {
	ch := make(chan rti.ConfigResult, 1)
	ch <- rti.ConfigResult{Status: rcn.StatusSuccess}
	close(ch)
	return ch
}
