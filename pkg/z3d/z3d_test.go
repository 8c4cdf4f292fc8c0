package z3d

import (
	"testing"

	"github.com/rf4ce/remoti/pkg/rcn"
)

func TestConfigureAlwaysSucceeds(t *testing.T) {
	l := New()
	result := <-l.Configure(3)
	if result.Status != rcn.StatusSuccess {
		t.Errorf("Configure() = %+v, want success", result)
	}
}
