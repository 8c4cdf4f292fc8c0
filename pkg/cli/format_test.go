package cli

import (
	"strings"
	"testing"

	"github.com/rf4ce/remoti/pkg/rcn"
)

func TestColorFunctions(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"Green", Green, "\033[32m"},
		{"Red", Red, "\033[31m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn("hello")
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("%s should start with %q", tt.name, tt.prefix)
			}
			if !strings.Contains(got, "hello") {
				t.Errorf("%s should contain the input string", tt.name)
			}
			if !strings.HasSuffix(got, "\033[0m") {
				t.Errorf("%s should end with reset code", tt.name)
			}
		})
	}
}

func TestStatusTextColorsByOutcome(t *testing.T) {
	if got := StatusText(rcn.StatusSuccess); !strings.HasPrefix(got, "\033[32m") {
		t.Errorf("StatusText(SUCCESS) = %q, want green", got)
	}
	if got := StatusText(rcn.StatusFailedToPair); !strings.HasPrefix(got, "\033[31m") {
		t.Errorf("StatusText(FAILED_TO_PAIR) = %q, want red", got)
	}
}
