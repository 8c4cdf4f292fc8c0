// Package cli provides shared formatting helpers for the remoti CLI.
package cli

import "github.com/rf4ce/remoti/pkg/rcn"

// Green and Red wrap s in the matching ANSI color code, used to highlight a
// confirm's status in the sample CLI's command output.
func Green(s string) string { return "\033[32m" + s + "\033[0m" }
func Red(s string) string   { return "\033[31m" + s + "\033[0m" }

// StatusText renders a confirm status colored by outcome: green for
// SUCCESS, red for anything else.
func StatusText(status rcn.Status) string {
	if status == rcn.StatusSuccess {
		return Green(status.String())
	}
	return Red(status.String())
}
