// Package obs provides the stack-wide logger shared by every RF4CE layer.
package obs

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance used by rcn, rti, zid and the
// other packages that log.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the logging level.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput sets the log output destination.
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat enables JSON log format, useful when the stack runs headless
// on a radio-processor host and logs are shipped to a collector.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger entry with a field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns a logger entry with multiple fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithPairing returns a logger entry scoped to a pairing reference.
func WithPairing(ref uint8) *logrus.Entry {
	return Logger.WithField("pairing_ref", ref)
}

// WithProfile returns a logger entry scoped to a profile id.
func WithProfile(profileID uint8) *logrus.Entry {
	return Logger.WithField("profile_id", profileID)
}

// WithState returns a logger entry scoped to an RTI state name.
func WithState(state string) *logrus.Entry {
	return Logger.WithField("state", state)
}
