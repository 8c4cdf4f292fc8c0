package rcn

import (
	"sync"
	"time"

	"github.com/rf4ce/remoti/internal/obs"
	"github.com/rf4ce/remoti/pkg/config"
)

// FreqAgility is the background channel-noise monitor: it samples energy
// on the current channel, counts noisy samples, and migrates to the next
// candidate channel (or suspends its own sampling) once the noisy-sample
// threshold is reached within a minimum sample count. It runs as a polled
// background task, not a goroutine, matching the cooperative
// single-threaded task model — callers drive it by calling Poll() from
// the task dispatcher.
type FreqAgility struct {
	mu sync.Mutex

	stack *config.Stack
	mac   MAC

	channels       []uint8
	currentIdx     int
	samples        int
	noisySamples   int
	suspended      bool
	suspendedUntil time.Time
	lastSample     time.Time
	sweepStart     time.Time
}

// NewFreqAgility constructs a monitor over the stack's configured channel
// list, starting on the first channel.
func NewFreqAgility(stack *config.Stack, mac MAC) *FreqAgility {
	channels := stack.Channels
	if len(channels) == 0 {
		channels = []uint8{15, 20, 25}
	}
	return &FreqAgility{
		stack:      stack,
		mac:        mac,
		channels:   channels,
		sweepStart: mac.Now(),
	}
}

// SetCurrentChannel pins the monitor to a channel already selected by
// NLME-START, resetting sample counters.
func (f *FreqAgility) SetCurrentChannel(channel uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.channels {
		if c == channel {
			f.currentIdx = i
			break
		}
	}
	f.samples = 0
	f.noisySamples = 0
	f.sweepStart = f.mac.Now()
}

// CurrentChannel returns the channel currently in use.
func (f *FreqAgility) CurrentChannel() uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[f.currentIdx]
}

// Suspended reports whether frequency agility is currently suspended (Poll
// takes no samples) after a too-short sweep of noisy candidate channels.
// Data exchange does not consult it.
func (f *FreqAgility) Suspended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.suspended && f.mac.Now().After(f.suspendedUntil) {
		f.suspended = false
		f.noisySamples = 0
		f.samples = 0
		f.sweepStart = f.mac.Now()
	}
	return f.suspended
}

// Poll takes one energy sample on the current channel and applies the
// noisy-sample policy. It returns true if a channel migration (or
// suspend) happened on this call.
func (f *FreqAgility) Poll() (migrated bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.mac.Now()
	if f.suspended {
		if now.After(f.suspendedUntil) {
			f.suspended = false
			f.noisySamples = 0
			f.samples = 0
			f.sweepStart = now
		} else {
			return false, nil
		}
	}

	ch := f.channels[f.currentIdx]
	lqi, err := f.mac.SampleEnergy(ch)
	if err != nil {
		return false, err
	}
	f.lastSample = now
	f.samples++
	if lqi >= f.stack.FreqAgilityNoiseLQIThreshold {
		f.noisySamples++
	}

	if f.samples < f.stack.FreqAgilityMinSamplesBeforeAct {
		return false, nil
	}
	if f.noisySamples < f.stack.FreqAgilityNoisySampleThresh {
		f.samples = 0
		f.noisySamples = 0
		return false, nil
	}

	// Too noisy: migrate to the next candidate channel. If every channel
	// has now been tried in this sweep, only suspend when the whole sweep
	// took less than the short-duration threshold: a fast sweep means
	// every channel is thrashing noisy-to-clean in quick succession, while
	// a slow one just means genuinely bad RF conditions worth continuing
	// to cycle through.
	nextIdx := (f.currentIdx + 1) % len(f.channels)
	if nextIdx == 0 {
		f.samples = 0
		f.noisySamples = 0
		if now.Sub(f.sweepStart) < f.stack.FreqAgilityShortDuration {
			f.suspended = true
			f.suspendedUntil = now.Add(f.stack.FreqAgilitySuspendDuration)
			obs.WithField("suspend_until", f.suspendedUntil).Warn("frequency agility: all channels noisy within short-duration threshold, suspending")
			return true, nil
		}
		f.currentIdx = nextIdx
		f.sweepStart = now
		obs.WithField("channel", f.channels[f.currentIdx]).Info("frequency agility: sweep exceeded short-duration threshold, restarting cycle")
		return true, nil
	}

	f.currentIdx = nextIdx
	f.samples = 0
	f.noisySamples = 0
	obs.WithField("channel", f.channels[f.currentIdx]).Info("frequency agility: migrating channel")
	return true, nil
}
