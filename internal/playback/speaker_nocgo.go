//go:build !((linux && cgo) || windows || darwin)

package playback

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/shared"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries.
const AudioAvailable = false

// SpeakerDevice is a silent device for builds without cgo.
// It still decodes sources so durations are reported, but never ends on its own.
type SpeakerDevice struct {
	opener *Opener
	logger *log.Logger

	mu      sync.Mutex
	loaded  bool
	length  time.Duration
	playing bool

	preloadedURL    string
	preloadedLength time.Duration
}

// NewSpeakerDevice creates a silent device. sampleRate and buffer are ignored.
func NewSpeakerDevice(opener *Opener, sampleRate int, buffer time.Duration, logger *log.Logger) *SpeakerDevice {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger.Warn("audio output unavailable in this build")
	return &SpeakerDevice{opener: opener, logger: logger}
}

// Preload decodes url so a following Load of the same url reuses the measured length.
func (d *SpeakerDevice) Preload(ctx context.Context, url string) error {
	p, err := d.opener.decode(ctx, url)
	if err != nil {
		return err
	}
	defer p.close()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.preloadedURL = url
	d.preloadedLength = p.length()
	return nil
}

func (d *SpeakerDevice) Load(ctx context.Context, url string) error {
	d.mu.Lock()
	length, ok := d.preloadedLength, d.preloadedURL == url
	d.preloadedURL = ""
	d.mu.Unlock()

	if !ok {
		p, err := d.opener.decode(ctx, url)
		if err != nil {
			return err
		}
		length = p.length()
		p.close()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = true
	d.playing = false
	d.length = length
	return nil
}

func (d *SpeakerDevice) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = false
	d.playing = false
	d.length = 0
}

func (d *SpeakerDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return shared.ErrNoSource
	}
	d.playing = true
	return nil
}

func (d *SpeakerDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
}

// Position returns 0 when cgo is disabled.
func (d *SpeakerDevice) Position() time.Duration { return 0 }

func (d *SpeakerDevice) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.length
}

// OnEnded never fires when cgo is disabled.
func (d *SpeakerDevice) OnEnded(fn func()) (detach func()) { return func() {} }

func (d *SpeakerDevice) Close() error { return nil }
