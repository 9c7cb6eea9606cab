//go:build (linux && cgo) || windows || darwin

package playback

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// SpeakerDevice plays sources on the system speaker.
type SpeakerDevice struct {
	opener     *Opener
	sampleRate beep.SampleRate
	buffer     time.Duration
	logger     *log.Logger

	mu          sync.Mutex
	initialized bool
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	preloaded   *decoded
	// generation of the loaded source; end callbacks from older sources are ignored
	generation uint64
	handlers   map[int]func()
	nextID     int
}

// NewSpeakerDevice creates a device that resamples every source to sampleRate.
// The speaker itself is initialized on the first load.
func NewSpeakerDevice(opener *Opener, sampleRate int, buffer time.Duration, logger *log.Logger) *SpeakerDevice {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if buffer <= 0 {
		buffer = time.Second / 10
	}
	return &SpeakerDevice{
		opener:     opener,
		sampleRate: beep.SampleRate(sampleRate),
		buffer:     buffer,
		logger:     logger.With("component", "speaker"),
		handlers:   map[int]func(){},
	}
}

// Preload opens and decodes url so a following Load of the same url only swaps streams.
// Only the most recent preload is kept.
func (d *SpeakerDevice) Preload(ctx context.Context, url string) error {
	p, err := d.opener.decode(ctx, url)
	if err != nil {
		return err
	}

	d.mu.Lock()
	old := d.preloaded
	d.preloaded = p
	d.mu.Unlock()

	old.close()
	return nil
}

func (d *SpeakerDevice) Load(ctx context.Context, url string) error {
	d.mu.Lock()
	p := d.preloaded
	if p != nil && p.url == url {
		d.preloaded = nil
	} else {
		p = nil
	}
	d.mu.Unlock()

	if p == nil {
		var err error
		if p, err = d.opener.decode(ctx, url); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()

	if !d.initialized {
		if err := speaker.Init(d.sampleRate, d.sampleRate.N(d.buffer)); err != nil {
			p.close()
			return err
		}
		d.initialized = true
	}

	d.streamer = p.streamer
	d.format = p.format
	d.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, p.format.SampleRate, d.sampleRate, p.streamer), Paused: true}
	d.generation++
	generation := d.generation

	// The callback runs on the speaker goroutine with the speaker locked.
	speaker.Play(beep.Seq(d.ctrl, beep.Callback(func() {
		go d.ended(generation)
	})))

	d.logger.Debug("source loaded", "url", url, "type", p.mime.String(), "length", p.length())
	return nil
}

func (d *SpeakerDevice) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.generation++
}

func (d *SpeakerDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return shared.ErrNoSource
	}
	speaker.Lock()
	d.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (d *SpeakerDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl != nil {
		speaker.Lock()
		d.ctrl.Paused = true
		speaker.Unlock()
	}
}

func (d *SpeakerDevice) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := d.streamer.Position()
	speaker.Unlock()

	return d.format.SampleRate.D(pos)
}

func (d *SpeakerDevice) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return 0
	}
	return d.format.SampleRate.D(d.streamer.Len())
}

func (d *SpeakerDevice) OnEnded(fn func()) (detach func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.handlers[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers, id)
	}
}

func (d *SpeakerDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.preloaded.close()
	d.preloaded = nil
	d.generation++
	if d.initialized {
		speaker.Close()
		d.initialized = false
	}
	return nil
}

func (d *SpeakerDevice) ended(generation uint64) {
	d.mu.Lock()
	if generation != d.generation {
		d.mu.Unlock()
		return
	}
	fns := make([]func(), 0, len(d.handlers))
	for _, fn := range d.handlers {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// stopLocked must be called with d.mu held.
func (d *SpeakerDevice) stopLocked() {
	if d.initialized {
		speaker.Clear()
	}
	if d.streamer != nil {
		d.streamer.Close()
		d.streamer = nil
	}
	d.ctrl = nil
}
