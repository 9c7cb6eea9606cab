package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/encore/internal/shared"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// Device is the audio output a [Coordinator] drives. A session has exactly one.
type Device interface {
	// Load replaces the current source with url, paused at the start.
	Load(ctx context.Context, url string) error
	// Clear stops output and drops the current source.
	Clear()
	// Play starts or resumes the current source from the device's own position.
	Play() error
	Pause()
	Position() time.Duration
	Duration() time.Duration
	// OnEnded registers fn to run each time a source plays to its natural end.
	OnEnded(fn func()) (detach func())
	Close() error
}

// Preloader is implemented by devices that can fetch and decode a source ahead of [Device.Load],
// so the slow part of a load runs without blocking playback commands.
type Preloader interface {
	Preload(ctx context.Context, url string) error
}

// Opener reads the bytes behind a source URL: blob URLs from a [BlobStore],
// http(s) URLs over the network, anything else from the local filesystem.
type Opener struct {
	blobs  *BlobStore
	client *http.Client
}

// NewOpener creates an Opener. A nil client uses [http.DefaultClient].
func NewOpener(blobs *BlobStore, client *http.Client) *Opener {
	if client == nil {
		client = http.DefaultClient
	}
	return &Opener{blobs: blobs, client: client}
}

// Open returns the payload behind url with its detected media type.
func (o *Opener) Open(ctx context.Context, url string) ([]byte, *mimetype.MIME, error) {
	switch {
	case IsBlobURL(url):
		if o.blobs == nil {
			return nil, nil, fmt.Errorf("%w: %s", shared.ErrBlobNotFound, url)
		}
		blob, err := o.blobs.Open(url)
		if err != nil {
			return nil, nil, err
		}
		return blob.Data, blob.MIME, nil
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		data, err := o.download(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return data, mimetype.Detect(data), nil
	default:
		data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read audio file: %w", err)
		}
		return data, mimetype.Detect(data), nil
	}
}

func (o *Opener) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", shared.ErrAPIRequest, url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// decoded is a source that has been opened and decoded but not yet handed to the speaker.
type decoded struct {
	url      string
	mime     *mimetype.MIME
	streamer beep.StreamSeekCloser
	format   beep.Format
}

func (p *decoded) close() {
	if p != nil && p.streamer != nil {
		p.streamer.Close()
	}
}

func (p *decoded) length() time.Duration {
	return p.format.SampleRate.D(p.streamer.Len())
}

// decode opens url and decodes it into a seekable stream.
func (o *Opener) decode(ctx context.Context, url string) (*decoded, error) {
	data, mime, err := o.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	streamer, format, err := decode(data, mime)
	if err != nil {
		return nil, err
	}
	return &decoded{url: url, mime: mime, streamer: streamer, format: format}, nil
}

// decode opens data as a seekable stream, choosing the decoder from its media type.
func decode(data []byte, mime *mimetype.MIME) (beep.StreamSeekCloser, beep.Format, error) {
	if mime == nil {
		mime = mimetype.Detect(data)
	}

	switch {
	case mime.Is("audio/mpeg"):
		return mp3.Decode(nopCloser{bytes.NewReader(data)})
	case mime.Is("audio/wav"):
		return wav.Decode(bytes.NewReader(data))
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", shared.ErrUnsupportedFormat, mime.String())
	}
}

// nopCloser keeps the reader seekable for decoders that check for io.Seeker.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
