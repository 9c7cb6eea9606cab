package playback

import (
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/encore/internal/shared"
	"github.com/gabriel-vasile/mimetype"
)

const blobScheme = "blob:encore/"

// Blob is an in-memory audio payload addressable by a blob URL.
type Blob struct {
	Data []byte
	MIME *mimetype.MIME
}

// BlobStore hands out process-local URLs for in-memory payloads.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: map[string]Blob{}}
}

// CreateObjectURL stores data and returns a new URL for it.
func (s *BlobStore) CreateObjectURL(data []byte) string {
	url := blobScheme + shared.GenerateID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[url] = Blob{Data: data, MIME: mimetype.Detect(data)}
	return url
}

// RevokeObjectURL drops the payload behind url. Unknown URLs are ignored.
func (s *BlobStore) RevokeObjectURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, url)
}

// Open returns the payload behind url.
func (s *BlobStore) Open(url string) (Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[url]
	if !ok {
		return Blob{}, fmt.Errorf("%w: %s", shared.ErrBlobNotFound, url)
	}
	return blob, nil
}

// Len returns the number of live URLs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// IsBlobURL reports whether url was issued by a [BlobStore].
func IsBlobURL(url string) bool {
	return strings.HasPrefix(url, blobScheme)
}
