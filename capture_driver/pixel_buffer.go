package capture_driver

import (
	"errors"
	"sync"
)

// pixelBuffer is an in-memory stand-in for a device pixel buffer. Lock and
// Unlock nest; reading the pixels outside a lock is a caller bug.
type pixelBuffer struct {
	mu    sync.Mutex
	pix   []byte
	locks int
}

func newPixelBuffer(pix []byte) *pixelBuffer {
	return &pixelBuffer{pix: pix}
}

func (b *pixelBuffer) Lock() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pix == nil {
		return nil, errors.New("pixel buffer has no backing memory")
	}
	b.locks++
	return b.pix, nil
}

func (b *pixelBuffer) Unlock() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.locks == 0 {
		panic("pixel buffer unlocked more times than locked")
	}
	b.locks--
}

func (b *pixelBuffer) Locked() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locks
}
