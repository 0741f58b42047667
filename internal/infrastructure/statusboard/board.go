package statusboard

import (
	"sync"

	"github.com/janhq/image-upload/internal/domain/upload"
)

// Board keeps only the latest status per upload. A new status overwrites the previous
// one; nothing is queued.
type Board struct {
	mu     sync.Mutex
	latest map[string]upload.Status
}

func NewBoard() *Board {
	return &Board{latest: make(map[string]upload.Status)}
}

// Publish implements upload.StatusSink.
func (b *Board) Publish(status upload.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest[status.UploadID] = status
}

// Latest returns the current status of one upload.
func (b *Board) Latest(uploadID string) (upload.Status, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.latest[uploadID]
	return s, ok
}
