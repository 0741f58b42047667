package tagging

import (
	"errors"
	"time"

	"github.com/janhq/image-upload/internal/domain/upload"
)

var (
	ErrNotFound         = errors.New("object not found")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrLocked           = errors.New("lock held elsewhere")
)

// DuplicateRecord captures an object that existed when a new write credential was issued
// for the same key, with the tags it carried before being overwritten.
type DuplicateRecord struct {
	Key        string
	Tags       []upload.TagRecord
	DetectedAt time.Time
}

// Credential is an issued presigned PUT.
type Credential struct {
	URL         string
	Key         string
	ContentType string
	ExpiresAt   time.Time
}

// TagAnswer is the server's view of one object's duplicate and tag state.
type TagAnswer struct {
	Duplicate   bool
	HasTags     bool
	Tags        []upload.TagRecord
	OriginalKey string
	Tag         string
	FilePath    string
	Pending     bool
}

// Label is one classifier result.
type Label struct {
	Name       string
	Confidence float32
}
