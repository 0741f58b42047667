package responses

import (
	"time"

	"github.com/janhq/image-upload/internal/domain/upload"
)

// PresignResponse carries a single-use PUT URL.
type PresignResponse struct {
	PresignedURL string    `json:"presignedUrl"`
	Key          string    `json:"key"`
	ContentType  string    `json:"contentType"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// DuplicateResponse reports that the upload overwrote an existing object.
type DuplicateResponse struct {
	Duplicate   bool               `json:"duplicate"`
	HasTags     bool               `json:"hasTags"`
	Tags        []upload.TagRecord `json:"tags"`
	OriginalKey string             `json:"originalKey"`
}

// TagResponse reports the tags of a fresh upload. Tags is omitted while tagging is pending.
type TagResponse struct {
	Tags     []upload.TagRecord `json:"tags,omitempty"`
	Tag      string             `json:"tag,omitempty"`
	FilePath string             `json:"filePath"`
}
