package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// MaxCredentialTTL bounds how long a write credential may stay valid.
const MaxCredentialTTL = time.Hour

// Content is a handle to the bytes being uploaded.
type Content interface {
	Open() (io.ReadCloser, error)
	Size() int64
}

// FileContent streams an upload from disk.
type FileContent struct {
	path string
	size int64
}

// NewFileContent stats path and returns a handle for it.
func NewFileContent(path string) (*FileContent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &FileContent{path: path, size: info.Size()}, nil
}

func (f *FileContent) Open() (io.ReadCloser, error) { return os.Open(f.path) }
func (f *FileContent) Size() int64                  { return f.size }

// BytesContent is an in-memory upload.
type BytesContent []byte

func (b BytesContent) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}
func (b BytesContent) Size() int64 { return int64(len(b)) }

// Request is one user selection handed to the Orchestrator.
type Request struct {
	Content  Content
	Filename string
	MimeType string
}

// StorageKey is the object key an upload is written to: prefix followed by filename.
type StorageKey struct {
	prefix   string
	filename string
}

// NewStorageKey derives the key for filename. Both parts must be non-empty.
func NewStorageKey(prefix, filename string) (StorageKey, error) {
	if strings.TrimSpace(prefix) == "" {
		return StorageKey{}, newError(ErrConfiguration, "storage key prefix is not configured", nil)
	}
	if strings.TrimSpace(filename) == "" {
		return StorageKey{}, newError(ErrNoRequest, "filename is required", nil)
	}
	return StorageKey{prefix: prefix, filename: filename}, nil
}

func (k StorageKey) String() string   { return k.prefix + k.filename }
func (k StorageKey) Filename() string { return k.filename }

// WriteCredential authorizes a single PUT of one key until ExpiresAt.
type WriteCredential struct {
	URL       string
	Key       StorageKey
	ExpiresAt time.Time
}

// Expired reports whether the credential can no longer be used at now.
func (c WriteCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// TransferOutcome is the storage response to an object PUT.
type TransferOutcome struct {
	StatusCode int
}

// TagRecord is one key/value label on a stored object.
type TagRecord struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// FormatTags renders tags verbatim as a JSON array, the form shown to users.
func FormatTags(tags []TagRecord) string {
	if tags == nil {
		tags = []TagRecord{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return fmt.Sprintf("%v", tags)
	}
	return string(raw)
}

// Severity classifies a status for presentation.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func (s Severity) String() string { return string(s) }

// Status is the single latest message shown for an upload. Each transition overwrites it.
type Status struct {
	UploadID string    `json:"upload_id"`
	State    State     `json:"state"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	Visible  bool      `json:"visible"`
	At       time.Time `json:"at"`
}
