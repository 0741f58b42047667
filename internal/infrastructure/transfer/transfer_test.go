package transfer_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/infrastructure/transfer"
)

type captured struct {
	method        string
	contentType   string
	contentLength int64
	chunked       bool
	body          []byte
	query         string
}

func newStorageServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.method = r.Method
		c.contentType = r.Header.Get("Content-Type")
		c.contentLength = r.ContentLength
		c.chunked = len(r.TransferEncoding) > 0
		c.query = r.URL.RawQuery
		c.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func credential(t *testing.T, base string) upload.WriteCredential {
	t.Helper()
	key, err := upload.NewStorageKey("uploads/", "cat.jpg")
	require.NoError(t, err)
	return upload.WriteCredential{
		URL:       base + "/images/uploads/cat.jpg?X-Amz-Signature=abc&X-Amz-Expires=900",
		Key:       key,
		ExpiresAt: time.Now().Add(time.Minute),
	}
}

func transfers() map[string]upload.Transfer {
	return map[string]upload.Transfer{
		"blob":   transfer.NewBlob(5*time.Second, zerolog.Nop()),
		"stream": transfer.NewStream(5*time.Second, zerolog.Nop()),
	}
}

func TestTransferSendsExactBytesAndType(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3, 4}
	path := filepath.Join(t.TempDir(), "cat.jpg")
	require.NoError(t, os.WriteFile(path, payload, 0o600))
	file, err := upload.NewFileContent(path)
	require.NoError(t, err)

	for name, tr := range transfers() {
		t.Run(name, func(t *testing.T) {
			srv, c := newStorageServer(t, http.StatusOK)

			outcome, err := tr.Transfer(context.Background(), credential(t, srv.URL), file, "image/jpeg")
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, outcome.StatusCode)
			assert.Equal(t, http.MethodPut, c.method)
			assert.Equal(t, "image/jpeg", c.contentType)
			assert.Equal(t, int64(len(payload)), c.contentLength)
			assert.False(t, c.chunked)
			assert.Equal(t, payload, c.body)
			assert.Equal(t, "X-Amz-Signature=abc&X-Amz-Expires=900", c.query)
		})
	}
}

func TestTransferReportsStatus(t *testing.T) {
	for name, tr := range transfers() {
		t.Run(name, func(t *testing.T) {
			srv, _ := newStorageServer(t, http.StatusForbidden)

			outcome, err := tr.Transfer(context.Background(), credential(t, srv.URL), upload.BytesContent("data"), "image/png")
			require.Error(t, err)
			assert.ErrorIs(t, err, upload.ErrTransferFailed)
			assert.Equal(t, http.StatusForbidden, outcome.StatusCode)
			assert.Equal(t, "S3 upload failed with status: 403", upload.UserMessage(err))
		})
	}
}

func TestTransferUnreachable(t *testing.T) {
	srv, _ := newStorageServer(t, http.StatusOK)
	base := srv.URL
	srv.Close()

	for name, tr := range transfers() {
		t.Run(name, func(t *testing.T) {
			_, err := tr.Transfer(context.Background(), credential(t, base), upload.BytesContent("data"), "image/png")
			assert.ErrorIs(t, err, upload.ErrTransferFailed)
			assert.Equal(t, "Upload failed: storage could not be reached", upload.UserMessage(err))
		})
	}
}
