package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/image-upload/internal/domain/upload"
)

// Stream PUTs the content straight from its reader with an exact Content-Length.
// Presigned PUTs reject chunked transfer encoding, so the size must be known up front.
type Stream struct {
	client *http.Client
	log    zerolog.Logger
}

func NewStream(timeout time.Duration, log zerolog.Logger) *Stream {
	return &Stream{
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "stream-transfer").Logger(),
	}
}

func (s *Stream) Transfer(ctx context.Context, cred upload.WriteCredential, content upload.Content, contentType string) (upload.TransferOutcome, error) {
	rc, err := content.Open()
	if err != nil {
		return upload.TransferOutcome{}, upload.NewTransferError(0, fmt.Errorf("open content: %w", err))
	}
	defer rc.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cred.URL, rc)
	if err != nil {
		return upload.TransferOutcome{}, upload.NewTransferError(0, err)
	}
	req.ContentLength = content.Size()
	if req.ContentLength == 0 {
		req.Body = http.NoBody
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return upload.TransferOutcome{}, upload.NewTransferError(0, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	outcome := upload.TransferOutcome{StatusCode: resp.StatusCode}
	if !isSuccess(resp.StatusCode) {
		s.log.Warn().Int("status", resp.StatusCode).Str("key", cred.Key.String()).Str("body", string(body)).Msg("object PUT rejected")
		return outcome, upload.NewTransferError(resp.StatusCode, nil)
	}
	s.log.Debug().Int64("bytes", content.Size()).Str("key", cred.Key.String()).Msg("object PUT accepted")
	return outcome, nil
}
