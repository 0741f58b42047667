package transfer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/janhq/image-upload/internal/domain/upload"
)

// Blob reads the whole content into memory and PUTs it in one request.
type Blob struct {
	httpClient *resty.Client
	log        zerolog.Logger
}

func NewBlob(timeout time.Duration, log zerolog.Logger) *Blob {
	client := resty.New().
		SetHeader("User-Agent", "Jan-Image-Uploader/1.0").
		SetTimeout(timeout)
	return &Blob{
		httpClient: client,
		log:        log.With().Str("component", "blob-transfer").Logger(),
	}
}

func (b *Blob) Transfer(ctx context.Context, cred upload.WriteCredential, content upload.Content, contentType string) (upload.TransferOutcome, error) {
	rc, err := content.Open()
	if err != nil {
		return upload.TransferOutcome{}, upload.NewTransferError(0, fmt.Errorf("open content: %w", err))
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return upload.TransferOutcome{}, upload.NewTransferError(0, fmt.Errorf("read content: %w", err))
	}

	resp, err := b.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put(cred.URL)
	if err != nil {
		return upload.TransferOutcome{}, upload.NewTransferError(0, err)
	}
	outcome := upload.TransferOutcome{StatusCode: resp.StatusCode()}
	if !isSuccess(outcome.StatusCode) {
		b.log.Warn().Int("status", outcome.StatusCode).Str("key", cred.Key.String()).Str("body", truncate(resp.String(), 512)).Msg("object PUT rejected")
		return outcome, upload.NewTransferError(outcome.StatusCode, nil)
	}
	b.log.Debug().Int("bytes", len(data)).Str("key", cred.Key.String()).Msg("object PUT accepted")
	return outcome, nil
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
