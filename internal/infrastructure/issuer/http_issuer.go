package issuer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/janhq/image-upload/internal/domain/upload"
)

type presignResponse struct {
	PresignedURL string     `json:"presignedUrl"`
	Key          string     `json:"key,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

// HTTPIssuer asks the presign endpoint for a write credential: GET <endpoint>?filename=<name>.
type HTTPIssuer struct {
	endpoint   string
	httpClient *resty.Client
	clock      clockwork.Clock
	log        zerolog.Logger
}

// NewHTTPIssuer validates endpoint and builds the client. clock may be nil.
func NewHTTPIssuer(endpoint string, timeout time.Duration, clock clockwork.Clock, log zerolog.Logger) (*HTTPIssuer, error) {
	endpoint = strings.TrimSpace(endpoint)
	if !isAbsoluteHTTP(endpoint) {
		return nil, upload.NewConfigurationError("Presign API URL is not configured correctly", fmt.Errorf("invalid endpoint %q", endpoint))
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	client := resty.New().
		SetHeader("User-Agent", "Jan-Image-Uploader/1.0").
		SetTimeout(timeout)
	return &HTTPIssuer{
		endpoint:   endpoint,
		httpClient: client,
		clock:      clock,
		log:        log.With().Str("component", "http-issuer").Logger(),
	}, nil
}

func (i *HTTPIssuer) IssueWriteCredential(ctx context.Context, key upload.StorageKey, contentType string) (upload.WriteCredential, error) {
	req := i.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("filename", key.Filename())
	if contentType != "" {
		req.SetQueryParam("contentType", contentType)
	}
	resp, err := req.Get(i.endpoint)
	if err != nil {
		return upload.WriteCredential{}, upload.NewCredentialError("Failed to get presigned URL", err)
	}
	if resp.IsError() {
		i.log.Warn().Int("status", resp.StatusCode()).Str("body", truncate(resp.String(), 512)).Msg("presign request rejected")
		return upload.WriteCredential{}, upload.NewCredentialError(
			fmt.Sprintf("Failed to get presigned URL (status %d)", resp.StatusCode()), nil)
	}

	var body presignResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		i.log.Warn().Err(err).Str("body", truncate(resp.String(), 512)).Msg("presign response is not JSON")
		return upload.WriteCredential{}, upload.NewCredentialError("Failed to get presigned URL", err)
	}
	if !isAbsoluteHTTP(body.PresignedURL) {
		return upload.WriteCredential{}, upload.NewCredentialError("Failed to get presigned URL",
			fmt.Errorf("response carries no usable presignedUrl"))
	}

	return upload.WriteCredential{
		URL:       body.PresignedURL,
		Key:       key,
		ExpiresAt: boundExpiry(i.clock.Now(), body.ExpiresAt),
	}, nil
}

// boundExpiry never trusts an expiry further out than the maximum credential lifetime.
func boundExpiry(now time.Time, reported *time.Time) time.Time {
	limit := now.Add(upload.MaxCredentialTTL)
	if reported == nil || reported.IsZero() || reported.After(limit) {
		return limit
	}
	return *reported
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
