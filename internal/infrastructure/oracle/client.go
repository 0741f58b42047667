package oracle

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/janhq/image-upload/internal/domain/upload"
)

// Client queries the tag endpoint: POST <endpoint>?filename=<name> with an empty body.
type Client struct {
	endpoint   string
	httpClient *resty.Client
	log        zerolog.Logger
}

// NewClient validates endpoint and builds the client.
func NewClient(endpoint string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, upload.NewConfigurationError("Tag API URL is not configured correctly", fmt.Errorf("invalid endpoint %q", endpoint))
	}
	client := resty.New().
		SetHeader("User-Agent", "Jan-Image-Uploader/1.0").
		SetTimeout(timeout)
	return &Client{
		endpoint:   endpoint,
		httpClient: client,
		log:        log.With().Str("component", "tag-oracle").Logger(),
	}, nil
}

// QueryTag never fails; transport errors, non-2xx replies and unparseable bodies are
// all reported as Unavailable.
func (c *Client) QueryTag(ctx context.Context, filename string) upload.OracleResult {
	log := c.log.With().Str("filename", filename).Logger()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("filename", filename).
		Post(c.endpoint)
	if err != nil {
		log.Warn().Err(err).Msg("tag query failed")
		return upload.Unavailable()
	}
	if resp.IsError() {
		log.Warn().Int("status", resp.StatusCode()).Str("body", truncate(resp.String(), 512)).Msg("tag query rejected")
		return upload.Unavailable()
	}

	result, err := Parse(resp.Body())
	if err != nil {
		log.Warn().Err(err).Str("body", truncate(resp.String(), 512)).Msg("tag response unusable")
		return upload.Unavailable()
	}
	log.Debug().Str("result", result.Kind.String()).Msg("tag query answered")
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
