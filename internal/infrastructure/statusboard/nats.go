package statusboard

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/janhq/image-upload/internal/domain/upload"
)

// Publisher is the part of *nats.Conn the broadcaster needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS broadcasts every status as JSON on <subject>.<upload_id>.
type NATS struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
	log     zerolog.Logger
}

// NewNATS connects to url and returns a broadcaster rooted at subject.
func NewNATS(url, subject string, log zerolog.Logger) (*NATS, error) {
	logger := log.With().Str("component", "nats-status").Logger()
	nc, err := nats.Connect(url,
		nats.Name("image-uploader"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	n := NewNATSWithPublisher(nc, subject, log)
	n.conn = nc
	return n, nil
}

// NewNATSWithPublisher wraps an existing connection or test double.
func NewNATSWithPublisher(pub Publisher, subject string, log zerolog.Logger) *NATS {
	return &NATS{
		pub:     pub,
		subject: strings.TrimSuffix(strings.TrimSpace(subject), "."),
		log:     log.With().Str("component", "nats-status").Logger(),
	}
}

// Subject returns the subject a status for uploadID is published on.
func (n *NATS) Subject(uploadID string) string {
	if uploadID == "" {
		return n.subject
	}
	return n.subject + "." + uploadID
}

// Publish implements upload.StatusSink. Failures are logged, never returned to the workflow.
func (n *NATS) Publish(status upload.Status) {
	data, err := json.Marshal(status)
	if err != nil {
		n.log.Warn().Err(err).Msg("encode status")
		return
	}
	if err := n.pub.Publish(n.Subject(status.UploadID), data); err != nil {
		n.log.Warn().Err(err).Str("upload_id", status.UploadID).Msg("publish status")
	}
}

// Close flushes pending messages and closes an owned connection.
func (n *NATS) Close() {
	if n.conn == nil {
		return
	}
	if err := n.conn.FlushTimeout(2 * time.Second); err != nil {
		n.log.Warn().Err(err).Msg("flush nats")
	}
	n.conn.Close()
}
