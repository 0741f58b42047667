package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/janhq/image-upload/internal/config"
	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/infrastructure/issuer"
	"github.com/janhq/image-upload/internal/infrastructure/logger"
	"github.com/janhq/image-upload/internal/infrastructure/oracle"
	"github.com/janhq/image-upload/internal/infrastructure/statusboard"
	"github.com/janhq/image-upload/internal/infrastructure/transfer"
)

type uploadDeps struct {
	clock    clockwork.Clock
	issuer   upload.CredentialIssuer
	transfer upload.Transfer
	oracle   upload.Oracle
	nats     *statusboard.NATS
}

func newLogger(cmd *cobra.Command, cfg *config.ClientConfig) zerolog.Logger {
	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	return logger.NewWithWriter(cmd.ErrOrStderr(), level, "image-uploader", cfg.Environment)
}

func newUploadDeps(cfg *config.ClientConfig, log zerolog.Logger) (*uploadDeps, error) {
	deps := &uploadDeps{clock: clockwork.NewRealClock()}

	httpIssuer, err := issuer.NewHTTPIssuer(cfg.PresignAPIURL, cfg.HTTPTimeout, deps.clock, log)
	if err != nil {
		return nil, upload.NewConfigurationError("Presign API URL is not configured correctly", err)
	}
	deps.issuer = httpIssuer

	switch cfg.TransferMode {
	case config.TransferModeBlob:
		deps.transfer = transfer.NewBlob(cfg.HTTPTimeout, log)
	default:
		deps.transfer = transfer.NewStream(cfg.HTTPTimeout, log)
	}

	tagClient, err := oracle.NewClient(cfg.TagAPIURL, cfg.HTTPTimeout, log)
	if err != nil {
		return nil, upload.NewConfigurationError("Tag API URL is not configured correctly", err)
	}
	deps.oracle = tagClient

	if cfg.NATSURL != "" {
		broadcaster, err := statusboard.NewNATS(cfg.NATSURL, cfg.StatusSubject, log)
		if err != nil {
			// Status broadcast is optional; uploads still run without it.
			log.Warn().Err(err).Str("url", cfg.NATSURL).Msg("nats unavailable, statuses stay local")
		} else {
			deps.nats = broadcaster
		}
	}
	return deps, nil
}

// sink builds the status fan-out for one upload.
func (d *uploadDeps) sink(local ...upload.StatusSink) upload.StatusSink {
	fanout := statusboard.Fanout(local)
	if d.nats != nil {
		fanout = append(fanout, d.nats)
	}
	return fanout
}

func (d *uploadDeps) Close() {
	if d.nats != nil {
		d.nats.Close()
	}
}
