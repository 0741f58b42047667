package handlers

import (
	"github.com/rs/zerolog"
)

// Provider wires HTTP handlers.
type Provider struct {
	Tag *TagHandler
}

func NewProvider(service TagService, log zerolog.Logger) *Provider {
	return &Provider{
		Tag: NewTagHandler(service, log),
	}
}
