//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/janhq/image-upload/internal/config"
	"github.com/janhq/image-upload/internal/domain/tagging"
	"github.com/janhq/image-upload/internal/infrastructure/storage"
	"github.com/janhq/image-upload/internal/interfaces/httpserver"
	"github.com/janhq/image-upload/internal/interfaces/httpserver/handlers"
)

var taggingSet = wire.NewSet(
	provideStorage,
	wire.Bind(new(tagging.Storage), new(*storage.S3Storage)),
	provideLedger,
	provideClassifier,
	provideLocker,
	tagging.NewService,
	wire.Bind(new(handlers.TagService), new(*tagging.Service)),
)

// BuildApplication assembles the image upload service with Wire.
func BuildApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		config.Load,
		provideLogger,
		taggingSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil, nil
}
