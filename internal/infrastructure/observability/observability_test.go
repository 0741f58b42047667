package observability_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/janhq/image-upload/internal/infrastructure/observability"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := observability.Setup(context.Background(), observability.Config{Enabled: true}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
