package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("missing logger discards", func(t *testing.T) {
		logger := FromContext(context.Background())
		assert.NotNil(t, logger)
		assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
	})

	t.Run("attributes accumulate", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
		ctx = With(ctx, "target", "zlib")
		ctx = With(ctx, "phase", "configure")

		FromContext(ctx).Info("hello")

		assert.Contains(t, buf.String(), "target=zlib")
		assert.Contains(t, buf.String(), "phase=configure")
	})
}
