package ctxlog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/onsi/gomega"

	"github.com/toejough/decoreg/internal/ctxlog"
)

func TestFromContextReturnsStoredLogger(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	ctxlog.FromContext(ctx).Info("hello")

	g.Expect(ctxlog.FromContext(ctx)).To(gomega.BeIdenticalTo(logger))
	g.Expect(buf.String()).To(gomega.ContainSubstring("msg=hello"))
}

func TestFromContextWithoutLoggerDiscards(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)

	logger := ctxlog.FromContext(context.Background())

	g.Expect(logger).NotTo(gomega.BeNil())
	g.Expect(logger.Enabled(context.Background(), slog.LevelError)).To(gomega.BeFalse())
}
