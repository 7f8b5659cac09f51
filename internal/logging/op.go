package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Op represents a logical unit of work such as a sign-in attempt or a media
// upload, tied together by an operation identifier in the log stream.
type Op struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartOp derives an operation-scoped logger from the provided context. It
// returns the derived context and the operation handle.
func StartOp(ctx context.Context, name string) (context.Context, *Op) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx).With(
		slog.String("op", name),
		slog.String("op_id", uuid.NewString()),
	)
	ctx = WithLogger(ctx, logger)

	return ctx, &Op{
		name:   name,
		logger: logger,
		start:  time.Now(),
	}
}

// End finalizes the operation and emits a completion log entry.
func (o *Op) End() {
	if o == nil {
		return
	}
	o.logger.Info("operation completed", slog.Duration("duration", time.Since(o.start)))
}
