// Package notify holds the outbound notifiers that receive the tally summary
// after every vote.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"partyvote/internal/app"
)

// LogNotifier writes summaries to the log. It is the fallback when no chat
// destination is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: app.ResolveLogger(logger)}
}

// Notify logs the summary at info level
func (n *LogNotifier) Notify(ctx context.Context, summary string) error {
	n.logger.InfoContext(ctx, "vote summary", "summary", summary)
	return nil
}

// Multi delivers every summary to each notifier in order. Delivery continues
// past failures; the joined error is returned.
type Multi []app.Notifier

// NewMulti skips nil notifiers
func NewMulti(notifiers ...app.Notifier) Multi {
	out := make(Multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Notify sends the summary to every notifier
func (m Multi) Notify(ctx context.Context, summary string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a plain function to app.Notifier
type Func func(ctx context.Context, summary string) error

// Notify calls f
func (f Func) Notify(ctx context.Context, summary string) error {
	return f(ctx, summary)
}

var (
	_ app.Notifier = (*LogNotifier)(nil)
	_ app.Notifier = Multi(nil)
	_ app.Notifier = Func(nil)
)
