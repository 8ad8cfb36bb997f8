package notification

import (
	"context"
	"log/slog"
)

const (
	// KindAllowanceSpend indicates a delegated spend against an allowance pool.
	KindAllowanceSpend = "allowance_spend"
	// KindStreamPayout indicates accrued stream value was withdrawn.
	KindStreamPayout = "stream_payout"
	// KindEscrowRelease indicates a commitment was revealed and paid out.
	KindEscrowRelease = "escrow_release"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
