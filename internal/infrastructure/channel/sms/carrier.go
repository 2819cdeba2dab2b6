package sms

import (
	"context"

	"github.com/bidmarket/notifier/pkg/logger"
	"go.uber.org/zap"
)

// LogCarrier is a carrier stand-in that logs instead of calling a provider.
// Used in development and as the wiring default.
type LogCarrier struct {
	name string
}

func NewLogCarrier(name string) *LogCarrier {
	return &LogCarrier{name: name}
}

func (c *LogCarrier) Name() string {
	return c.name
}

func (c *LogCarrier) Deliver(ctx context.Context, number, message string) error {
	logger.L().Info("SMS delivery (log carrier)",
		zap.String("carrier", c.name),
		zap.Int("messageLength", len(message)),
	)
	return nil
}

var _ Carrier = (*LogCarrier)(nil)
