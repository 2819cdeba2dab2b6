package push

import (
	"context"

	"github.com/bidmarket/notifier/pkg/logger"
	"go.uber.org/zap"
)

// LogGateway is a delivery network stand-in that logs instead of calling a
// provider. Used in development and as the wiring default until real
// provider credentials are configured.
type LogGateway struct {
	name string
}

func NewLogGateway(name string) *LogGateway {
	return &LogGateway{name: name}
}

func (g *LogGateway) Name() string {
	return g.name
}

func (g *LogGateway) Deliver(ctx context.Context, messages []Message) error {
	logger.L().Info("Push delivery (log gateway)",
		zap.String("network", g.name),
		zap.Int("messageCount", len(messages)),
	)
	return nil
}

var _ Gateway = (*LogGateway)(nil)
