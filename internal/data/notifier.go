package data

import (
	"context"

	"BountyBot/internal/model"
	pkglog "BountyBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// LogNotifier reports breaker transitions to the service log.
type LogNotifier struct {
	logger *pkglog.LogHelper
}

// NewLogNotifier creates a log-only breaker notifier.
func NewLogNotifier(logger log.Logger) *LogNotifier {
	return &LogNotifier{
		logger: pkglog.NewLogHelper(logger),
	}
}

// NotifyTransition logs event. Opening a circuit is a warning; the other transitions are info.
func (n *LogNotifier) NotifyTransition(_ context.Context, event *model.BreakerTransitionEvent) error {
	if event == nil {
		return nil
	}

	kvs := []interface{}{
		"breaker", event.Breaker,
		"from", event.From,
		"to", event.To,
		"reason", event.Reason,
		"failures", event.Failures,
		"successes", event.Successes,
		"at", event.At,
	}

	switch event.To {
	case "OPEN":
		n.logger.Breaker("circuit opened: calls to "+event.Breaker+" fail fast", kvs...)
	case "HALF_OPEN":
		n.logger.Infow(append([]interface{}{"msg", "circuit half-open: probing " + event.Breaker, "type", "breaker"}, kvs...)...)
	default:
		n.logger.Success("circuit closed: "+event.Breaker+" recovered", kvs...)
	}
	return nil
}
