package biz

import (
	"context"

	"BountyBot/internal/model"
)

// BreakerNotifier is told about every circuit breaker state change.
type BreakerNotifier interface {
	// NotifyTransition is called after the new state has been persisted.
	// Errors are logged by the breaker and do not affect the transition.
	NotifyTransition(ctx context.Context, event *model.BreakerTransitionEvent) error
}
