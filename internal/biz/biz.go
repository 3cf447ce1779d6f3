// Package biz contains business logic layer implementations:
// the circuit breakers guarding outbound calls and the command intake use case.
package biz

import (
	"BountyBot/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCounterStore,
	NewBreakerRegistryFromConf,
	NewCommandUsecase,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(BreakerNotifier), new(*data.LogNotifier)),
	wire.Bind(new(CommandAuditor), new(*data.CommandAuditLogger)),
	wire.Bind(new(CommentReactor), new(*data.GitHubClient)),
)
