// Package data provides data access layer implementations:
// the breaker counter stores, the command audit log and the GitHub client.
package data

import (
	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewMySQLClient,
	NewCommandAuditLogger,
	NewLogNotifier,
	NewGitHubClient,
)
