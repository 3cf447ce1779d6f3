// Package service exposes the use cases over HTTP.
package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewCommandService, NewBreakerService)
