//go:build wireinject
// +build wireinject

package di

import (
	"NovaSignal/pkg/config"
	"NovaSignal/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideL2Cache,
		ProvideUpstreamClient,
		ProvideHistorySource,
		ProvidePassthroughSource,

		// Caches
		ProvideHistoryCache,
		ProvidePassthroughCaches,

		// Use cases
		ProvideStreamConfig,
		ProvideRegistry,
		ProvidePassthrough,

		// HTTP surface
		ProvideLimiter,
		ProvideHandler,

		// Background work
		ProvideRefresher,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
