// Package di contains dependency injection tokens for the deal context.
package di

import (
	"github.com/fd1az/xchain-pricer/business/deal/app"
	"github.com/fd1az/xchain-pricer/business/deal/infra"
	"github.com/fd1az/xchain-pricer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Monitor = di.NewToken[*app.Monitor]("deal.Monitor")
)

// Private dependency tokens - internal to deal module
var (
	Reporters      = di.NewToken[[]app.Reporter]("deal:reporters")
	RedisPublisher = di.NewToken[*infra.RedisPublisher]("deal:redisPublisher")
)

// Helper functions for type-safe access
func GetMonitor(c di.ServiceRegistry) *app.Monitor {
	return di.GetToken(c, Monitor)
}

func GetReporters(c di.ServiceRegistry) []app.Reporter {
	return di.GetToken(c, Reporters)
}

// GetRedisPublisher returns nil when redis is disabled.
func GetRedisPublisher(c di.ServiceRegistry) *infra.RedisPublisher {
	return di.GetToken(c, RedisPublisher)
}
