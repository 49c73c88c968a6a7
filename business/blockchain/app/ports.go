// Package app exposes gas prices to the other bounded contexts.
package app

import (
	"context"

	"github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/internal/asset"
)

// GasOracle is the per-network gas price source. Networks whose RPC dial
// failed are absent from Networks and fail GetGasPrice with
// CodeNetworkNotConfigured.
type GasOracle interface {
	GetGasPrice(ctx context.Context, n asset.Network) (*domain.GasPrice, error)
	Networks() []asset.Network
}
