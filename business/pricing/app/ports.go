// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	blockchainDomain "github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/asset"
)

// PriceStore is the USD price cache the engine reads from.
type PriceStore interface {
	// Get returns the cached price or, given an address hint, a remote lookup.
	Get(ctx context.Context, a asset.Asset, n asset.Network, addressHint string) (string, bool)

	// GetWholeCache returns a copy of every cached price.
	GetWholeCache() pricecache.Snapshot
}

// GasSource supplies gas prices per network.
type GasSource interface {
	GetGasPrice(ctx context.Context, n asset.Network) (*blockchainDomain.GasPrice, error)
}

// Stopper stops a background task.
type Stopper interface {
	Stop()
}
