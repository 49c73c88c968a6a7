package asset

import (
	"strings"

	"github.com/fd1az/xchain-pricer/internal/apperror"
)

// Chain IDs
const (
	ChainIDEthereum  = 1
	ChainIDOptimism  = 10
	ChainIDBSC       = 56
	ChainIDPolygon   = 137
	ChainIDBase      = 8453
	ChainIDArbitrum  = 42161
	ChainIDAvalanche = 43114
)

// Network is a supported chain. The zero value is NetworkUnknown.
type Network uint8

const (
	NetworkUnknown Network = iota
	Ethereum
	Arbitrum
	Optimism
	Base
	Polygon
	BSC
	Avalanche
)

// Networks returns every known network in declaration order.
func Networks() []Network {
	return []Network{Ethereum, Arbitrum, Optimism, Base, Polygon, BSC, Avalanche}
}

// String returns the lowercase network name used in config keys and URLs.
func (n Network) String() string {
	switch n {
	case Ethereum:
		return "ethereum"
	case Arbitrum:
		return "arbitrum"
	case Optimism:
		return "optimism"
	case Base:
		return "base"
	case Polygon:
		return "polygon"
	case BSC:
		return "bsc"
	case Avalanche:
		return "avalanche"
	default:
		return "unknown"
	}
}

// ChainID returns the EIP-155 chain id, 0 for NetworkUnknown.
func (n Network) ChainID() uint64 {
	switch n {
	case Ethereum:
		return ChainIDEthereum
	case Arbitrum:
		return ChainIDArbitrum
	case Optimism:
		return ChainIDOptimism
	case Base:
		return ChainIDBase
	case Polygon:
		return ChainIDPolygon
	case BSC:
		return ChainIDBSC
	case Avalanche:
		return ChainIDAvalanche
	default:
		return 0
	}
}

// Native returns the asset gas is paid in.
func (n Network) Native() Asset {
	switch n {
	case Ethereum, Arbitrum, Optimism, Base:
		return ETH
	case Polygon:
		return MATIC
	case BSC:
		return BNB
	case Avalanche:
		return AVAX
	default:
		return AssetUnknown
	}
}

// NativeDecimals is the decimal count of the native coin. Every supported
// chain uses 18.
func (n Network) NativeDecimals() uint8 {
	switch n {
	case Ethereum, Arbitrum, Optimism, Base, Polygon, BSC, Avalanche:
		return 18
	default:
		return 0
	}
}

// Valid reports whether n is one of the declared networks.
func (n Network) Valid() bool {
	return n > NetworkUnknown && n <= Avalanche
}

// ParseNetwork resolves a network name, case-insensitively.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ethereum", "mainnet", "eth":
		return Ethereum, nil
	case "arbitrum", "arbitrum-one":
		return Arbitrum, nil
	case "optimism", "op":
		return Optimism, nil
	case "base":
		return Base, nil
	case "polygon", "matic":
		return Polygon, nil
	case "bsc", "binance":
		return BSC, nil
	case "avalanche", "avax":
		return Avalanche, nil
	default:
		return NetworkUnknown, apperror.Validation(apperror.CodeUnknownNetwork, s)
	}
}

// NetworkByChainID resolves a chain id to a Network.
func NetworkByChainID(id uint64) (Network, bool) {
	for _, n := range Networks() {
		if n.ChainID() == id {
			return n, true
		}
	}
	return NetworkUnknown, false
}
