package asset

import (
	"strings"

	"github.com/fd1az/xchain-pricer/internal/apperror"
)

// Asset is a priced symbol. The set is closed and known at compile time.
// The zero value is AssetUnknown.
type Asset uint8

const (
	AssetUnknown Asset = iota
	ETH
	BTC
	USDC
	USDT
	DAI
	BNB
	MATIC
	AVAX
	// XVT is the synthetic vendor token. It has no static address and must be
	// mapped through overrides.
	XVT
)

// All returns every known asset in declaration order.
func All() []Asset {
	return []Asset{ETH, BTC, USDC, USDT, DAI, BNB, MATIC, AVAX, XVT}
}

// String returns the ticker symbol.
func (a Asset) String() string {
	switch a {
	case ETH:
		return "ETH"
	case BTC:
		return "BTC"
	case USDC:
		return "USDC"
	case USDT:
		return "USDT"
	case DAI:
		return "DAI"
	case BNB:
		return "BNB"
	case MATIC:
		return "MATIC"
	case AVAX:
		return "AVAX"
	case XVT:
		return "XVT"
	default:
		return "UNKNOWN"
	}
}

// Name returns the human-readable name.
func (a Asset) Name() string {
	switch a {
	case ETH:
		return "Ether"
	case BTC:
		return "Bitcoin"
	case USDC:
		return "USD Coin"
	case USDT:
		return "Tether USD"
	case DAI:
		return "Dai Stablecoin"
	case BNB:
		return "BNB"
	case MATIC:
		return "Polygon"
	case AVAX:
		return "Avalanche"
	case XVT:
		return "Vendor Token"
	default:
		return "Unknown"
	}
}

// IsStable reports whether the asset is a USD stablecoin.
func (a Asset) IsStable() bool {
	switch a {
	case USDC, USDT, DAI:
		return true
	default:
		return false
	}
}

// Valid reports whether a is one of the declared assets.
func (a Asset) Valid() bool {
	return a > AssetUnknown && a <= XVT
}

// ParseAsset resolves a ticker symbol, case-insensitively.
func ParseAsset(s string) (Asset, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ETH", "WETH":
		return ETH, nil
	case "BTC", "WBTC":
		return BTC, nil
	case "USDC":
		return USDC, nil
	case "USDT":
		return USDT, nil
	case "DAI":
		return DAI, nil
	case "BNB", "WBNB":
		return BNB, nil
	case "MATIC", "POL":
		return MATIC, nil
	case "AVAX", "WAVAX":
		return AVAX, nil
	case "XVT":
		return XVT, nil
	default:
		return AssetUnknown, apperror.Validation(apperror.CodeUnknownAsset, s)
	}
}

// MustParseAsset is like ParseAsset but panics on unknown symbols.
func MustParseAsset(s string) Asset {
	a, err := ParseAsset(s)
	if err != nil {
		panic(err)
	}
	return a
}
