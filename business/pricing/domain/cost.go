package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
)

// Gas limits for a plain native transfer and an ERC-20 transfer.
const (
	EthTransferGasLimit   uint64 = 21000
	ERC20TransferGasLimit uint64 = 65000
)

// CostResult is the execution cost of a transfer expressed in several units.
type CostResult struct {
	Asset          asset.Asset
	GasLimit       uint64
	GasPriceWei    *big.Int
	CostInWei      *big.Int
	CostInEth      string  // formatEther of CostInWei
	CostInEthFloat float64 // CostInWei / 1e18
	CostInUSD      float64
	CostInAsset    *big.Int // Fixed18
}

// ZeroCost returns a cost of zero in every unit.
func ZeroCost(a asset.Asset) CostResult {
	return CostResult{
		Asset:       a,
		GasPriceWei: new(big.Int),
		CostInWei:   new(big.Int),
		CostInEth:   "0.0",
		CostInAsset: new(big.Int),
	}
}

// GasLimitFor picks the transfer gas limit: native when target is addressZero,
// ERC-20 otherwise.
func GasLimitFor(transferTarget, addressZero common.Address) uint64 {
	if transferTarget == addressZero {
		return EthTransferGasLimit
	}
	return ERC20TransferGasLimit
}

// CostInAsset prices a transfer of a in units of a. priceAsset and priceNative
// are Fixed18 USD prices.
func CostInAsset(a asset.Asset, priceAsset, priceNative, gasPriceWei *big.Int, transferTarget, addressZero common.Address) CostResult {
	apperror.Required(priceAsset, "priceAsset")
	apperror.Required(priceNative, "priceNative")
	apperror.Required(gasPriceWei, "gasPriceWei")

	limit := GasLimitFor(transferTarget, addressZero)
	costInWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(limit))

	priceNativeInAsset := PriceAinB(priceNative, priceAsset)
	costInEth := Fixed18ToFloat(costInWei)

	costInAsset, err := FloatToFixed18(Fixed18ToFloat(priceNativeInAsset) * costInEth)
	if err != nil {
		costInAsset = new(big.Int)
	}

	return CostResult{
		Asset:          a,
		GasLimit:       limit,
		GasPriceWei:    new(big.Int).Set(gasPriceWei),
		CostInWei:      costInWei,
		CostInEth:      FormatEther(costInWei),
		CostInEthFloat: costInEth,
		CostInUSD:      Fixed18ToFloat(priceNative) * costInEth,
		CostInAsset:    costInAsset,
	}
}

// FormatEther renders wei as a decimal ether string with at least one
// fractional digit ("1.0", "0.00042").
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}
	s := decimal.NewFromBigInt(wei, -Decimals18).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
