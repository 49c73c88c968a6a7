package domain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/xchain-pricer/internal/asset"
)

var (
	addressZero = common.Address{}
	usdcAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func TestCostInAsset(t *testing.T) {
	gwei20 := big.NewInt(20_000_000_000)

	tests := []struct {
		name            string
		target          common.Address
		priceAsset      string
		priceNative     string
		wantLimit       uint64
		wantWei         string
		wantEth         string
		wantCostInAsset string
		wantUSD         float64
	}{
		{
			name:            "native_transfer",
			target:          addressZero,
			priceAsset:      "1",
			priceNative:     "2000",
			wantLimit:       EthTransferGasLimit,
			wantWei:         "420000000000000",
			wantEth:         "0.00042",
			wantCostInAsset: "0.840000000000000100",
			wantUSD:         0.8400000000000001,
		},
		{
			name:            "erc20_transfer",
			target:          usdcAddress,
			priceAsset:      "1",
			priceNative:     "2000",
			wantLimit:       ERC20TransferGasLimit,
			wantWei:         "1300000000000000",
			wantEth:         "0.0013",
			wantCostInAsset: "2.600000000000000000",
			wantUSD:         2.6,
		},
		{
			name:            "unknown_asset_price",
			target:          usdcAddress,
			priceAsset:      "0",
			priceNative:     "2000",
			wantLimit:       ERC20TransferGasLimit,
			wantWei:         "1300000000000000",
			wantEth:         "0.0013",
			wantCostInAsset: "0.000000000000000000",
			wantUSD:         2.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CostInAsset(asset.USDC, MustParseFixed18(tt.priceAsset), MustParseFixed18(tt.priceNative), gwei20, tt.target, addressZero)

			if got.Asset != asset.USDC {
				t.Errorf("Asset = %v", got.Asset)
			}
			if got.GasLimit != tt.wantLimit {
				t.Errorf("GasLimit = %d, want %d", got.GasLimit, tt.wantLimit)
			}
			if got.CostInWei.String() != tt.wantWei {
				t.Errorf("CostInWei = %s, want %s", got.CostInWei, tt.wantWei)
			}
			if got.CostInEth != tt.wantEth {
				t.Errorf("CostInEth = %s, want %s", got.CostInEth, tt.wantEth)
			}
			if s := FormatFixed18(got.CostInAsset); s != tt.wantCostInAsset {
				t.Errorf("CostInAsset = %s, want %s", s, tt.wantCostInAsset)
			}
			if got.CostInUSD != tt.wantUSD {
				t.Errorf("CostInUSD = %v, want %v", got.CostInUSD, tt.wantUSD)
			}
		})
	}
}

func TestCostInAsset_EighteenFractionalDigits(t *testing.T) {
	gas := big.NewInt(31_337_000_001)
	for _, price := range []string{"0.9998", "1980.861883676755965", "63000.12", "0.000031"} {
		got := CostInAsset(asset.DAI, MustParseFixed18(price), MustParseFixed18("1980.861883676755965"), gas, usdcAddress, addressZero)

		s := FormatFixed18(got.CostInAsset)
		_, frac, ok := strings.Cut(s, ".")
		if !ok || len(frac) != Decimals18 {
			t.Errorf("price %s: CostInAsset %s does not have 18 fractional digits", price, s)
		}
	}
}

func TestCostInAsset_DoesNotAliasGasPrice(t *testing.T) {
	gas := big.NewInt(1_000_000_000)
	got := CostInAsset(asset.ETH, One18, One18, gas, addressZero, addressZero)
	gas.SetInt64(0)

	if got.GasPriceWei.Int64() != 1_000_000_000 {
		t.Errorf("GasPriceWei changed with caller input: %s", got.GasPriceWei)
	}
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  string
		want string
	}{
		{"0", "0.0"},
		{"1000000000000000000", "1.0"},
		{"420000000000000", "0.00042"},
		{"1", "0.000000000000000001"},
		{"12345000000000000000", "12.345"},
	}

	for _, tt := range tests {
		if got := FormatEther(bigString(t, tt.wei)); got != tt.want {
			t.Errorf("FormatEther(%s) = %s, want %s", tt.wei, got, tt.want)
		}
	}
}

func TestZeroCost(t *testing.T) {
	c := ZeroCost(asset.BTC)
	if c.CostInAsset.Sign() != 0 || c.CostInWei.Sign() != 0 || c.CostInEth != "0.0" {
		t.Errorf("unexpected zero cost: %+v", c)
	}
}
