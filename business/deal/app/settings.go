package app

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/config"
)

// Settings is the parsed form of the deal configuration.
type Settings struct {
	Balance  *big.Int
	Strategy pricingDomain.Strategy
	Orders   []pricingDomain.Order
	Overpay  pricingDomain.OverpayOption
	Slippage pricingDomain.SlippageOption

	// Nil falls back to the strategy's custom ratios.
	CustomOverpay  *float64
	CustomSlippage *float64

	// Nil means the engine picks the target per destination asset.
	TransferTarget *common.Address
}

// SettingsFromConfig parses amounts as Fixed18 and resolves assets, networks
// and publication options. Orders without an id are numbered.
func SettingsFromConfig(cfg config.DealConfig) (Settings, error) {
	var s Settings

	balance, err := pricingDomain.ParseFixed18(cfg.Balance)
	if err != nil {
		return s, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("deal.balance"))
	}
	s.Balance = balance

	if s.Strategy, err = strategyFromConfig(cfg.Strategy); err != nil {
		return s, err
	}

	if s.Overpay, err = pricingDomain.ParseOverpayOption(cfg.Overpay); err != nil {
		return s, err
	}
	if s.Slippage, err = pricingDomain.ParseSlippageOption(cfg.Slippage); err != nil {
		return s, err
	}
	if cfg.CustomOverpay != 0 {
		v := cfg.CustomOverpay
		s.CustomOverpay = &v
	}
	if cfg.CustomSlippage != 0 {
		v := cfg.CustomSlippage
		s.CustomSlippage = &v
	}

	if cfg.TransferTarget != "" {
		if !common.IsHexAddress(cfg.TransferTarget) {
			return s, apperror.Validation(apperror.CodeConfigurationError, "deal.transfer_target")
		}
		addr := common.HexToAddress(cfg.TransferTarget)
		s.TransferTarget = &addr
	}

	seen := make(map[string]bool, len(cfg.Orders))
	for i, oc := range cfg.Orders {
		if oc.ID == "" {
			oc.ID = fmt.Sprintf("order-%d", i+1)
		}
		if seen[oc.ID] {
			return s, apperror.Validation(apperror.CodeInvalidOrder, "duplicate order id "+oc.ID)
		}
		seen[oc.ID] = true

		o, err := orderFromConfig(oc)
		if err != nil {
			return s, err
		}
		s.Orders = append(s.Orders, o)
	}

	return s, nil
}

func strategyFromConfig(sc config.StrategyConfig) (pricingDomain.Strategy, error) {
	st := pricingDomain.Strategy{
		MinProfitRate:               sc.MinProfitRate,
		MaxShareOfMyBalancePerOrder: sc.MaxShareOfMyBalancePerOrder,
		CustomOverpayRatio:          sc.CustomOverpayRatio,
		CustomSlippage:              sc.CustomSlippage,
	}

	fields := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"min_profit_per_order", sc.MinProfitPerOrder, &st.MinProfitPerOrder},
		{"max_amount_per_order", sc.MaxAmountPerOrder, &st.MaxAmountPerOrder},
		{"min_amount_per_order", sc.MinAmountPerOrder, &st.MinAmountPerOrder},
		{"max_spend_limit", sc.MaxSpendLimit, &st.MaxSpendLimit},
	}
	for _, f := range fields {
		v, err := pricingDomain.ParseFixed18(f.raw)
		if err != nil {
			return st, apperror.New(apperror.CodeInvalidStrategy,
				apperror.WithCause(err),
				apperror.WithContext("deal.strategy."+f.name))
		}
		*f.dst = v
	}

	return st, st.Validate()
}

func orderFromConfig(oc config.OrderConfig) (pricingDomain.Order, error) {
	o := pricingDomain.Order{ID: oc.ID}

	invalid := func(field string, cause error) error {
		return apperror.New(apperror.CodeInvalidOrder,
			apperror.WithCause(cause),
			apperror.WithContext(fmt.Sprintf("order %s: %s", oc.ID, field)))
	}

	var err error
	if o.SrcNetwork, err = asset.ParseNetwork(oc.SrcNetwork); err != nil {
		return o, invalid("src_network", err)
	}
	if o.DstNetwork, err = asset.ParseNetwork(oc.DstNetwork); err != nil {
		return o, invalid("dst_network", err)
	}
	if o.SrcAsset, err = asset.ParseAsset(oc.SrcAsset); err != nil {
		return o, invalid("src_asset", err)
	}
	if o.DstAsset, err = asset.ParseAsset(oc.DstAsset); err != nil {
		return o, invalid("dst_asset", err)
	}
	if o.Amount, err = pricingDomain.ParseFixed18(oc.Amount); err != nil {
		return o, invalid("amount", err)
	}
	if o.MaxReward, err = pricingDomain.ParseFixed18(oc.MaxReward); err != nil {
		return o, invalid("max_reward", err)
	}

	return o, o.Validate()
}
