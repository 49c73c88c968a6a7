// Package blockchain implements the blockchain bounded context: gas prices
// for every configured EVM network.
package blockchain

import (
	"context"
	"time"

	"github.com/fd1az/xchain-pricer/business/blockchain/app"
	blockchainDI "github.com/fd1az/xchain-pricer/business/blockchain/di"
	"github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/business/blockchain/infra/ethereum"
	"github.com/fd1az/xchain-pricer/internal/di"
	"github.com/fd1az/xchain-pricer/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) *ethereum.GasOracle {
		cfg := di.GetToken(sr, monolith.ConfigToken)
		log := di.GetToken(sr, monolith.LoggerToken)

		// Validate already rejected unknown network names.
		urls, _ := cfg.RPCURLs()

		oracleCfg := ethereum.DefaultGasOracleConfig(urls)
		if cfg.Gas.CacheTTL > 0 {
			oracleCfg.CacheTTL = cfg.Gas.CacheTTL
		}
		if cfg.Gas.MaxGwei > 0 {
			oracleCfg.MaxGasPrice = domain.GweiToWei(cfg.Gas.MaxGwei)
		}
		if cfg.Gas.RequestTimeout > 0 {
			oracleCfg.RequestTimeout = cfg.Gas.RequestTimeout
		}

		oracle, err := ethereum.NewGasOracle(oracleCfg, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, blockchainDI.GasService, func(sr di.ServiceRegistry) *app.GasService {
		log := di.GetToken(sr, monolith.LoggerToken)
		return app.NewGasService(blockchainDI.GetGasOracle(sr), log)
	})

	return nil
}

// Startup connects the gas oracle. Dial failures are logged; affected
// networks report CodeNetworkNotConfigured and costs degrade to zero gas.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	oracle := blockchainDI.GetGasOracle(mono.Services())
	mono.OnClose(oracle)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := oracle.Connect(connectCtx); err != nil {
		log.Error(ctx, "failed to connect gas oracle", "error", err)
	}

	log.Info(ctx, "blockchain module started", "networks", len(oracle.Networks()))
	return nil
}
