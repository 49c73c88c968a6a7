// Package di holds the blockchain context's service tokens.
package di

import (
	"github.com/fd1az/xchain-pricer/business/blockchain/app"
	"github.com/fd1az/xchain-pricer/business/blockchain/infra/ethereum"
	"github.com/fd1az/xchain-pricer/internal/di"
)

var (
	// GasService is what pricing and deal consume.
	GasService = di.NewToken[*app.GasService]("blockchain.GasService")
	// GasOracle is the concrete oracle. main reads its breakers for health.
	GasOracle = di.NewToken[*ethereum.GasOracle]("blockchain:gasOracle")
)

func GetGasService(sr di.ServiceRegistry) *app.GasService { return di.GetToken(sr, GasService) }

func GetGasOracle(sr di.ServiceRegistry) *ethereum.GasOracle { return di.GetToken(sr, GasOracle) }
