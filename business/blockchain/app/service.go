package app

import (
	"context"

	"github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

// GasService coordinates gas price lookups across networks.
type GasService struct {
	gasOracle GasOracle
	logger    logger.LoggerInterface
}

// NewGasService creates a new GasService.
func NewGasService(gasOracle GasOracle, log logger.LoggerInterface) *GasService {
	return &GasService{
		gasOracle: gasOracle,
		logger:    log,
	}
}

// GetGasPrice retrieves the current gas price on n.
func (s *GasService) GetGasPrice(ctx context.Context, n asset.Network) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx, n)
}

// Snapshot fetches the gas price of every connected network. Networks that
// fail are logged and omitted.
func (s *GasService) Snapshot(ctx context.Context) map[asset.Network]*domain.GasPrice {
	nets := s.gasOracle.Networks()
	out := make(map[asset.Network]*domain.GasPrice, len(nets))
	for _, n := range nets {
		price, err := s.gasOracle.GetGasPrice(ctx, n)
		if err != nil {
			s.logger.Warn(ctx, "gas price unavailable", "network", n.String(), "error", err)
			continue
		}
		out[n] = price
	}
	return out
}

// Networks lists the connected networks.
func (s *GasService) Networks() []asset.Network {
	return s.gasOracle.Networks()
}
