package app

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

type stubOracle struct {
	prices map[asset.Network]*big.Int
}

func (s *stubOracle) GetGasPrice(_ context.Context, n asset.Network) (*domain.GasPrice, error) {
	wei, ok := s.prices[n]
	if !ok {
		return nil, errors.New("rpc down")
	}
	return domain.NewGasPrice(n, wei, time.Now()), nil
}

func (s *stubOracle) Networks() []asset.Network {
	return []asset.Network{asset.Ethereum, asset.Arbitrum, asset.Polygon}
}

func TestGasService_SnapshotSkipsFailures(t *testing.T) {
	svc := NewGasService(&stubOracle{prices: map[asset.Network]*big.Int{
		asset.Ethereum: big.NewInt(20_000_000_000),
		asset.Arbitrum: big.NewInt(10_000_000),
	}}, logger.NewNop())

	snap := svc.Snapshot(context.Background())

	if len(snap) != 2 {
		t.Fatalf("snapshot has %d entries, want 2", len(snap))
	}
	if snap[asset.Ethereum].Gwei != 20 {
		t.Errorf("ethereum gwei = %v", snap[asset.Ethereum].Gwei)
	}
	if _, ok := snap[asset.Polygon]; ok {
		t.Error("failed network must be omitted")
	}
}
