package main

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/xchain-pricer/internal/asset"
)

type fakeOracle struct {
	networks []asset.Network
	states   map[asset.Network]gobreaker.State
}

func (f fakeOracle) Networks() []asset.Network { return f.networks }

func (f fakeOracle) BreakerState(n asset.Network) (gobreaker.State, bool) {
	s, ok := f.states[n]
	return s, ok
}

type fixedLen int

func (f fixedLen) Len() int { return int(f) }

type fixedBreaker gobreaker.State

func (f fixedBreaker) BreakerState() gobreaker.State { return gobreaker.State(f) }

type fixedConn bool

func (f fixedConn) IsConnected() bool { return bool(f) }

func TestGasOracleCheck(t *testing.T) {
	ctx := context.Background()

	ok, msg := gasOracleCheck(fakeOracle{}, 0)(ctx)
	assert.True(t, ok)
	assert.Equal(t, "no networks configured", msg)

	all := fakeOracle{
		networks: []asset.Network{asset.Ethereum, asset.Arbitrum},
		states: map[asset.Network]gobreaker.State{
			asset.Ethereum: gobreaker.StateClosed,
			asset.Arbitrum: gobreaker.StateHalfOpen,
		},
	}
	ok, _ = gasOracleCheck(all, 2)(ctx)
	assert.True(t, ok)

	ok, msg = gasOracleCheck(all, 3)(ctx)
	assert.False(t, ok)
	assert.Equal(t, "2/3 networks connected", msg)

	all.states[asset.Arbitrum] = gobreaker.StateOpen
	ok, msg = gasOracleCheck(all, 2)(ctx)
	assert.False(t, ok)
	assert.Contains(t, msg, asset.Arbitrum.String())
}

func TestSimpleChecks(t *testing.T) {
	ctx := context.Background()

	ok, msg := priceCacheCheck(fixedLen(4))(ctx)
	assert.True(t, ok)
	assert.Equal(t, "4 entries", msg)

	ok, _ = proxyCheck(fixedBreaker(gobreaker.StateClosed))(ctx)
	assert.True(t, ok)
	ok, _ = proxyCheck(fixedBreaker(gobreaker.StateOpen))(ctx)
	assert.False(t, ok)

	ok, _ = feedCheck(fixedConn(true))(ctx)
	assert.True(t, ok)
	ok, msg = feedCheck(fixedConn(false))(ctx)
	assert.False(t, ok)
	assert.Equal(t, "disconnected", msg)
}

func TestMonitorCheck(t *testing.T) {
	ctx := context.Background()

	ok, msg := monitorCheck(func() time.Time { return time.Time{} }, time.Minute)(ctx)
	assert.True(t, ok)
	assert.Equal(t, "waiting for first round", msg)

	ok, _ = monitorCheck(func() time.Time { return time.Now() }, time.Minute)(ctx)
	assert.True(t, ok)

	ok, _ = monitorCheck(func() time.Time { return time.Now().Add(-2 * time.Minute) }, time.Minute)(ctx)
	assert.False(t, ok)
}
