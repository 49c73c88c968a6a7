package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/health"
)

type breakerSource interface {
	Networks() []asset.Network
	BreakerState(n asset.Network) (gobreaker.State, bool)
}

type sizer interface {
	Len() int
}

type proxyBreaker interface {
	BreakerState() gobreaker.State
}

type connectable interface {
	IsConnected() bool
}

// gasOracleCheck fails when a configured network is not connected or its
// breaker is open.
func gasOracleCheck(oracle breakerSource, configured int) health.CheckFunc {
	return func(context.Context) (bool, string) {
		networks := oracle.Networks()
		if configured == 0 {
			return true, "no networks configured"
		}

		var open []string
		for _, n := range networks {
			if state, ok := oracle.BreakerState(n); ok && state == gobreaker.StateOpen {
				open = append(open, n.String())
			}
		}

		switch {
		case len(open) > 0:
			return false, "breaker open: " + strings.Join(open, ",")
		case len(networks) < configured:
			return false, fmt.Sprintf("%d/%d networks connected", len(networks), configured)
		}
		return true, fmt.Sprintf("%d networks connected", len(networks))
	}
}

func priceCacheCheck(cache sizer) health.CheckFunc {
	return func(context.Context) (bool, string) {
		return true, fmt.Sprintf("%d entries", cache.Len())
	}
}

func proxyCheck(proxy proxyBreaker) health.CheckFunc {
	return func(context.Context) (bool, string) {
		state := proxy.BreakerState()
		return state != gobreaker.StateOpen, "breaker " + state.String()
	}
}

func feedCheck(feed connectable) health.CheckFunc {
	return func(context.Context) (bool, string) {
		if feed.IsConnected() {
			return true, "connected"
		}
		return false, "disconnected"
	}
}

// monitorCheck fails when no round completed within stale.
func monitorCheck(lastRound func() time.Time, stale time.Duration) health.CheckFunc {
	return func(context.Context) (bool, string) {
		last := lastRound()
		if last.IsZero() {
			return true, "waiting for first round"
		}
		age := time.Since(last)
		if age > stale {
			return false, "last round " + age.Truncate(time.Second).String() + " ago"
		}
		return true, "last round " + age.Truncate(time.Millisecond).String() + " ago"
	}
}
