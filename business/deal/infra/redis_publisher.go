package infra

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	blockchainDomain "github.com/fd1az/xchain-pricer/business/blockchain/domain"
	"github.com/fd1az/xchain-pricer/business/deal/domain"
	pricingDomain "github.com/fd1az/xchain-pricer/business/pricing/domain"
	"github.com/fd1az/xchain-pricer/business/pricing/infra/pricecache"
	"github.com/fd1az/xchain-pricer/internal/apperror"
	"github.com/fd1az/xchain-pricer/internal/asset"
	"github.com/fd1az/xchain-pricer/internal/logger"
)

// RedisConfig holds the publisher settings.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	StreamMaxLen int64
}

// RedisPublisher implements Reporter by writing deal state to Redis:
//
//	<prefix>:deal:last:<order id>  HASH  latest report per order
//	<prefix>:deal:profitable       ZSET  currently profitable orders scored by profit
//	<prefix>:deal:events           STREAM every report
//	<prefix>:prices                HASH  asset:network -> USD price
//	<prefix>:gas                   HASH  network -> gwei
//	<prefix>:status                HASH  connection -> up/down
type RedisPublisher struct {
	rdb    *redis.Client
	prefix string
	maxLen int64
	logger logger.LoggerInterface
}

// NewRedisPublisher creates a publisher. It does not connect until Start.
func NewRedisPublisher(cfg RedisConfig, log logger.LoggerInterface) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &RedisPublisher{
		rdb:    rdb,
		prefix: cfg.KeyPrefix,
		maxLen: cfg.StreamMaxLen,
		logger: log,
	}
}

func (p *RedisPublisher) key(parts ...string) string {
	k := p.prefix
	for _, part := range parts {
		if k == "" {
			k = part
			continue
		}
		k += ":" + part
	}
	return k
}

// LastKey is the hash holding the latest report for orderID.
func (p *RedisPublisher) LastKey(orderID string) string {
	return p.key("deal", "last", orderID)
}

// ProfitableKey is the sorted set of profitable orders.
func (p *RedisPublisher) ProfitableKey() string {
	return p.key("deal", "profitable")
}

// EventsKey is the stream of every report.
func (p *RedisPublisher) EventsKey() string {
	return p.key("deal", "events")
}

// Start checks that Redis is reachable.
func (p *RedisPublisher) Start(ctx context.Context) error {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return apperror.New(apperror.CodeRedisPublishFailed,
			apperror.WithCause(err),
			apperror.WithContext("ping "+p.rdb.Options().Addr))
	}
	p.logger.Info(ctx, "redis publisher connected", "addr", p.rdb.Options().Addr, "prefix", p.prefix)
	return nil
}

// Publish writes r in a single transaction.
func (p *RedisPublisher) Publish(ctx context.Context, r *domain.Report) error {
	f18 := pricingDomain.FormatFixed18
	fields := map[string]interface{}{
		"order":               r.Order.ID,
		"round":               r.Round,
		"ts_ms":               r.Timestamp.UnixMilli(),
		"src":                 r.Order.SrcAsset.String() + "@" + r.Order.SrcNetwork.String(),
		"dst":                 r.Order.DstAsset.String() + "@" + r.Order.DstNetwork.String(),
		"verdict":             string(r.Verdict()),
		"profitable":          strconv.FormatBool(r.IsProfitable()),
		"publishable":         strconv.FormatBool(r.IsPublishable()),
		"price_a_in_b":        f18(r.Pricing.PriceAinB),
		"cost_in_asset":       f18(r.Cost.CostInAsset),
		"cost_in_eth":         r.Cost.CostInEth,
		"profit":              f18(r.Evaluation.Profit),
		"loss":                f18(r.Evaluation.Loss),
		"max_reward":          f18(r.Assessment.MaxReward),
		"proposed_max_reward": f18(r.Proposal.ProposedMaxReward),
	}

	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.LastKey(r.Order.ID), fields)

		if r.IsProfitable() {
			pipe.ZAdd(ctx, p.ProfitableKey(), redis.Z{
				Score:  pricingDomain.Fixed18ToFloat(r.Evaluation.Profit),
				Member: r.Order.ID,
			})
		} else {
			pipe.ZRem(ctx, p.ProfitableKey(), r.Order.ID)
		}

		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.EventsKey(),
			MaxLen: p.maxLen,
			Approx: p.maxLen > 0,
			Values: fields,
		})
		return nil
	})
	if err != nil {
		return apperror.New(apperror.CodeRedisPublishFailed,
			apperror.WithCause(err),
			apperror.WithContext("order "+r.Order.ID))
	}
	return nil
}

// Report publishes r and logs failures.
func (p *RedisPublisher) Report(ctx context.Context, r *domain.Report) {
	if err := p.Publish(ctx, r); err != nil {
		p.logger.Error(ctx, "failed to publish deal", "order", r.Order.ID, "error", err)
	}
}

// UpdatePrices replaces the price hash with the cache snapshot, so entries
// dropped by a cache clear disappear too.
func (p *RedisPublisher) UpdatePrices(snap pricecache.Snapshot) {
	values := make(map[string]interface{}, snap.Len())
	if snap.Multichain {
		for a, inner := range snap.Multi {
			for n, price := range inner {
				values[a.String()+":"+n.String()] = price
			}
		}
	} else {
		for a, price := range snap.Single {
			values[a.String()] = price
		}
	}
	p.replaceHash("prices", values)
}

// UpdateGas replaces the gas hash with the latest prices in gwei.
func (p *RedisPublisher) UpdateGas(prices map[asset.Network]*blockchainDomain.GasPrice) {
	values := make(map[string]interface{}, len(prices))
	for n, g := range prices {
		values[n.String()] = strconv.FormatFloat(g.Gwei, 'f', -1, 64)
	}
	p.replaceHash("gas", values)
}

// UpdateConnectionStatus records the connection state.
func (p *RedisPublisher) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	status := "down"
	if connected {
		status = fmt.Sprintf("up %s", latency)
	}
	p.hset("status", map[string]interface{}{name: status})
}

func (p *RedisPublisher) hset(name string, values map[string]interface{}) {
	if len(values) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.rdb.HSet(ctx, p.key(name), values).Err(); err != nil {
		p.logger.Warn(ctx, "redis update failed", "key", p.key(name), "error", err)
	}
}

func (p *RedisPublisher) replaceHash(name string, values map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := p.key(name)
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	if err != nil {
		p.logger.Warn(ctx, "redis update failed", "key", key, "error", err)
	}
}

// Stop closes the client.
func (p *RedisPublisher) Stop() error {
	return p.rdb.Close()
}
