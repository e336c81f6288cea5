package mocks

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/trade-sampler/internal/types"
)

// TradeGenerator generates realistic trade events for tests and the mock server.
type TradeGenerator struct {
	rng      *rand.Rand
	price    float64
	crossSeq int64
	now      time.Time
}

// GeneratorConfig configures how trades are generated.
type GeneratorConfig struct {
	// Symbol is the traded contract (e.g., "BTCUSD")
	Symbol string
	// StartTime is the trade time of the first event
	StartTime time.Time
	// Interval is the duration between two consecutive trades
	Interval time.Duration
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement per trade (0.001 = 0.1%)
	Volatility float64
	// MaxSize is the upper bound of a trade size in contracts
	MaxSize int
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "BTCUSD",
		StartTime:    time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:     10 * time.Millisecond,
		InitialPrice: 42000.0,
		Volatility:   0.0005, // 0.05% per trade
		MaxSize:      1000,
	}
}

// NewTradeGenerator creates a new TradeGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewTradeGenerator(seed int64, config GeneratorConfig) *TradeGenerator {
	return &TradeGenerator{
		rng:      rand.New(rand.NewSource(seed)),
		price:    config.InitialPrice,
		crossSeq: 1_000_000,
		now:      config.StartTime,
	}
}

// Next returns a batch of count trades following a geometric Brownian motion.
func (g *TradeGenerator) Next(config GeneratorConfig, count int) []types.TradeEvent {
	events := make([]types.TradeEvent, count)

	for i := 0; i < count; i++ {
		// Box-Muller transform for a normal step
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		next := g.price * (1 + config.Volatility*z)
		if next <= 0 {
			next = g.price * 0.99
		}

		side := "Buy"
		tick := "PlusTick"
		if next < g.price {
			side = "Sell"
			tick = "MinusTick"
		}

		maxSize := config.MaxSize
		if maxSize < 1 {
			maxSize = 1
		}

		g.price = roundToDecimals(next, 1)
		g.crossSeq++
		g.now = g.now.Add(config.Interval)

		events[i] = types.TradeEvent{
			TradeTimeMs:   g.now.UnixMilli(),
			Timestamp:     g.now.UTC().Format("2006-01-02T15:04:05.000Z"),
			Symbol:        config.Symbol,
			Side:          side,
			Size:          float64(1 + g.rng.Intn(maxSize)),
			Price:         g.price,
			TickDirection: tick,
			TradeID:       uuid.NewString(),
			CrossSeq:      g.crossSeq,
			IsBlockTrade:  false,
		}
	}

	return events
}

// NextBatch wraps Next into a trade batch for the symbol's topic.
func (g *TradeGenerator) NextBatch(config GeneratorConfig, count int) types.TradeBatch {
	return types.TradeBatch{
		Topic: types.TradeTopic(config.Symbol),
		Data:  g.Next(config, count),
	}
}

// BatchWithPrices builds a batch whose events carry exactly the given prices.
func BatchWithPrices(symbol string, prices ...float64) types.TradeBatch {
	events := make([]types.TradeEvent, len(prices))
	for i, price := range prices {
		events[i] = types.TradeEvent{
			TradeTimeMs:   int64(1704101400000 + i),
			Timestamp:     "2024-01-01T09:30:00.000Z",
			Symbol:        symbol,
			Side:          "Buy",
			Size:          1,
			Price:         price,
			TickDirection: "ZeroPlusTick",
			TradeID:       fmt.Sprintf("trade-%d", i),
			CrossSeq:      int64(i),
			IsBlockTrade:  false,
		}
	}

	return types.TradeBatch{
		Topic: types.TradeTopic(symbol),
		Data:  events,
	}
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
