package stream

import (
	"testing"

	"github.com/rxtech-lab/trade-sampler/mocks"
	"github.com/stretchr/testify/suite"
)

type AccumulatorTestSuite struct {
	suite.Suite
}

func TestAccumulatorSuite(t *testing.T) {
	suite.Run(t, new(AccumulatorTestSuite))
}

func (suite *AccumulatorTestSuite) TestEmpty() {
	acc := newAccumulator()

	_, err := acc.average()
	suite.ErrorIs(err, ErrEmptyWindow)
}

func (suite *AccumulatorTestSuite) TestEmptyBatchesDoNotCount() {
	acc := newAccumulator()
	acc.add(mocks.BatchWithPrices("BTCUSD"))
	acc.add(mocks.BatchWithPrices("BTCUSD"))

	suite.Equal(0, acc.count)

	_, err := acc.average()
	suite.ErrorIs(err, ErrEmptyWindow)
}

func (suite *AccumulatorTestSuite) TestAverage() {
	tests := []struct {
		name    string
		batches [][]float64
		want    float64
		count   int
	}{
		{
			name:    "single event",
			batches: [][]float64{{42000.5}},
			want:    42000.5,
			count:   1,
		},
		{
			name:    "events are weighted equally across batches",
			batches: [][]float64{{100, 200}, {300}},
			want:    200,
			count:   3,
		},
		{
			name:    "one event per batch",
			batches: [][]float64{{10}, {20}, {30}},
			want:    20,
			count:   3,
		},
		{
			name:    "decimal prices sum exactly",
			batches: [][]float64{{0.1, 0.2}, {0.3}},
			want:    0.2,
			count:   3,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			acc := newAccumulator()
			for _, prices := range tt.batches {
				acc.add(mocks.BatchWithPrices("BTCUSD", prices...))
			}

			average, err := acc.average()
			suite.Require().NoError(err)
			suite.Equal(tt.want, average.AveragePrice)
			suite.Equal(tt.count, average.EventCount)
		})
	}
}

func (suite *AccumulatorTestSuite) TestOrderIndependent() {
	forward := newAccumulator()
	backward := newAccumulator()
	prices := []float64{42001.1, 41999.9, 42000.3, 0.7, 99999.99}

	for i := range prices {
		forward.add(mocks.BatchWithPrices("BTCUSD", prices[i]))
		backward.add(mocks.BatchWithPrices("BTCUSD", prices[len(prices)-1-i]))
	}

	a, err := forward.average()
	suite.Require().NoError(err)

	b, err := backward.average()
	suite.Require().NoError(err)

	suite.Equal(a.AveragePrice, b.AveragePrice)
}
