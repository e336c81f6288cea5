package stream

import (
	"errors"

	"github.com/rxtech-lab/trade-sampler/internal/types"
	"github.com/shopspring/decimal"
)

// ErrEmptyWindow is returned when a window elapsed without a single trade event.
// It means "no contribution", not a failure.
var ErrEmptyWindow = errors.New("no trade events observed during the window")

// accumulator keeps the running price total and event count for one client.
// Prices are summed as decimals so the mean does not depend on summation order.
type accumulator struct {
	total decimal.Decimal
	count int
}

func newAccumulator() *accumulator {
	return &accumulator{
		total: decimal.Zero,
		count: 0,
	}
}

// add folds every event of the batch into the running totals.
func (a *accumulator) add(batch types.TradeBatch) {
	for _, event := range batch.Data {
		a.total = a.total.Add(decimal.NewFromFloat(event.Price))
	}

	a.count += len(batch.Data)
}

// average returns total / count, or ErrEmptyWindow when nothing was counted.
func (a *accumulator) average() (types.ClientAverage, error) {
	if a.count == 0 {
		return types.ClientAverage{}, ErrEmptyWindow
	}

	mean := a.total.Div(decimal.NewFromInt(int64(a.count)))

	return types.ClientAverage{
		AveragePrice: mean.InexactFloat64(),
		EventCount:   a.count,
	}, nil
}
