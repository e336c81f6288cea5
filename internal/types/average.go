package types

// ClientAverage is the count-weighted mean trade price one client observed during its window.
type ClientAverage struct {
	AveragePrice float64 `json:"average_price"`
	// EventCount is the number of events behind the average. It is not persisted.
	EventCount int `json:"-"`
}

// FinalAggregate is the artifact persisted once per client.
// Average always holds exactly one element.
//
//nolint:tagliatelle // field names are part of the persisted format
type FinalAggregate struct {
	Data    []TradeBatch    `json:"Data"`
	Average []ClientAverage `json:"Average"`
}

// NewFinalAggregate builds the artifact for one client.
func NewFinalAggregate(batches []TradeBatch, average ClientAverage) FinalAggregate {
	if batches == nil {
		batches = []TradeBatch{}
	}

	return FinalAggregate{
		Data:    batches,
		Average: []ClientAverage{average},
	}
}
