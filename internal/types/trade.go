package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/rxtech-lab/trade-sampler/pkg/errors"
)

// TradeEvent is one observed trade. It is never modified after decoding.
type TradeEvent struct {
	TradeTimeMs   int64          `json:"trade_time_ms"`
	Timestamp     string         `json:"timestamp"`
	Symbol        string         `json:"symbol"`
	Side          string         `json:"side"`
	Size          float64        `json:"size"`
	Price         float64        `json:"price"`
	TickDirection string         `json:"tick_direction"`
	TradeID       string         `json:"trade_id"`
	CrossSeq      int64          `json:"cross_seq"`
	IsBlockTrade  BlockTradeFlag `json:"is_block_trade"`
}

// tradeEventFields is the decoded form of a TradeEvent. Fields a trade cannot lack are checked
// for presence, so an incomplete event never turns into a zero-priced trade.
type tradeEventFields struct {
	TradeTimeMs   int64          `json:"trade_time_ms"`
	Timestamp     string         `json:"timestamp"`
	Symbol        string         `json:"symbol" validate:"required"`
	Side          string         `json:"side"`
	Size          float64        `json:"size"`
	Price         *float64       `json:"price" validate:"required"`
	TickDirection string         `json:"tick_direction"`
	TradeID       string         `json:"trade_id" validate:"required"`
	CrossSeq      int64          `json:"cross_seq"`
	IsBlockTrade  BlockTradeFlag `json:"is_block_trade"`
}

// UnmarshalJSON implements json.Unmarshaler. It rejects events without a price, symbol or trade id.
func (e *TradeEvent) UnmarshalJSON(data []byte) error {
	var fields tradeEventFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if err := validate.Struct(fields); err != nil {
		return fmt.Errorf("incomplete trade event: %w", err)
	}

	*e = TradeEvent{
		TradeTimeMs:   fields.TradeTimeMs,
		Timestamp:     fields.Timestamp,
		Symbol:        fields.Symbol,
		Side:          fields.Side,
		Size:          fields.Size,
		Price:         *fields.Price,
		TickDirection: fields.TickDirection,
		TradeID:       fields.TradeID,
		CrossSeq:      fields.CrossSeq,
		IsBlockTrade:  fields.IsBlockTrade,
	}

	return nil
}

// BlockTradeFlag accepts both JSON booleans and the quoted "true"/"false" form.
type BlockTradeFlag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *BlockTradeFlag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = BlockTradeFlag(b)

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("is_block_trade must be a bool or a string: %w", err)
	}

	parsed, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid is_block_trade value %q: %w", s, err)
	}

	*f = BlockTradeFlag(parsed)

	return nil
}

// TradeBatch is one inbound trade message. A single message may carry several events.
type TradeBatch struct {
	Topic string       `json:"topic" validate:"required"`
	Data  []TradeEvent `json:"data" validate:"required"`
}

// PriceSum returns the sum of the event prices in arrival order.
func (b TradeBatch) PriceSum() float64 {
	sum := 0.0
	for _, event := range b.Data {
		sum += event.Price
	}

	return sum
}

// ParseTradeBatch decodes a trade message. Acks, heartbeats and malformed payloads are rejected,
// as is any event without a price, symbol or trade id, or whose price is not a finite number.
func ParseTradeBatch(data []byte) (TradeBatch, error) {
	var batch TradeBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return TradeBatch{}, errors.Wrap(errors.ErrCodeMessageParseFailed, "failed to decode trade batch", err)
	}

	if err := validate.Struct(batch); err != nil {
		return TradeBatch{}, errors.Wrap(errors.ErrCodeMessageParseFailed, "message is not a trade batch", err)
	}

	for i, event := range batch.Data {
		if math.IsNaN(event.Price) || math.IsInf(event.Price, 0) {
			return TradeBatch{}, errors.Newf(errors.ErrCodeMessageParseFailed, "event %d has a non-finite price", i)
		}
	}

	return batch, nil
}
