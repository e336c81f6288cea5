package types

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
)

// OpSubscribe is the only operation the sampler sends.
const OpSubscribe = "subscribe"

// validate is shared by the message parsers; validator.Validate is safe for concurrent use.
var validate = validator.New()

// SubscriptionRequest is sent once per connection, right after the websocket handshake.
type SubscriptionRequest struct {
	Op   string   `json:"op" validate:"required"`
	Args []string `json:"args" validate:"required"`
}

// NewTradeSubscription builds the request for the trade topic of a symbol.
func NewTradeSubscription(symbol string) SubscriptionRequest {
	return SubscriptionRequest{
		Op:   OpSubscribe,
		Args: []string{TradeTopic(symbol)},
	}
}

// TradeTopic returns the topic name carrying trades for symbol, e.g. "trade.BTCUSD".
func TradeTopic(symbol string) string {
	return fmt.Sprintf("trade.%s", symbol)
}

// SubscriptionAck is the first message the server sends after a subscribe request.
type SubscriptionAck struct {
	Success *bool               `json:"success" validate:"required"`
	RetMsg  *string             `json:"ret_msg"`
	ConnID  string              `json:"conn_id" validate:"required"`
	Request SubscriptionRequest `json:"request"`
}

// IsSuccess reports whether the server accepted the subscription.
func (a SubscriptionAck) IsSuccess() bool {
	return a.Success != nil && *a.Success
}

// ParseSubscriptionAck decodes an acknowledgement. Payloads of any other shape are rejected.
func ParseSubscriptionAck(data []byte) (SubscriptionAck, error) {
	var ack SubscriptionAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return SubscriptionAck{}, errors.Wrap(errors.ErrCodeMessageParseFailed, "failed to decode subscription ack", err)
	}

	if err := validate.Struct(ack); err != nil {
		return SubscriptionAck{}, errors.Wrap(errors.ErrCodeMessageParseFailed, "message is not a subscription ack", err)
	}

	return ack, nil
}
