package types

import (
	"encoding/json"
	"testing"

	"github.com/rxtech-lab/trade-sampler/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SubscriptionTestSuite struct {
	suite.Suite
}

func TestSubscriptionSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionTestSuite))
}

func (suite *SubscriptionTestSuite) TestNewTradeSubscriptionWireFormat() {
	request := NewTradeSubscription("BTCUSD")

	data, err := json.Marshal(request)
	suite.Require().NoError(err)
	suite.JSONEq(`{"op":"subscribe","args":["trade.BTCUSD"]}`, string(data))
}

func (suite *SubscriptionTestSuite) TestParseSubscriptionAck() {
	payload := `{"success":true,"ret_msg":"","conn_id":"0c2a4f0e","request":{"op":"subscribe","args":["trade.BTCUSD"]}}`

	ack, err := ParseSubscriptionAck([]byte(payload))
	suite.Require().NoError(err)
	suite.True(ack.IsSuccess())
	suite.Equal("0c2a4f0e", ack.ConnID)
	suite.Require().NotNil(ack.RetMsg)
	suite.Equal("", *ack.RetMsg)
	suite.Equal(NewTradeSubscription("BTCUSD"), ack.Request)
}

func (suite *SubscriptionTestSuite) TestParseSubscriptionAckNullRetMsg() {
	payload := `{"success":false,"ret_msg":null,"conn_id":"x","request":{"op":"subscribe","args":["trade.X"]}}`

	ack, err := ParseSubscriptionAck([]byte(payload))
	suite.Require().NoError(err)
	suite.False(ack.IsSuccess())
	suite.Nil(ack.RetMsg)
}

func (suite *SubscriptionTestSuite) TestParseSubscriptionAckRejectsTradeBatch() {
	_, err := ParseSubscriptionAck([]byte(tradeMessage))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMessageParseFailed))
}

func (suite *SubscriptionTestSuite) TestParseSubscriptionAckRejectsMissingFields() {
	payloads := []string{
		`{"conn_id":"x","request":{"op":"subscribe","args":[]}}`,
		`{"success":true,"request":{"op":"subscribe","args":[]}}`,
		`{"success":true,"conn_id":"x"}`,
		`garbage`,
	}

	for _, payload := range payloads {
		_, err := ParseSubscriptionAck([]byte(payload))
		suite.Error(err, "payload %q", payload)
	}
}
