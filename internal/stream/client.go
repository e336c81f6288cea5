package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/types"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultIdleTimeout bounds a single wait for the next message.
	DefaultIdleTimeout = time.Second
	closeWait          = time.Second
)

// Config configures one sampling client.
type Config struct {
	// Endpoint is the websocket URL, e.g. wss://stream.bybit.com/realtime.
	Endpoint string
	// Symbol selects the trade topic, e.g. BTCUSD.
	Symbol string
	// Window is how long the client collects trades, measured from the start of Run.
	Window time.Duration
	// IdleTimeout bounds each wait for a message so the window deadline is
	// re-checked while the stream is quiet. Zero means DefaultIdleTimeout.
	IdleTimeout time.Duration
}

// Result is everything one client collected during its window.
type Result struct {
	ClientID int
	// Batches are the parsed trade batches in arrival order.
	Batches []types.TradeBatch
	// Average is only meaningful when Run returned a nil error.
	Average types.ClientAverage
	// Discarded counts inbound messages that were not trade batches.
	Discarded int
	// Acknowledged reports whether the first message was a successful subscription ack.
	Acknowledged bool
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Client owns one streaming connection and samples trades from it.
type Client struct {
	id     int
	config Config
	dial   DialFunc
	conn   Conn
	logger *logger.Logger
}

// inbound is a message, or the error that ended the read loop.
type inbound struct {
	data []byte
	err  error
}

// NewClient creates a client. The connection is opened by Connect.
func NewClient(id int, config Config, dial DialFunc, log *logger.Logger) *Client {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}

	return &Client{
		id:     id,
		config: config,
		dial:   dial,
		conn:   nil,
		logger: log.Named("stream").With(zap.Int("client_id", id)),
	}
}

// ID returns the client identifier.
func (c *Client) ID() int {
	return c.id
}

// Connect opens the websocket connection. Failures are not retried.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Debug("Connecting", zap.String("endpoint", c.config.Endpoint))

	conn, err := c.dial(ctx, c.config.Endpoint)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeConnectionFailed, err, "failed to connect to %s", c.config.Endpoint)
	}

	c.conn = conn
	c.logger.Info("Connected", zap.String("endpoint", c.config.Endpoint))

	return nil
}

// Subscribe sends the single subscription request for the configured symbol.
func (c *Client) Subscribe() error {
	if c.conn == nil {
		return errors.New(errors.ErrCodeNotConnected, "subscribe called before connect")
	}

	request := types.NewTradeSubscription(c.config.Symbol)

	payload, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSubscribeFailed, "failed to encode subscription request", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrapf(errors.ErrCodeSubscribeFailed, err, "failed to subscribe to %s", request.Args[0])
	}

	c.logger.Info("Subscribed", zap.Strings("topics", request.Args))

	return nil
}

// Run collects trade batches until window has elapsed since Run started.
//
// The first message is read as a subscription ack; a bad ack is only logged.
// Every later message is parsed as a trade batch and malformed ones are dropped.
// No single wait outlasts the idle timeout, so a silent stream cannot hold the
// client past its deadline. If the server closes the connection the loop ends
// early with what was collected.
//
// Run returns ErrEmptyWindow when no event was observed, and ctx.Err() if the
// context is cancelled. In both cases the returned Result still holds the batches.
func (c *Client) Run(ctx context.Context, window time.Duration) (Result, error) {
	if c.conn == nil {
		return Result{ClientID: c.id}, errors.New(errors.ErrCodeNotConnected, "run called before connect")
	}

	start := time.Now()
	deadline := start.Add(window)
	result := Result{
		ClientID:     c.id,
		Batches:      make([]types.TradeBatch, 0),
		Average:      types.ClientAverage{},
		Discarded:    0,
		Acknowledged: false,
		StartedAt:    start,
		FinishedAt:   time.Time{},
	}
	acc := newAccumulator()

	done := make(chan struct{})
	defer close(done)

	messages := c.readPump(done)
	awaitingAck := true

	for time.Since(start) < window {
		msg, ok := c.next(ctx, messages, deadline)
		if !ok {
			continue
		}

		if msg.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.FinishedAt = time.Now()

				return result, ctxErr
			}

			c.logger.Warn("Stream closed before the window elapsed", zap.Error(msg.err))

			break
		}

		if awaitingAck {
			awaitingAck = false
			result.Acknowledged = c.handleAck(msg.data)

			continue
		}

		batch, err := types.ParseTradeBatch(msg.data)
		if err != nil {
			result.Discarded++
			c.logger.Error("Failed to parse the message", zap.Error(err), zap.ByteString("message", msg.data))

			continue
		}

		result.Batches = append(result.Batches, batch)
		acc.add(batch)
		c.logger.Debug("Trade batch received",
			zap.Int("events", len(batch.Data)),
			zap.Float64("price_sum", batch.PriceSum()),
		)
	}

	result.FinishedAt = time.Now()

	average, err := acc.average()
	if err != nil {
		c.logger.Warn("Window elapsed without trades",
			zap.Duration("window", window),
			zap.Int("batches", len(result.Batches)),
			zap.Int("discarded", result.Discarded),
		)

		return result, err
	}

	result.Average = average
	c.logger.Info("Window complete",
		zap.Float64("average_price", average.AveragePrice),
		zap.Int("events", average.EventCount),
		zap.Int("batches", len(result.Batches)),
		zap.Int("discarded", result.Discarded),
	)

	return result, nil
}

// Sample connects, subscribes, runs one window and closes the connection.
func (c *Client) Sample(ctx context.Context) (Result, error) {
	if err := c.Connect(ctx); err != nil {
		return Result{ClientID: c.id}, err
	}

	defer func() {
		if err := c.Close(); err != nil {
			c.logger.Debug("Failed to close connection", zap.Error(err))
		}
	}()

	if err := c.Subscribe(); err != nil {
		return Result{ClientID: c.id}, err
	}

	return c.Run(ctx, c.config.Window)
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	conn := c.conn
	c.conn = nil

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait)); err != nil {
		c.logger.Debug("Failed to send close frame", zap.Error(err))
	}

	if err := conn.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeConnectionFailed, "failed to close connection", err)
	}

	return nil
}

// handleAck logs the outcome of the subscription ack and reports whether it succeeded.
//
//nolint:funcorder // helper used by Run
func (c *Client) handleAck(data []byte) bool {
	ack, err := types.ParseSubscriptionAck(data)
	if err != nil {
		c.logger.Error("Failed to parse the initial success response", zap.Error(err), zap.ByteString("message", data))

		return false
	}

	if !ack.IsSuccess() {
		retMsg := ""
		if ack.RetMsg != nil {
			retMsg = *ack.RetMsg
		}

		c.logger.Warn("Subscription was not acknowledged", zap.String("conn_id", ack.ConnID), zap.String("ret_msg", retMsg))

		return false
	}

	c.logger.Info("Successfully received the subscription ack", zap.String("conn_id", ack.ConnID))

	return true
}

// readPump reads messages on its own goroutine until the connection fails or done is closed.
//
//nolint:funcorder // helper used by Run
func (c *Client) readPump(done <-chan struct{}) <-chan inbound {
	messages := make(chan inbound)
	conn := c.conn

	go func() {
		for {
			_, data, err := conn.ReadMessage()

			select {
			case messages <- inbound{data: data, err: err}:
			case <-done:
				return
			}

			if err != nil {
				return
			}
		}
	}()

	return messages
}

// next waits for one message, at most until the idle timeout or the deadline, whichever
// comes first. ok is false when the wait timed out.
//
//nolint:funcorder // helper used by Run
func (c *Client) next(ctx context.Context, messages <-chan inbound, deadline time.Time) (msg inbound, ok bool) {
	wait := min(c.config.IdleTimeout, time.Until(deadline))
	if wait <= 0 {
		return inbound{}, false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case msg := <-messages:
		return msg, true
	case <-timer.C:
		return inbound{}, false
	case <-ctx.Done():
		return inbound{data: nil, err: ctx.Err()}, true
	}
}
