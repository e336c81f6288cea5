// Package orchestrator runs several sampling clients with staggered starts and combines their averages.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trade-sampler/internal/aggregator"
	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/stream"
	pkgerrors "github.com/rxtech-lab/trade-sampler/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultBaseDelay is the start offset of client 0.
	DefaultBaseDelay = time.Second
	// DefaultStaggerStep is added to the start offset of every following client.
	DefaultStaggerStep = time.Second
)

// Config configures one orchestrated run.
type Config struct {
	// Clients is the number of clients to launch.
	Clients int
	// BaseDelay is the offset before client 0 starts.
	BaseDelay time.Duration
	// StaggerStep is the extra offset of each following client.
	StaggerStep time.Duration
	// FailFast resolves the join as soon as any client fails.
	// Panics always resolve the join.
	FailFast bool
}

// Task samples one client. A nil error means the result carries a valid average.
// stream.ErrEmptyWindow means the client observed nothing and contributes nothing.
type Task func(ctx context.Context, clientID int) (stream.Result, error)

// OutcomeStatus classifies how a client finished.
type OutcomeStatus string

const (
	OutcomeContributed OutcomeStatus = "contributed"
	OutcomeEmpty       OutcomeStatus = "empty"
	OutcomeFailed      OutcomeStatus = "failed"
	OutcomePanicked    OutcomeStatus = "panicked"
)

// ClientOutcome is what one client reported back.
type ClientOutcome struct {
	ClientID int
	Status   OutcomeStatus
	Result   stream.Result
	// Err is nil only for contributing clients.
	Err error
	// Offset is the delay the client waited before starting.
	Offset time.Duration
}

// Result is the outcome of a run, read after the join resolved.
type Result struct {
	RunID string
	// Succeeded is the number of clients whose average was recorded.
	Succeeded int
	// Excluded is the number of reported clients that contributed nothing.
	Excluded int
	// Combined is the mean of the client averages, None when no client contributed.
	Combined optional.Option[float64]
	// Average is the mean of the client averages, 0.0 when no client contributed.
	Average float64
	// WeightedAverage weights each client average by its event count.
	WeightedAverage optional.Option[float64]
	// Outcomes holds every reported client ordered by client id. When the join resolved early,
	// clients still running are missing, and the averages above cover only the reported clients.
	Outcomes []ClientOutcome
}

// Orchestrator launches the clients of one run and joins them.
type Orchestrator struct {
	config       Config
	task         Task
	logger       *logger.Logger
	onClientDone func(ClientOutcome)
}

// NewOrchestrator creates an orchestrator that runs task once per client.
func NewOrchestrator(config Config, task Task, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		config:       config,
		task:         task,
		logger:       log.Named("orchestrator"),
		onClientDone: nil,
	}
}

// OnClientDone registers a callback invoked from Run for every client that reports.
func (o *Orchestrator) OnClientDone(callback func(ClientOutcome)) {
	o.onClientDone = callback
}

// StartOffset returns how long client i waits before it starts.
func StartOffset(config Config, i int) time.Duration {
	return config.BaseDelay + time.Duration(i)*config.StaggerStep
}

// Run launches every client and waits until the join resolves.
//
// The join resolves once every client reported, or as soon as a client panics, or as soon as a
// client fails when FailFast is set. Clients are never cancelled by the orchestrator; when the join
// resolves early the others keep running until ctx is done. The returned error is a
// *errors.ClientError naming the client that resolved the join early.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	if o.config.Clients < 1 {
		return Result{}, pkgerrors.Newf(pkgerrors.ErrCodeInvalidParameter, "clients must be at least 1, got %d", o.config.Clients)
	}

	if o.config.BaseDelay < 0 || o.config.StaggerStep < 0 {
		return Result{}, pkgerrors.New(pkgerrors.ErrCodeInvalidParameter, "start offsets must not be negative")
	}

	runID := uuid.NewString()
	log := o.logger.With(zap.String("run_id", runID))
	log.Info("Starting clients",
		zap.Int("clients", o.config.Clients),
		zap.Duration("base_delay", o.config.BaseDelay),
		zap.Duration("stagger_step", o.config.StaggerStep),
		zap.Bool("fail_fast", o.config.FailFast),
	)

	// Buffered so clients finishing after an early join never block.
	outcomes := make(chan ClientOutcome, o.config.Clients)

	for i := 0; i < o.config.Clients; i++ {
		go o.runClient(ctx, i, outcomes)
	}

	// Each run owns its aggregator and only records outcomes the join has read.
	averages := aggregator.NewAggregator()
	reported := make([]ClientOutcome, 0, o.config.Clients)

	var fatal error

	for len(reported) < o.config.Clients && fatal == nil {
		outcome := <-outcomes
		reported = append(reported, outcome)
		o.logOutcome(log, outcome)

		if outcome.Status == OutcomeContributed {
			averages.AddAverage(outcome.Result.Average.AveragePrice)
		}

		if o.onClientDone != nil {
			o.onClientDone(outcome)
		}

		if o.isFatal(outcome) {
			fatal = pkgerrors.NewClientError(outcome.ClientID, outcome.Err)
		}
	}

	result := o.buildResult(runID, reported, averages)

	if fatal != nil {
		log.Error("Run stopped early", zap.Error(fatal), zap.Int("reported", len(reported)))

		return result, fatal
	}

	log.Info("All clients finished",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("excluded", result.Excluded),
		zap.Float64("average", result.Average),
	)

	return result, nil
}

// runClient waits for the client's start offset, runs the task and reports exactly one outcome.
//
//nolint:funcorder // helper used by Run
func (o *Orchestrator) runClient(ctx context.Context, clientID int, outcomes chan<- ClientOutcome) {
	offset := StartOffset(o.config, clientID)
	outcome := ClientOutcome{
		ClientID: clientID,
		Status:   OutcomeFailed,
		Result:   stream.Result{ClientID: clientID},
		Err:      nil,
		Offset:   offset,
	}

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = OutcomePanicked
			outcome.Err = pkgerrors.Newf(pkgerrors.ErrCodeTaskPanic, "client %d panicked: %v", clientID, r)
		}

		outcomes <- outcome
	}()

	timer := time.NewTimer(offset)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		outcome.Err = ctx.Err()

		return
	}

	result, err := o.task(ctx, clientID)
	outcome.Result = result
	outcome.Err = err

	switch {
	case err == nil:
		outcome.Status = OutcomeContributed
	case errors.Is(err, stream.ErrEmptyWindow):
		outcome.Status = OutcomeEmpty
	default:
		outcome.Status = OutcomeFailed
	}
}

//nolint:funcorder // helper used by Run
func (o *Orchestrator) isFatal(outcome ClientOutcome) bool {
	switch outcome.Status {
	case OutcomePanicked:
		return true
	case OutcomeFailed:
		return o.config.FailFast
	default:
		return false
	}
}

//nolint:funcorder // helper used by Run
func (o *Orchestrator) logOutcome(log *logger.Logger, outcome ClientOutcome) {
	fields := []zap.Field{
		zap.Int("client_id", outcome.ClientID),
		zap.String("status", string(outcome.Status)),
		zap.Duration("offset", outcome.Offset),
	}

	switch outcome.Status {
	case OutcomeContributed:
		log.Info("Client finished", append(fields, zap.Float64("average_price", outcome.Result.Average.AveragePrice))...)
	case OutcomeEmpty:
		log.Warn("Client observed no trades", fields...)
	default:
		log.Error("Client failed", append(fields, zap.Error(outcome.Err))...)
	}
}

//nolint:funcorder // helper used by Run
func (o *Orchestrator) buildResult(runID string, reported []ClientOutcome, averages *aggregator.Aggregator) Result {
	sort.Slice(reported, func(i, j int) bool {
		return reported[i].ClientID < reported[j].ClientID
	})

	succeeded := 0
	weightedSum := 0.0
	events := 0

	for _, outcome := range reported {
		if outcome.Status != OutcomeContributed {
			continue
		}

		succeeded++
		weightedSum += outcome.Result.Average.AveragePrice * float64(outcome.Result.Average.EventCount)
		events += outcome.Result.Average.EventCount
	}

	weighted := optional.None[float64]()
	if events > 0 {
		weighted = optional.Some(weightedSum / float64(events))
	}

	return Result{
		RunID:           runID,
		Succeeded:       succeeded,
		Excluded:        len(reported) - succeeded,
		Combined:        averages.Mean(),
		Average:         averages.FinalAverage(),
		WeightedAverage: weighted,
		Outcomes:        reported,
	}
}

// String renders the outcome for log and CLI output.
func (c ClientOutcome) String() string {
	if c.Err != nil {
		return fmt.Sprintf("client %d %s: %v", c.ClientID, c.Status, c.Err)
	}

	return fmt.Sprintf("client %d %s: %.2f", c.ClientID, c.Status, c.Result.Average.AveragePrice)
}
