package orchestrator

import (
	"context"

	"github.com/rxtech-lab/trade-sampler/internal/artifact"
	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/stream"
	"github.com/rxtech-lab/trade-sampler/internal/types"
	"go.uber.org/zap"
)

// NewSamplingTask returns the Task that samples one window from the stream and persists the
// client's artifact. Empty windows are not persisted.
func NewSamplingTask(config stream.Config, dial stream.DialFunc, writer artifact.Writer, log *logger.Logger) Task {
	return func(ctx context.Context, clientID int) (stream.Result, error) {
		client := stream.NewClient(clientID, config, dial, log)

		result, err := client.Sample(ctx)
		if err != nil {
			return result, err
		}

		path, err := writer.Write(clientID, types.NewFinalAggregate(result.Batches, result.Average))
		if err != nil {
			return result, err
		}

		log.Info("Cached Complete",
			zap.Int("client_id", clientID),
			zap.Float64("average_price", result.Average.AveragePrice),
			zap.String("path", path),
		)

		return result, nil
	}
}
