package main

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/trade-sampler/internal/artifact"
	"github.com/rxtech-lab/trade-sampler/internal/config"
	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/orchestrator"
	"github.com/rxtech-lab/trade-sampler/internal/stream"
	"github.com/rxtech-lab/trade-sampler/internal/version"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// loadConfig builds the configuration from the optional config file and the flags set on cmd.
// Flags win over the file.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()

	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}

		cfg = loaded
	}

	if cmd.IsSet("times") {
		cfg.WindowSeconds = int(cmd.Int("times"))
	}

	if cmd.IsSet("client") {
		cfg.Clients = int(cmd.Int("client"))
	}

	if cmd.IsSet("data") {
		cfg.DataPath = cmd.String("data")
	}

	if cmd.IsSet("writer") {
		cfg.Writer = cmd.String("writer")
	}

	if cmd.IsSet("symbol") {
		cfg.Symbol = cmd.String("symbol")
	}

	if cmd.IsSet("endpoint") {
		cfg.Endpoint = cmd.String("endpoint")
	}

	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}

	if cmd.IsSet("fail-fast") {
		cfg.FailFast = cmd.Bool("fail-fast")
	}

	if err := cfg.Validate(version.GetVersion()); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

// cacheAction runs every client, persists their artifacts and prints the combined average.
func cacheAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
	}

	defer func() {
		_ = log.Sync()
	}()

	writer, err := artifact.NewWriter(artifact.Format(cfg.Writer), cfg.DataPath, log)
	if err != nil {
		return err
	}

	if err := writer.Initialize(); err != nil {
		return err
	}

	defer func() {
		if err := writer.Close(); err != nil {
			log.Warn("Failed to close artifact writer", zap.Error(err))
		}
	}()

	task := orchestrator.NewSamplingTask(cfg.StreamConfig(), stream.NewWebsocketDialer(cfg.HandshakeTimeout), writer, log)
	runner := orchestrator.NewOrchestrator(cfg.OrchestratorConfig(), task, log)

	bar := progressbar.NewOptions(cfg.Clients,
		progressbar.OptionSetDescription(fmt.Sprintf("Sampling %s", cfg.Symbol)),
		progressbar.OptionSetWriter(cmd.Root().ErrWriter),
		progressbar.OptionShowCount(),
	)
	runner.OnClientDone(func(orchestrator.ClientOutcome) {
		_ = bar.Add(1)
	})

	result, err := runner.Run(ctx)
	_ = bar.Finish()

	if err != nil {
		return err
	}

	if result.Succeeded == 0 {
		return errors.Newf(errors.ErrCodeNoContributions, "none of the %d clients observed a trade", cfg.Clients)
	}

	fmt.Fprintln(cmd.Root().Writer, renderSummary(cfg.Symbol, result))

	return nil
}
