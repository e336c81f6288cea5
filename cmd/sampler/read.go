package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/trade-sampler/internal/artifact"
	"github.com/rxtech-lab/trade-sampler/internal/config"
	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/urfave/cli/v3"
)

// readAction prints every non-empty JSON artifact and, when present, the parquet summary.
func readAction(_ context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	defer func() {
		_ = log.Sync()
	}()

	reader := artifact.NewReader(cmd.String("data"), log)

	artifacts, err := reader.ReadAll()
	if err != nil {
		return err
	}

	out := cmd.Root().Writer

	for _, a := range artifacts {
		fmt.Fprintln(out, TitleStyle.Render(fmt.Sprintf("client %d", a.ClientID)))
		fmt.Fprintln(out, a.Content)
	}

	summaries, err := reader.Summaries()
	if err != nil {
		return err
	}

	if len(summaries) > 0 {
		fmt.Fprintln(out, renderClientSummaries(summaries))
	}

	return nil
}

// viewAction opens the interactive artifact browser.
func viewAction(_ context.Context, cmd *cli.Command) error {
	// Logs would corrupt the alternate screen.
	reader := artifact.NewReader(cmd.String("data"), logger.NewNopLogger())
	model := NewViewModel(func() ([]ClientArtifact, error) {
		return LoadArtifacts(reader)
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running viewer: %w", err)
	}

	return nil
}

// schemaAction prints the JSON schema of the config file.
func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, schema)

	return nil
}
