package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/trade-sampler/internal/artifact"
	"github.com/rxtech-lab/trade-sampler/internal/orchestrator"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// LabelStyle for summary labels.
	LabelStyle = lipgloss.NewStyle().Faint(true).Width(18)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	// BoxStyle frames the run summary.
	BoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

// renderSummary renders the outcome of a cache run.
func renderSummary(symbol string, result orchestrator.Result) string {
	lines := []string{
		TitleStyle.Render(fmt.Sprintf("The average USD price of %s is: %.4f", symbol, result.Average)),
		row("Run", result.RunID),
		row("Clients", fmt.Sprintf("%d succeeded, %d excluded", result.Succeeded, result.Excluded)),
	}

	if weighted, err := result.WeightedAverage.Take(); err == nil {
		lines = append(lines, row("Event weighted", fmt.Sprintf("%.4f", weighted)))
	}

	for _, outcome := range result.Outcomes {
		lines = append(lines, row(fmt.Sprintf("Client %d", outcome.ClientID), outcomeText(outcome)))
	}

	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func outcomeText(outcome orchestrator.ClientOutcome) string {
	switch outcome.Status {
	case orchestrator.OutcomeContributed:
		return fmt.Sprintf("%.4f over %d trades", outcome.Result.Average.AveragePrice, outcome.Result.Average.EventCount)
	case orchestrator.OutcomeEmpty:
		return "no trades"
	default:
		return ErrorStyle.Render(string(outcome.Status)) + " " + outcome.Err.Error()
	}
}

// renderClientSummaries renders the rows of averages.parquet.
func renderClientSummaries(summaries []artifact.ClientSummary) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Averages"))

	for _, summary := range summaries {
		b.WriteString("\n")
		b.WriteString(row(
			fmt.Sprintf("Client %d", summary.ClientID),
			fmt.Sprintf("%.4f over %d trades", summary.AveragePrice, summary.EventCount),
		))
	}

	return b.String()
}
