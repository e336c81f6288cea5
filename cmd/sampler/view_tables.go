package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/trade-sampler/internal/types"
)

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// NewClientTable creates the table listing one row per cached client.
func NewClientTable() table.Model {
	return newTable([]table.Column{
		{Title: "Client", Width: 8},
		{Title: "Batches", Width: 10},
		{Title: "Trades", Width: 10},
		{Title: "Average", Width: 18},
	})
}

// NewTradeTable creates the table listing the trades of one client.
func NewTradeTable() table.Model {
	return newTable([]table.Column{
		{Title: "Time", Width: 26},
		{Title: "Side", Width: 6},
		{Title: "Size", Width: 10},
		{Title: "Price", Width: 14},
		{Title: "Tick", Width: 14},
		{Title: "Block", Width: 6},
	})
}

// UpdateClientRows fills the client table.
func UpdateClientRows(t table.Model, artifacts []ClientArtifact) table.Model {
	rows := make([]table.Row, 0, len(artifacts))

	for _, a := range artifacts {
		trades := 0
		for _, batch := range a.Aggregate.Data {
			trades += len(batch.Data)
		}

		average := "-"
		if len(a.Aggregate.Average) > 0 {
			average = fmt.Sprintf("%.4f", a.Aggregate.Average[0].AveragePrice)
		}

		rows = append(rows, table.Row{
			fmt.Sprintf("%d", a.ClientID),
			fmt.Sprintf("%d", len(a.Aggregate.Data)),
			fmt.Sprintf("%d", trades),
			average,
		})
	}

	t.SetRows(rows)

	return t
}

// UpdateTradeRows fills the trade table with every event of the aggregate in arrival order.
func UpdateTradeRows(t table.Model, aggregate types.FinalAggregate) table.Model {
	rows := make([]table.Row, 0)

	for _, batch := range aggregate.Data {
		for _, event := range batch.Data {
			rows = append(rows, table.Row{
				event.Timestamp,
				event.Side,
				fmt.Sprintf("%g", event.Size),
				fmt.Sprintf("%.2f", event.Price),
				event.TickDirection,
				fmt.Sprintf("%t", bool(event.IsBlockTrade)),
			})
		}
	}

	t.SetRows(rows)
	t.GotoTop()

	return t
}
