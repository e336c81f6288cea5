package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/rxtech-lab/trade-sampler/internal/artifact"
	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/types"
	"github.com/rxtech-lab/trade-sampler/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleArtifacts() []ClientArtifact {
	return []ClientArtifact{
		{
			ClientID: 0,
			Aggregate: types.NewFinalAggregate(
				[]types.TradeBatch{mocks.BatchWithPrices("BTCUSD", 100, 200), mocks.BatchWithPrices("BTCUSD", 300)},
				types.ClientAverage{AveragePrice: 200, EventCount: 3},
			),
		},
		{
			ClientID: 1,
			Aggregate: types.NewFinalAggregate(
				[]types.TradeBatch{mocks.BatchWithPrices("BTCUSD", 41999.5)},
				types.ClientAverage{AveragePrice: 41999.5, EventCount: 1},
			),
		},
	}
}

func TestNewViewModel(t *testing.T) {
	m := NewViewModel(nil)

	assert.Equal(t, StateClientList, m.state)
	assert.Equal(t, -1, m.selected)
	assert.Empty(t, m.artifacts)
}

func TestUpdateClientRows(t *testing.T) {
	rows := UpdateClientRows(NewClientTable(), sampleArtifacts()).Rows()

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0", "2", "3", "200.0000"}, []string(rows[0]))
	assert.Equal(t, "41999.5000", rows[1][3])
}

func TestUpdateTradeRows(t *testing.T) {
	rows := UpdateTradeRows(NewTradeTable(), sampleArtifacts()[0].Aggregate).Rows()

	require.Len(t, rows, 3)
	assert.Equal(t, "100.00", rows[0][3])
	assert.Equal(t, "300.00", rows[2][3])
	assert.Equal(t, "false", rows[2][5])
}

func TestLoadArtifacts(t *testing.T) {
	dataPath := t.TempDir()
	writer := artifact.NewJSONWriter(dataPath, logger.NewNopLogger())

	for _, a := range sampleArtifacts() {
		_, err := writer.Write(a.ClientID, a.Aggregate)
		require.NoError(t, err)
	}

	loaded, err := LoadArtifacts(artifact.NewReader(dataPath, logger.NewNopLogger()))
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 1, loaded[1].ClientID)
	assert.Len(t, loaded[0].Aggregate.Data, 2)
}

func TestBrowseTrades(t *testing.T) {
	m := NewViewModel(func() ([]ClientArtifact, error) {
		return sampleArtifacts(), nil
	})
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("Cached clients (2)"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("Client 0 trades"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	final, ok := tm.FinalModel(t, teatest.WithFinalTimeout(2*time.Second)).(ViewModel)
	require.True(t, ok)
	assert.Equal(t, StateClientList, final.state)
	assert.Equal(t, 0, final.selected)
}

func TestLoadError(t *testing.T) {
	m := NewViewModel(func() ([]ClientArtifact, error) {
		return nil, errors.New("permission denied")
	})
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("permission denied"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}
