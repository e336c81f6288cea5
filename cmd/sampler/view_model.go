package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/trade-sampler/internal/artifact"
	"github.com/rxtech-lab/trade-sampler/internal/types"
)

// View states.
const (
	StateClientList = iota
	StateTradeList
)

// ClientArtifact is one loaded client artifact shown by the viewer.
type ClientArtifact struct {
	ClientID  int
	Aggregate types.FinalAggregate
}

// ArtifactsLoadedMsg carries the artifacts read from the data directory.
type ArtifactsLoadedMsg struct {
	Artifacts []ClientArtifact
}

// LoadErrorMsg indicates the artifacts could not be read.
type LoadErrorMsg struct {
	Err error
}

// ViewModel is the Bubble Tea model browsing cached artifacts.
type ViewModel struct {
	state       int
	loader      func() ([]ClientArtifact, error)
	artifacts   []ClientArtifact
	clientTable table.Model
	tradeTable  table.Model
	selected    int
	err         error
	width       int
	height      int
}

// NewViewModel creates a viewer that loads its artifacts with loader.
func NewViewModel(loader func() ([]ClientArtifact, error)) ViewModel {
	return ViewModel{
		state:       StateClientList,
		loader:      loader,
		artifacts:   nil,
		clientTable: NewClientTable(),
		tradeTable:  NewTradeTable(),
		selected:    -1,
		err:         nil,
		width:       0,
		height:      0,
	}
}

// LoadArtifacts reads every non-empty JSON artifact of the reader's data directory.
func LoadArtifacts(reader *artifact.Reader) ([]ClientArtifact, error) {
	found, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	loaded := make([]ClientArtifact, 0, len(found))

	for _, a := range found {
		aggregate, err := reader.Load(a.ClientID)
		if err != nil {
			return nil, err
		}

		loaded = append(loaded, ClientArtifact{ClientID: a.ClientID, Aggregate: aggregate})
	}

	return loaded, nil
}

// Init implements tea.Model.
func (m ViewModel) Init() tea.Cmd {
	loader := m.loader

	return func() tea.Msg {
		artifacts, err := loader()
		if err != nil {
			return LoadErrorMsg{Err: err}
		}

		return ArtifactsLoadedMsg{Artifacts: artifacts}
	}
}

// Update implements tea.Model.
func (m ViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			m.state = StateClientList

			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clientTable.SetWidth(msg.Width)
		m.clientTable.SetHeight(msg.Height - 6)
		m.tradeTable.SetWidth(msg.Width)
		m.tradeTable.SetHeight(msg.Height - 6)

		return m, nil

	case ArtifactsLoadedMsg:
		m.artifacts = msg.Artifacts
		m.clientTable = UpdateClientRows(m.clientTable, m.artifacts)

		return m, nil

	case LoadErrorMsg:
		m.err = msg.Err

		return m, nil
	}

	switch m.state {
	case StateClientList:
		return m.updateClientList(msg)
	case StateTradeList:
		return m.updateTradeList(msg)
	}

	return m, nil
}

// View implements tea.Model.
func (m ViewModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + HelpStyle.Render("q: quit")
	}

	switch m.state {
	case StateTradeList:
		title := TitleStyle.Render(fmt.Sprintf("Client %d trades", m.artifacts[m.selected].ClientID))

		return title + "\n\n" + m.tradeTable.View() + "\n\n" + HelpStyle.Render("esc: back • q: quit")
	default:
		title := TitleStyle.Render(fmt.Sprintf("Cached clients (%d)", len(m.artifacts)))

		return title + "\n\n" + m.clientTable.View() + "\n\n" + HelpStyle.Render("enter: show trades • q: quit")
	}
}

func (m ViewModel) updateClientList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		cursor := m.clientTable.Cursor()
		if cursor >= 0 && cursor < len(m.artifacts) {
			m.selected = cursor
			m.tradeTable = UpdateTradeRows(m.tradeTable, m.artifacts[cursor].Aggregate)
			m.state = StateTradeList
		}

		return m, nil
	}

	var cmd tea.Cmd
	m.clientTable, cmd = m.clientTable.Update(msg)

	return m, cmd
}

func (m ViewModel) updateTradeList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.tradeTable, cmd = m.tradeTable.Update(msg)

	return m, cmd
}
