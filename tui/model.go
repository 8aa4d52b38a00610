// Package tui is an interactive terminal client for asking questions
// against the news API.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// State represents the UI state machine
type State string

const (
	StateInput  State = "input"
	StateAsking State = "asking"
	StateError  State = "error"
)

// Exchange is one asked question together with its answer.
type Exchange struct {
	Question string
	Result   *QueryResult
}

// Model holds the TUI client state. All answering happens server-side;
// the model only tracks input and the conversation so far.
type Model struct {
	Client *APIClient

	State   State
	Input   string
	History []Exchange
	Stats   *StatsResult
	Notice  string
	Err     error
}

// NewModel creates a new TUI model pointed at the API base URL.
func NewModel(apiURL, apiKey string) Model {
	return Model{
		Client: NewAPIClient(apiURL, apiKey),
		State:  StateInput,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return fetchStats(m.Client)
}
