package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case AnswerMsg:
		return m.handleAnswer(msg)
	case StatsMsg:
		return m.handleStats(msg)
	case RefreshTriggeredMsg:
		return m.handleRefreshTriggered(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+r":
		m.Notice = "Refreshing news sources..."
		return m, triggerRefresh(m.Client)
	}

	if m.State == StateAsking {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		question := strings.TrimSpace(m.Input)
		if question == "" {
			return m, nil
		}
		m.State = StateAsking
		m.Notice = ""
		m.Err = nil
		return m, askQuestion(m.Client, question)
	case tea.KeyBackspace:
		if len(m.Input) > 0 {
			runes := []rune(m.Input)
			m.Input = string(runes[:len(runes)-1])
		}
	case tea.KeyRunes:
		m.Input += string(msg.Runes)
	case tea.KeySpace:
		m.Input += " "
	}
	return m, nil
}

// handleAnswer processes a completed question
func (m Model) handleAnswer(msg AnswerMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.State = StateError
		m.Err = msg.Err
		return m, nil
	}
	m.History = append(m.History, Exchange{
		Question: msg.Result.Question,
		Result:   msg.Result,
	})
	m.Input = ""
	m.State = StateInput
	return m, fetchStats(m.Client)
}

// handleStats processes a stats update; failures here are not fatal
func (m Model) handleStats(msg StatsMsg) (tea.Model, tea.Cmd) {
	if msg.Err == nil {
		m.Stats = msg.Stats
	}
	return m, nil
}

// handleRefreshTriggered reports whether ingestion was started
func (m Model) handleRefreshTriggered(msg RefreshTriggeredMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Notice = "Refresh failed: " + msg.Err.Error()
		return m, nil
	}
	m.Notice = "Refresh started, new articles will appear shortly"
	return m, nil
}
