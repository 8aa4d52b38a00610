package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// askQuestion creates a command that sends the question to the API.
func askQuestion(client *APIClient, question string) tea.Cmd {
	return func() tea.Msg {
		result, err := client.Ask(question)
		return AnswerMsg{Result: result, Err: err}
	}
}

// fetchStats creates a command that loads the corpus stats.
func fetchStats(client *APIClient) tea.Cmd {
	return func() tea.Msg {
		stats, err := client.Stats()
		return StatsMsg{Stats: stats, Err: err}
	}
}

// triggerRefresh creates a command that starts a background ingestion pass.
func triggerRefresh(client *APIClient) tea.Cmd {
	return func() tea.Msg {
		return RefreshTriggeredMsg{Err: client.Refresh()}
	}
}
