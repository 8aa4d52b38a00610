package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeKeys(t *testing.T, m Model, msgs ...tea.KeyMsg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestTypingBuildsInput(t *testing.T) {
	m := NewModel("http://localhost:8080", "")

	m = typeKeys(t, m,
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}},
		tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}},
	)

	if m.Input != "a b" {
		t.Errorf("input = %q, want %q", m.Input, "a b")
	}
}

func TestBackspaceRemovesLastRune(t *testing.T) {
	m := NewModel("http://localhost:8080", "")

	m = typeKeys(t, m,
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w', 'h', 'o'}},
		tea.KeyMsg{Type: tea.KeyBackspace},
	)

	if m.Input != "wh" {
		t.Errorf("input = %q, want %q", m.Input, "wh")
	}
}

func TestTypingIgnoredWhileAsking(t *testing.T) {
	m := NewModel("http://localhost:8080", "")
	m.State = StateAsking
	m.Input = "who won"

	m = typeKeys(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})

	if m.Input != "who won" {
		t.Errorf("input changed to %q while waiting for an answer", m.Input)
	}
}
