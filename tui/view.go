package tui

import (
	"fmt"
	"strings"
)

// maxHistory limits how many past exchanges are rendered.
const maxHistory = 5

var exampleQuestions = []string{
	"Who won yesterday's games?",
	"What's happening with the NCAA lawsuit?",
	"Any news about trades this week?",
}

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("🏟  Sports News Q&A"))
	b.WriteString("\n")

	if m.Stats != nil {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("%d chunks indexed in %q", m.Stats.Chunks, m.Stats.Collection)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.History) == 0 && m.State == StateInput && m.Input == "" {
		b.WriteString(InfoStyle.Render("Try asking:"))
		b.WriteString("\n")
		for _, q := range exampleQuestions {
			b.WriteString(InfoStyle.Render("  • " + q))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	history := m.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, ex := range history {
		b.WriteString(QuestionStyle.Render("Q: " + ex.Question))
		b.WriteString("\n")
		b.WriteString(AnswerStyle.Render(formatAnswer(ex.Result)))
		b.WriteString("\n\n")
	}

	switch m.State {
	case StateAsking:
		b.WriteString(QuestionStyle.Render("Q: " + m.Input))
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("⏳ Thinking..."))
		b.WriteString("\n")
	case StateError:
		errMsg := "unknown error"
		if m.Err != nil {
			errMsg = m.Err.Error()
		}
		b.WriteString(ErrorStyle.Render("❌ " + errMsg))
		b.WriteString("\n\n")
		b.WriteString(PromptStyle.Render("Ask:"))
		b.WriteString(" " + m.Input + "▌\n")
	default:
		b.WriteString(PromptStyle.Render("Ask:"))
		b.WriteString(" " + m.Input + "▌\n")
	}

	if m.Notice != "" {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render(m.Notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(InfoStyle.Render("Enter to ask | Ctrl+R to refresh news | Esc or Ctrl+C to quit"))
	b.WriteString("\n")

	return b.String()
}

// formatAnswer renders an answer with its numbered sources.
func formatAnswer(result *QueryResult) string {
	var b strings.Builder
	b.WriteString(result.Answer)

	if len(result.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for i, src := range result.Sources {
			b.WriteString(fmt.Sprintf("  [%d] %s\n      %s\n", i+1, src.Title, src.URL))
		}
	}
	return b.String()
}
