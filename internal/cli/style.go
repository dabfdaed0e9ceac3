package cli

import (
	"github.com/charmbracelet/lipgloss"

	"kbqa/internal/model"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

func roleLabel(role string) string {
	if role == model.RoleUser {
		return userStyle.Render("you")
	}
	return assistantStyle.Render("assistant")
}
