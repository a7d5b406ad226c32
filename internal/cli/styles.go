package cli

import "github.com/charmbracelet/lipgloss"

// Shared terminal styles for verdict and preview rendering.
var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	stylePass    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleFile    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	styleAdded   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleRemoved = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleHeader  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)
