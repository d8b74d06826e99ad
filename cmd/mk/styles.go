// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Palette. Each color has a light-background and a dark-background variant.
var (
	colorBrand   = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	colorOK      = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	colorFailure = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	subtleStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	pathStyle    = lipgloss.NewStyle().Foreground(colorAccent)
	successStyle = lipgloss.NewStyle().Foreground(colorOK)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorFailure)

	tableHeaderStyle = titleStyle.Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)
