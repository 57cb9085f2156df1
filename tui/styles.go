package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/buildwatch/buildwatch/internals/schemas"
)

var (
	colorWhite  = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorBlue   = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleLabel   = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	StyleError   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	StyleHint    = lipgloss.NewStyle().Foreground(colorDim)
)

type statusInfo struct {
	label string
	icon  string
	color lipgloss.AdaptiveColor
}

var statuses = map[schemas.ProjectStatus]statusInfo{
	schemas.ProjectStatusPending:   {label: "pending", icon: "⏳", color: colorYellow},
	schemas.ProjectStatusRunning:   {label: "running", icon: "⚡", color: colorBlue},
	schemas.ProjectStatusCompleted: {label: "completed", icon: "✅", color: colorGreen},
	schemas.ProjectStatusFailed:    {label: "failed", icon: "❌", color: colorRed},
	schemas.ProjectStatusCancelled: {label: "cancelled", icon: "🚫", color: colorDim},
}

var logIcons = map[schemas.LogType]string{
	schemas.LogTypeInfo:    "📝",
	schemas.LogTypeToolUse: "🔧",
	schemas.LogTypeSuccess: "✅",
	schemas.LogTypeError:   "❌",
}

// StatusBadge renders a status with its icon. Unknown statuses render as
// pending.
func StatusBadge(status schemas.ProjectStatus) string {
	info, ok := statuses[status]
	if !ok {
		info = statuses[schemas.ProjectStatusPending]
	}
	return lipgloss.NewStyle().Bold(true).Foreground(info.color).Render(info.icon + " " + info.label)
}

// StatusLabel is StatusBadge without colour, for tables and piped output.
func StatusLabel(status schemas.ProjectStatus) string {
	info, ok := statuses[status]
	if !ok {
		info = statuses[schemas.ProjectStatusPending]
	}
	return info.icon + " " + info.label
}

func LogIcon(logType schemas.LogType) string {
	if icon, ok := logIcons[logType]; ok {
		return icon
	}
	return logIcons[schemas.LogTypeInfo]
}

func logStyle(logType schemas.LogType) lipgloss.Style {
	switch logType {
	case schemas.LogTypeError:
		return lipgloss.NewStyle().Foreground(colorRed)
	case schemas.LogTypeSuccess:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case schemas.LogTypeToolUse:
		return lipgloss.NewStyle().Foreground(colorCyan)
	default:
		return StyleValue
	}
}

// FormatLog renders one log line: icon, time and message.
func FormatLog(entry schemas.TaskLog) string {
	return LogIcon(entry.LogType) + " " +
		StyleLabel.Render(shortTime(entry.CreatedAt)) + " " +
		logStyle(entry.LogType).Render(entry.Message)
}
