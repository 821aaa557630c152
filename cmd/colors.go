package cmd

import (
	"github.com/fatih/color"

	"github.com/quangmanh-dev/webscan/internal/scan"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// severityBadge renders a finding's severity for terminal output.
func severityBadge(s scan.Severity) string {
	switch s {
	case scan.SeverityCritical, scan.SeverityHigh:
		return colorError(string(s))
	case scan.SeverityMedium, scan.SeverityLow, scan.SeverityWarning:
		return colorWarn(string(s))
	case scan.SeverityExcellent:
		return colorSuccess(string(s))
	default:
		return colorInfo(string(s))
	}
}
