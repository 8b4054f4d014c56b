package tui

import (
	"fmt"
	"slices"
	"strings"
)

// Supported view types.
const (
	ViewInspectLog    = "inspect_log"
	ViewStatsMetrics  = "stats_metrics"
	ViewStatsExamples = "stats_examples"
)

// Run starts the TUI for viewType.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	if strings.HasPrefix(viewType, "inspect_") {
		return RunInspectTUI(viewType, data)
	}
	return RunStatsTUI(viewType, data)
}

// IsTUISupported reports whether viewType has a TUI. Only read-only views
// (inspect and stats) do.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews lists the view types with a TUI.
func SupportedTUIViews() []string {
	return []string{ViewInspectLog, ViewStatsMetrics, ViewStatsExamples}
}
