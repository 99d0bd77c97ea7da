// Package report renders load-test runs for terminals and encodes them
// for machines.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/studiowebux/todoload/internal/stresstest"
)

// RenderRun renders the summary of a single run
func RenderRun(run *stresstest.Run) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render(fmt.Sprintf("%s (#%d)", run.Name, run.ID)) + "\n")
	b.WriteString(styleSubtle.Render("Run:    ") + run.RunKey + "\n")
	b.WriteString(styleSubtle.Render("Target: ") + run.BaseURL + "\n")
	b.WriteString(styleSubtle.Render("Status: ") + statusStyle(run.Status).Render(run.Status) + "\n")
	b.WriteString(styleSubtle.Render("Start:  ") + run.StartedAt.Format("2006-01-02 15:04:05") + "\n")
	if run.CompletedAt != nil {
		b.WriteString(styleSubtle.Render("Took:   ") + FormatDuration(run.CompletedAt.Sub(run.StartedAt)) + "\n")
	}
	b.WriteString("\n")

	successCount := run.TotalRequestsCompleted - run.TotalErrors - run.TotalFailures
	left := []string{
		fmt.Sprintf("VUs:        %d", run.VUs),
		fmt.Sprintf("Seeded:     %d", run.SeededCount),
		fmt.Sprintf("Iterations: %d", run.IterationsCompleted),
		fmt.Sprintf("Requests:   %d", run.TotalRequestsCompleted),
		fmt.Sprintf("Success:    %d", successCount),
		fmt.Sprintf("Failures:   %d", run.TotalFailures),
		fmt.Sprintf("Net Errors: %d", run.TotalErrors),
	}
	right := []string{
		fmt.Sprintf("Avg: %.0fms", run.AvgDurationMs),
		fmt.Sprintf("Min: %dms", run.MinDurationMs),
		fmt.Sprintf("Max: %dms", run.MaxDurationMs),
		fmt.Sprintf("P50: %dms", run.P50DurationMs),
		fmt.Sprintf("P90: %dms", run.P90DurationMs),
		fmt.Sprintf("P95: %dms", run.P95DurationMs),
		fmt.Sprintf("P99: %dms", run.P99DurationMs),
	}

	leftCol := lipgloss.NewStyle().Width(24).Render(strings.Join(left, "\n"))
	rightCol := strings.Join(right, "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, leftCol, rightCol))
	b.WriteString("\n")

	if run.CompletedAt != nil {
		elapsed := run.CompletedAt.Sub(run.StartedAt).Seconds()
		if elapsed > 0 {
			b.WriteString(fmt.Sprintf("\nRequests/sec: %.2f\n", float64(run.TotalRequestsCompleted)/elapsed))
		}
	}

	return b.String()
}

// RenderSteps renders the per-step breakdown as a table
func RenderSteps(steps []stresstest.StepSummary) string {
	if len(steps) == 0 {
		return styleSubtle.Render("No requests recorded.") + "\n"
	}

	headers := []string{"STEP", "REQS", "FAIL", "ERR", "AVG", "MIN", "MAX", "P95"}
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		rows = append(rows, []string{
			s.Step,
			fmt.Sprintf("%d", s.Requests),
			fmt.Sprintf("%d", s.Failures),
			fmt.Sprintf("%d", s.Errors),
			fmt.Sprintf("%.0fms", s.AvgDurationMs),
			fmt.Sprintf("%dms", s.MinDurationMs),
			fmt.Sprintf("%dms", s.MaxDurationMs),
			fmt.Sprintf("%dms", s.P95DurationMs),
		})
	}
	return renderTable(headers, rows)
}

// RenderRuns renders a list of runs, newest first
func RenderRuns(runs []*stresstest.Run) string {
	if len(runs) == 0 {
		return styleSubtle.Render("No load test runs found.") + "\n"
	}

	headers := []string{"ID", "NAME", "STATUS", "STARTED", "VUS", "ITER", "REQS", "AVG", "P95"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID),
			r.Name,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", r.VUs),
			fmt.Sprintf("%d", r.IterationsCompleted),
			fmt.Sprintf("%d", r.TotalRequestsCompleted),
			fmt.Sprintf("%.0fms", r.AvgDurationMs),
			fmt.Sprintf("%dms", r.P95DurationMs),
		})
	}
	return renderTable(headers, rows)
}

// renderTable lays out columns padded to their widest cell
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = styleHeader.Width(widths[i] + 2).Render(h)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n")

	for _, row := range rows {
		for i, cell := range row {
			cells[i] = styleCell.Width(widths[i] + 2).Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n")
	}
	return b.String()
}

// FormatDuration formats a duration for humans
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// RenderProgress renders a one-line progress bar
func RenderProgress(iterations, total, activeVUs int, elapsed time.Duration) string {
	const barWidth = 30

	if total <= 0 {
		return fmt.Sprintf("%d iterations | %d VUs | %s", iterations, activeVUs, FormatDuration(elapsed))
	}

	progress := float64(iterations) / float64(total)
	filled := int(progress * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s %d/%d (%.1f%%) | %d VUs | %s",
		bar, iterations, total, progress*100, activeVUs, FormatDuration(elapsed))
}
