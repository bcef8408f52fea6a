package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/UnknownOlympus/geobatch/internal/models"
	"github.com/UnknownOlympus/geobatch/internal/service"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// progressReporter shows batch progress as a bar on a terminal and as one line per row otherwise.
type progressReporter struct {
	out   io.Writer
	total int
	bar   *progressbar.ProgressBar
}

func newProgressReporter(out io.Writer, total int) *progressReporter {
	reporter := &progressReporter{out: out, total: total}

	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		reporter.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Geocoding"),
			progressbar.OptionSetWriter(out),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	return reporter
}

// Observe is a service.Observer.
func (p *progressReporter) Observe(event service.Event) {
	if event.Kind == service.EventProcessing {
		if p.bar != nil {
			p.bar.Describe(event.Record.Address)
		}
		return
	}

	if p.bar != nil {
		_ = p.bar.Add(1)
		return
	}

	line := fmt.Sprintf("[%d/%d] %s: %s", event.Record.Row, p.total, event.Kind, event.Record.Address)
	if event.Kind == service.EventUnresolved {
		line += fmt.Sprintf(" (%s)", event.Result.Reason)
		if event.Result.Err != nil {
			line += ": " + event.Result.Err.Error()
		}
	}
	fmt.Fprintln(p.out, line)
}

func (p *progressReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderResults draws the geocoded rows as a bordered table.
func renderResults(rows models.GeocodedTable) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("#", "Adres", "Enlem", "Boylam")

	for i, row := range rows {
		t.Row(
			strconv.Itoa(i+1),
			row.Address,
			strconv.FormatFloat(row.Latitude, 'f', -1, 64),
			strconv.FormatFloat(row.Longitude, 'f', -1, 64),
		)
	}

	return t.String()
}

func renderSummary(summary service.Summary) string {
	return fmt.Sprintf("Geocoded %d of %d rows (%d unresolved, %d skipped)",
		summary.Resolved, summary.Total, summary.Unresolved, summary.Skipped)
}
