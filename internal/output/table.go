package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/namelens/sumlens/internal/store"
)

// TableFormatter renders results as ASCII tables.
type TableFormatter struct{}

func summaryTable(list SummaryList) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"ID", "Created", "Source", "External", "Tokens", "Email", "Summary"})
	for _, rec := range list.Records {
		t.AppendRow(table.Row{
			rec.ID,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.Source,
			externalLabel(rec.UsedExternal),
			rec.TokensRequested,
			rec.Email,
			excerpt(rec.SummaryText, excerptWidth),
		})
	}
	if list.Total > 0 {
		t.AppendFooter(table.Row{"", "", "", "", "", "", fmt.Sprintf("%d of %d", len(list.Records), list.Total)})
	}
	return t
}

func counterTable(list CounterList) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Client", "Count", "Window start", "Reset (s)", "State"})
	for _, v := range list.Views() {
		t.AppendRow(table.Row{
			v.Key,
			v.Count,
			v.WindowStart.Format(time.RFC3339),
			v.ResetSeconds,
			counterState(v),
		})
	}
	return t
}

// FormatSummaries renders a page of summaries.
func (f *TableFormatter) FormatSummaries(list SummaryList) (string, error) {
	if len(list.Records) == 0 {
		return ascii.DrawBox("Summaries\n\n(no stored summaries)", 0), nil
	}
	t := summaryTable(list)
	t.SetStyle(table.StyleRounded)
	return t.Render(), nil
}

// FormatSummary renders one summary in a box.
func (f *TableFormatter) FormatSummary(rec *store.SummaryRecord) (string, error) {
	if rec == nil {
		return "", nil
	}
	lines := []string{
		"Summary " + rec.ID,
		"",
		"created:  " + rec.CreatedAt.UTC().Format(time.RFC3339),
		"source:   " + rec.Source,
		"external: " + externalLabel(rec.UsedExternal),
		fmt.Sprintf("tokens:   %d", rec.TokensRequested),
	}
	if rec.Email != "" {
		lines = append(lines, "email:    "+rec.Email)
	}
	if rec.ClientIP != "" {
		lines = append(lines, "client:   "+rec.ClientIP)
	}
	if rec.Error != "" {
		lines = append(lines, "error:    "+excerpt(rec.Error, excerptWidth))
	}
	lines = append(lines, "", excerpt(rec.SummaryText, 4*excerptWidth))
	return ascii.DrawBox(strings.Join(lines, "\n"), 0), nil
}

// FormatCounters renders rate limit counters.
func (f *TableFormatter) FormatCounters(list CounterList) (string, error) {
	if len(list.Entries) == 0 {
		return ascii.DrawBox("Rate Limits\n\n(no stored rate limit state)", 0), nil
	}
	t := counterTable(list)
	t.SetStyle(table.StyleRounded)
	return t.Render(), nil
}
