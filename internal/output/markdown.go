package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/namelens/sumlens/internal/store"
)

// MarkdownFormatter renders results as Markdown tables.
type MarkdownFormatter struct{}

// FormatSummaries renders a page of summaries.
func (f *MarkdownFormatter) FormatSummaries(list SummaryList) (string, error) {
	return "## Summaries\n\n" + summaryTable(list).RenderMarkdown(), nil
}

// FormatSummary renders one summary with its metadata.
func (f *MarkdownFormatter) FormatSummary(rec *store.SummaryRecord) (string, error) {
	if rec == nil {
		return "", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Summary %s\n\n", rec.ID)
	fmt.Fprintf(&sb, "- created: %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "- source: %s\n", rec.Source)
	fmt.Fprintf(&sb, "- external: %s\n", externalLabel(rec.UsedExternal))
	fmt.Fprintf(&sb, "- tokens: %d\n", rec.TokensRequested)
	if rec.Error != "" {
		fmt.Fprintf(&sb, "- error: `%s`\n", strings.ReplaceAll(rec.Error, "`", "'"))
	}
	sb.WriteString("\n")
	sb.WriteString(rec.SummaryText)
	sb.WriteString("\n")
	return sb.String(), nil
}

// FormatCounters renders rate limit counters.
func (f *MarkdownFormatter) FormatCounters(list CounterList) (string, error) {
	return "## Rate Limits\n\n" + counterTable(list).RenderMarkdown(), nil
}
