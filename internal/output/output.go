// Package output renders summary history and rate limit counters for the
// CLI.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/namelens/sumlens/internal/ratelimit"
	"github.com/namelens/sumlens/internal/store"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders CLI results.
type Formatter interface {
	FormatSummaries(list SummaryList) (string, error)
	FormatSummary(rec *store.SummaryRecord) (string, error)
	FormatCounters(list CounterList) (string, error)
}

// SummaryList is one page of stored summaries.
type SummaryList struct {
	Records []store.SummaryRecord `json:"results"`
	Total   int                   `json:"count"`
}

// CounterList is a set of rate limit counters evaluated at Now.
type CounterList struct {
	Entries []ratelimit.CounterEntry
	Limit   int
	Window  time.Duration
	Now     time.Time
}

// CounterView is the rendered form of one counter.
type CounterView struct {
	Key          string    `json:"client_key"`
	Count        int       `json:"request_count"`
	WindowStart  time.Time `json:"window_start"`
	ResetSeconds int       `json:"reset_seconds"`
	Expired      bool      `json:"expired"`
	Exhausted    bool      `json:"exhausted"`
}

// Views evaluates every counter against the window and limit.
func (l CounterList) Views() []CounterView {
	window := l.Window
	if window <= 0 {
		window = ratelimit.DefaultWindow
	}
	now := l.Now
	if now.IsZero() {
		now = time.Now()
	}

	views := make([]CounterView, 0, len(l.Entries))
	for _, e := range l.Entries {
		expired := ratelimit.Expired(e.WindowStart, now, window)
		view := CounterView{
			Key:         e.Key,
			Count:       e.Count,
			WindowStart: e.WindowStart.UTC(),
			Expired:     expired,
		}
		if !expired {
			view.ResetSeconds = ratelimit.ResetSeconds(e.WindowStart, now, window)
			view.Exhausted = l.Limit > 0 && e.Count >= l.Limit
		}
		views = append(views, view)
	}
	return views
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// Extension returns the file extension for format.
func Extension(format Format) string {
	switch format {
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

const excerptWidth = 60

// excerpt shortens s to a single line of at most width runes.
func excerpt(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func externalLabel(used bool) string {
	if used {
		return "yes"
	}
	return "no"
}

func counterState(v CounterView) string {
	switch {
	case v.Expired:
		return "expired"
	case v.Exhausted:
		return "limited"
	default:
		return "open"
	}
}
