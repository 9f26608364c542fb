package output

import (
	"encoding/json"

	"github.com/namelens/sumlens/internal/store"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatSummaries renders a page of summaries.
func (f *JSONFormatter) FormatSummaries(list SummaryList) (string, error) {
	if list.Records == nil {
		list.Records = []store.SummaryRecord{}
	}
	return f.marshal(list)
}

// FormatSummary renders one summary.
func (f *JSONFormatter) FormatSummary(rec *store.SummaryRecord) (string, error) {
	if rec == nil {
		return "", nil
	}
	return f.marshal(rec)
}

// FormatCounters renders rate limit counters.
func (f *JSONFormatter) FormatCounters(list CounterList) (string, error) {
	return f.marshal(list.Views())
}
