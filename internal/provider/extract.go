package provider

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Extractor pulls summary text out of one known response shape.
type Extractor interface {
	Name() string
	Extract(doc gjson.Result) (string, bool)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc struct {
	Label string
	Fn    func(doc gjson.Result) (string, bool)
}

// Name implements Extractor.
func (f ExtractorFunc) Name() string { return f.Label }

// Extract implements Extractor.
func (f ExtractorFunc) Extract(doc gjson.Result) (string, bool) { return f.Fn(doc) }

// DefaultExtractors lists the supported response shapes in priority order.
func DefaultExtractors() []Extractor {
	return []Extractor{
		ExtractorFunc{Label: "candidates", Fn: extractCandidates},
		ExtractorFunc{Label: "outputs", Fn: extractOutputs},
		ExtractorFunc{Label: "choices", Fn: extractChoices},
		ExtractorFunc{Label: "named_field", Fn: extractNamedField},
	}
}

// ExtractText parses body as JSON and returns the first non-blank string an
// extractor finds, trimmed. Bodies that are not JSON, or match no shape,
// yield "".
func ExtractText(body []byte, extractors []Extractor) string {
	if len(extractors) == 0 {
		extractors = DefaultExtractors()
	}
	if !gjson.ValidBytes(body) {
		return ""
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return ""
	}
	for _, extractor := range extractors {
		if text, ok := extractor.Extract(doc); ok {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// extractCandidates handles candidates[0].{output|content|text}, where the
// value is a string, an object with text (or Gemini parts), or a list of
// objects with text.
func extractCandidates(doc gjson.Result) (string, bool) {
	candidates := doc.Get("candidates")
	if !candidates.IsArray() {
		return "", false
	}
	first := candidates.Get("0")
	if !first.IsObject() {
		return "", false
	}
	for _, key := range []string{"output", "content", "text"} {
		value := first.Get(key)
		if !value.Exists() {
			continue
		}
		if text, ok := textValue(value); ok {
			return text, true
		}
	}
	return "", false
}

func textValue(value gjson.Result) (string, bool) {
	switch {
	case value.Type == gjson.String:
		return nonBlank(value.String())
	case value.IsObject():
		if text := value.Get("text"); text.Type == gjson.String {
			return nonBlank(text.String())
		}
		if parts := value.Get("parts"); parts.IsArray() {
			return firstText(parts)
		}
	case value.IsArray():
		return firstText(value)
	}
	return "", false
}

// extractOutputs handles outputs[0].output (string) and
// outputs[0].content[] items with text.
func extractOutputs(doc gjson.Result) (string, bool) {
	outputs := doc.Get("outputs")
	if !outputs.IsArray() {
		return "", false
	}
	first := outputs.Get("0")
	if !first.IsObject() {
		return "", false
	}
	if output := first.Get("output"); output.Type == gjson.String {
		if text, ok := nonBlank(output.String()); ok {
			return text, true
		}
	}
	if content := first.Get("content"); content.IsArray() {
		return firstText(content)
	}
	return "", false
}

// extractChoices handles OpenAI-compatible chat and completion bodies.
func extractChoices(doc gjson.Result) (string, bool) {
	choices := doc.Get("choices")
	if !choices.IsArray() {
		return "", false
	}
	first := choices.Get("0")
	if content := first.Get("message.content"); content.Type == gjson.String {
		if text, ok := nonBlank(content.String()); ok {
			return text, true
		}
	}
	if text := first.Get("text"); text.Type == gjson.String {
		return nonBlank(text.String())
	}
	return "", false
}

// extractNamedField handles top-level summary or result strings.
func extractNamedField(doc gjson.Result) (string, bool) {
	for _, key := range []string{"summary", "result"} {
		if value := doc.Get(key); value.Type == gjson.String {
			if text, ok := nonBlank(value.String()); ok {
				return text, true
			}
		}
	}
	return "", false
}

func firstText(items gjson.Result) (string, bool) {
	var found string
	items.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		if text := item.Get("text"); text.Type == gjson.String {
			if trimmed, ok := nonBlank(text.String()); ok {
				found = trimmed
				return false
			}
		}
		return true
	})
	return found, found != ""
}

func nonBlank(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}
