// Package summarize implements the deterministic extractive summarizer used
// when no external provider can produce a summary.
package summarize

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Source is the SummaryResult source reported for extractive summaries.
const Source = "extractive_fallback"

// Sentence budget bounds applied by SentenceBudget.
const (
	MinSentences      = 1
	MaxSentences      = 5
	tokensPerSentence = 50
)

type scoredSentence struct {
	text  string
	index int
	score float64
}

// Summarize selects up to maxSentences sentences from text by term-frequency
// score and returns them in document order joined by ". " with a trailing
// period. It never fails: empty or punctuation-only input yields "".
//
// Sentences are the non-blank fragments between periods of the single-line
// text. A sentence scores the sum of its words' frequencies across the whole
// text divided by ln(wordCount+1); equal scores keep the earlier sentence.
func Summarize(text string, maxSentences int) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	if maxSentences < 1 {
		maxSentences = 1
	}

	freqs := make(map[string]int)
	for _, sentence := range sentences {
		for _, word := range words(sentence) {
			freqs[word]++
		}
	}

	scored := make([]scoredSentence, len(sentences))
	for i, sentence := range sentences {
		scored[i] = scoredSentence{text: sentence, index: i, score: score(sentence, freqs)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].index < scored[j].index
	})
	if len(scored) > maxSentences {
		scored = scored[:maxSentences]
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].index < scored[j].index })

	parts := make([]string, len(scored))
	for i, s := range scored {
		parts[i] = s.text
	}
	summary := strings.Join(parts, ". ")
	if summary != "" && !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	return summary
}

// SentenceBudget maps a requested token budget to a sentence count:
// tokens/50 clamped to [MinSentences, MaxSentences].
func SentenceBudget(tokens int) int {
	n := tokens / tokensPerSentence
	if n < MinSentences {
		return MinSentences
	}
	if n > MaxSentences {
		return MaxSentences
	}
	return n
}

func splitSentences(text string) []string {
	flat := strings.ReplaceAll(text, "\n", " ")
	var sentences []string
	for _, fragment := range strings.Split(flat, ".") {
		if trimmed := strings.TrimSpace(fragment); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// words lowercases sentence, splits on whitespace and strips every rune
// that is not a letter or digit. Tokens left empty are dropped.
func words(sentence string) []string {
	fields := strings.Fields(strings.ToLower(sentence))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		word := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, field)
		if word != "" {
			out = append(out, word)
		}
	}
	return out
}

func score(sentence string, freqs map[string]int) float64 {
	total := 0
	for _, word := range words(sentence) {
		total += freqs[word]
	}
	count := len(strings.Fields(sentence))
	if count == 0 {
		return float64(total)
	}
	return float64(total) / math.Log(float64(count)+1)
}
