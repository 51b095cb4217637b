// Package summary derives short human readable labels for conversation nodes
// and the edges leading to them.
//
// The labels are heuristic. Nothing guarantees that two nodes get different
// labels, or that the label is meaningful for free-form input; the only hard
// guarantees are that a label is never empty and never longer than
// MaxLabelRunes.
package summary

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// WordBudget is the display budget used when joining words into a label.
	WordBudget = 15
	// MaxLabelRunes is the hard cap on the length of a label.
	MaxLabelRunes = 20

	shortConversationTurns = 3
	recentTurns            = 4
	fallbackLabel          = "Conversation"
)

// Turn is the minimal view of a message needed to summarize it.
type Turn struct {
	Role string
	Text string
}

// Summarizer turns a message list into a short label.
type Summarizer interface {
	Summarize(turns []Turn) string
}

// SummarizerFunc adapts a plain function to the Summarizer interface.
type SummarizerFunc func(turns []Turn) string

func (f SummarizerFunc) Summarize(turns []Turn) string {
	return f(turns)
}

var seedQuotePattern = regexp.MustCompile(`(?s)^Continuing from: "(.*?)"(?:\n|$)`)

var titleCaser = cases.Title(language.English, cases.NoLower)

// Heuristic implements the keyword based labelling rules, in priority order:
// branch seed quote, content words of short conversations, topic table,
// longest tokens, first words of the earliest user message.
type Heuristic struct {
	topics []Topic
}

var _ Summarizer = (*Heuristic)(nil)

type HeuristicOption func(*Heuristic)

// WithTopics replaces the built-in topic table.
func WithTopics(topics ...Topic) HeuristicOption {
	return func(h *Heuristic) {
		h.topics = topics
	}
}

func NewHeuristic(options ...HeuristicOption) *Heuristic {
	ret := &Heuristic{
		topics: DefaultTopics,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (h *Heuristic) Summarize(turns []Turn) string {
	if len(turns) == 0 {
		return fallbackLabel
	}

	if len(turns) == 1 {
		if quote, ok := SeedQuote(turns[0].Text); ok {
			if label := fitWords(strings.Fields(quote), 2, 3); label != "" {
				return label
			}
		}
	}

	if len(turns) <= shortConversationTurns {
		var words []string
		for _, t := range turns {
			if t.Role != "user" {
				continue
			}
			words = appendUnique(words, contentWords(t.Text)...)
		}
		if label := fitWords(words, 1, 2); label != "" {
			return label
		}
	}

	recent := turns
	if len(recent) > recentTurns {
		recent = recent[len(recent)-recentTurns:]
	}
	var recentTokens []string
	for _, t := range recent {
		recentTokens = append(recentTokens, tokenize(t.Text)...)
	}

	if topic, ok := h.matchTopic(recentTokens); ok {
		return clampLabel(topic.Label)
	}

	if longest := longestWords(recentTokens, 2); len(longest) > 0 {
		if label := fitWords(longest, 1, 2); label != "" {
			return label
		}
	}

	for _, t := range turns {
		if t.Role != "user" {
			continue
		}
		if label := fitWords(strings.Fields(PlainText(t.Text)), 1, 3); label != "" {
			return label
		}
		break
	}

	return fallbackLabel
}

func (h *Heuristic) matchTopic(tokens []string) (Topic, bool) {
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		seen[tok] = struct{}{}
	}
	for _, topic := range h.topics {
		for _, kw := range topic.Keywords {
			if _, ok := seen[kw]; ok {
				return topic, true
			}
		}
	}
	return Topic{}, false
}

// SeedQuote extracts the quoted selection from a branch seed message.
func SeedQuote(text string) (string, bool) {
	m := seedQuotePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	quote := strings.TrimSpace(m[1])
	if quote == "" {
		return "", false
	}
	return quote, true
}

// fitWords joins between minWords and maxWords words. Words past minWords
// are only added while the label stays inside the word budget; the result is
// clamped to MaxLabelRunes.
func fitWords(words []string, minWords, maxWords int) string {
	var picked []string
	length := 0
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if w == "" {
			continue
		}
		if len(picked) == maxWords {
			break
		}
		n := utf8.RuneCountInString(w)
		if len(picked) >= minWords && length+1+n > WordBudget {
			break
		}
		if len(picked) > 0 {
			length++
		}
		length += n
		picked = append(picked, w)
	}
	if len(picked) == 0 {
		return ""
	}
	return clampLabel(titleCaser.String(strings.Join(picked, " ")))
}

func clampLabel(label string) string {
	if utf8.RuneCountInString(label) <= MaxLabelRunes {
		return label
	}
	runes := []rune(label)
	return strings.TrimSpace(string(runes[:MaxLabelRunes-1])) + "…"
}

func appendUnique(dst []string, words ...string) []string {
	for _, w := range words {
		found := false
		for _, d := range dst {
			if d == w {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, w)
		}
	}
	return dst
}

// contentWords returns the lowercase non-stopword tokens of at least four
// letters, in order of appearance.
func contentWords(text string) []string {
	var ret []string
	for _, tok := range tokenize(text) {
		if utf8.RuneCountInString(tok) < 4 || IsStopWord(tok) {
			continue
		}
		ret = append(ret, tok)
	}
	return ret
}

// longestWords returns the n longest distinct non-stopword tokens. Ties keep
// the order of first appearance.
func longestWords(tokens []string, n int) []string {
	var candidates []string
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < 3 || IsStopWord(tok) {
			continue
		}
		candidates = appendUnique(candidates, tok)
	}
	ret := make([]string, 0, n)
	used := make([]bool, len(candidates))
	for len(ret) < n {
		best := -1
		for i, c := range candidates {
			if used[i] {
				continue
			}
			if best == -1 || utf8.RuneCountInString(c) > utf8.RuneCountInString(candidates[best]) {
				best = i
			}
		}
		if best == -1 {
			break
		}
		used[best] = true
		ret = append(ret, candidates[best])
	}
	return ret
}

var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'")

// tokenize splits text into lowercase words. Apostrophes stay inside words so
// that contractions match the stop words; quotes around a word are dropped.
func tokenize(text string) []string {
	plain := apostrophes.Replace(strings.ToLower(PlainText(text)))
	fields := strings.FieldsFunc(plain, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-' && r != '\''
	})
	ret := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if f != "" {
			ret = append(ret, f)
		}
	}
	return ret
}
