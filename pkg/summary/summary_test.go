package summary

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeSeedMessage(t *testing.T) {
	h := NewHeuristic()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "three short words",
			text:     "Continuing from: \"big cats run\"\n\nWhat would you like to explore about this?",
			expected: "Big Cats Run",
		},
		{
			name:     "third word over budget",
			text:     "Continuing from: \"explore different topics\"\n\nWhat would you like to explore about this?",
			expected: "Explore Different",
		},
		{
			name:     "quote without trailing text",
			text:     "Continuing from: \"neural networks\"",
			expected: "Neural Networks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Summarize([]Turn{{Role: "assistant", Text: tt.text}})
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSummarizeTopicTable(t *testing.T) {
	h := NewHeuristic()
	turns := []Turn{
		{Role: "assistant", Text: "Hello there."},
		{Role: "user", Text: "My python script keeps failing."},
		{Role: "assistant", Text: "Can you share the traceback?"},
		{Role: "user", Text: "It says there is a bug in the loop."},
	}
	assert.Equal(t, "Technology", h.Summarize(turns))
}

func TestSummarizeTopicTableOrder(t *testing.T) {
	h := NewHeuristic()
	turns := []Turn{
		{Role: "assistant", Text: "a"},
		{Role: "user", Text: "I need a plan"},
		{Role: "assistant", Text: "b"},
		{Role: "user", Text: "for my startup"},
	}
	// business comes before planning in the table
	assert.Equal(t, "Business", h.Summarize(turns))
}

func TestSummarizeShortConversationUsesUserWords(t *testing.T) {
	h := NewHeuristic()
	got := h.Summarize([]Turn{
		{Role: "assistant", Text: "Continuing from: \"orbits\""},
		{Role: "user", Text: "Why do comets glow?"},
	})
	assert.Equal(t, "Comets Glow", got)
}

func TestSummarizeFallbacks(t *testing.T) {
	h := NewHeuristic()

	assert.Equal(t, "Conversation", h.Summarize(nil))
	assert.Equal(t, "Conversation", h.Summarize([]Turn{{Role: "assistant", Text: "..."}}))

	got := h.Summarize([]Turn{
		{Role: "assistant", Text: "x"},
		{Role: "user", Text: "ok"},
		{Role: "assistant", Text: "y"},
		{Role: "user", Text: "hmm, wonderful sunsets"},
	})
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxLabelRunes)
}

func TestSummarizeFreeFormIsBounded(t *testing.T) {
	h := NewHeuristic()
	inputs := [][]Turn{
		{{Role: "user", Text: "Supercalifragilisticexpialidocious antidisestablishmentarianism"}},
		{{Role: "user", Text: "**Bold** claims about `inline` things and [links](http://example.com)"}},
		{
			{Role: "user", Text: "tell me"},
			{Role: "assistant", Text: "sure"},
			{Role: "user", Text: "go on"},
			{Role: "assistant", Text: "gladly, extraordinarily verbose responses follow"},
		},
	}
	for _, turns := range inputs {
		got := h.Summarize(turns)
		require.NotEmpty(t, got)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxLabelRunes, got)
	}
}

func TestSummarizeIgnoresMarkdownMarkup(t *testing.T) {
	h := NewHeuristic()
	got := h.Summarize([]Turn{{Role: "user", Text: "**Volcanoes** _erupting_"}})
	assert.Equal(t, "Volcanoes", got)
}

func TestCustomTopics(t *testing.T) {
	h := NewHeuristic(WithTopics(Topic{Label: "Cooking", Keywords: []string{"recipe"}}))
	got := h.Summarize([]Turn{
		{Role: "assistant", Text: "a"},
		{Role: "user", Text: "a"},
		{Role: "assistant", Text: "a"},
		{Role: "user", Text: "favourite recipe"},
	})
	assert.Equal(t, "Cooking", got)
}

func TestSeedQuote(t *testing.T) {
	q, ok := SeedQuote("Continuing from: \"a \"quoted\" word\"\n\nmore")
	require.True(t, ok)
	assert.Equal(t, "a \"quoted\" word", q)

	_, ok = SeedQuote("just a message")
	assert.False(t, ok)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Conversation 12345678", Title(nil, "1234567890"))
	assert.Equal(t, "How do tides work", Title([]Turn{
		{Role: "assistant", Text: "hi"},
		{Role: "user", Text: "How do tides work? And why twice a day?"},
	}, "x"))
	assert.Equal(t, "New Conversation", Title([]Turn{{Role: "user", Text: "Welcome to ChatPath!"}}, "x"))

	long := "This is an extremely long first sentence that goes on well past the limit"
	got := Title([]Turn{{Role: "user", Text: long}}, "x")
	assert.Equal(t, long[:50]+"...", got)
}

func TestTokenizeKeepsContractions(t *testing.T) {
	assert.Equal(t,
		[]string{"don't", "you're", "quoted", "it's", "state-of-the-art"},
		tokenize("Don't you're 'quoted' it’s state-of-the-art"))

	// contractions are stop words and never become label candidates
	assert.Empty(t, longestWords(tokenize("don't you're i'm it's wouldn't"), 2))
	assert.Equal(t, []string{"gardening", "right"}, contentWords("I don't know gardening, you're right"))
}
