package selection

import (
	"strings"
	"testing"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(content string, bps ...conversation.BranchPoint) conversation.Message {
	m := conversation.NewMessage(conversation.RoleAssistant, content, conversation.WithID("m1"))
	m.BranchPoints = bps
	return m
}

func TestFromText(t *testing.T) {
	m := message("🌳 Welcome! Try to explore different topics today.")

	sel, err := FromText("n1", m, "  explore different topics ")
	require.NoError(t, err)
	assert.Equal(t, conversation.TextSelection{
		Text:        "explore different topics",
		StartOffset: 18,
		EndOffset:   42,
		MessageID:   "m1",
		NodeID:      "n1",
	}, sel)
	assert.Equal(t, sel.Text, string([]rune(m.Content)[sel.StartOffset:sel.EndOffset]))
}

func TestFromTextRejections(t *testing.T) {
	m := message("hello world")

	_, err := FromText("n1", m, "he")
	assert.True(t, errors.Is(err, ErrSelectionTooShort))
	_, err = FromText("n1", m, "   ")
	assert.True(t, errors.Is(err, ErrSelectionTooShort))
	_, err = FromText("n1", m, "goodbye")
	assert.True(t, errors.Is(err, ErrSelectionNotFound))
	_, err = FromText("", m, "hello")
	assert.Error(t, err)
}

func TestFromRange(t *testing.T) {
	m := message("héllo wörld")

	sel, err := FromRange("n1", m, 6, 11)
	require.NoError(t, err)
	assert.Equal(t, "wörld", sel.Text)

	_, err = FromRange("n1", m, 6, 20)
	assert.True(t, errors.Is(err, ErrSelectionNotFound))
	_, err = FromRange("n1", m, 0, 2)
	assert.True(t, errors.Is(err, ErrSelectionTooShort))
}

func TestSegments(t *testing.T) {
	content := "alpha beta gamma delta"
	bp := func(id string, start, end int) conversation.BranchPoint {
		return conversation.BranchPoint{ID: conversation.BranchPointID(id), StartOffset: start, EndOffset: end}
	}

	segs := Segments(message(content))
	require.Len(t, segs, 1)
	assert.Equal(t, content, segs[0].Text)
	assert.Nil(t, segs[0].BranchPoint)

	segs = Segments(message(content, bp("b2", 11, 16), bp("b1", 0, 5), bp("bad", 30, 40)))
	var texts []string
	for _, s := range segs {
		texts = append(texts, s.Text)
	}
	assert.Equal(t, []string{"alpha", " beta ", "gamma", " delta"}, texts)
	assert.Equal(t, conversation.BranchPointID("b1"), segs[0].BranchPoint.ID)
	assert.Nil(t, segs[1].BranchPoint)
	assert.Equal(t, conversation.BranchPointID("b2"), segs[2].BranchPoint.ID)
	assert.Equal(t, content, strings.Join(texts, ""))

	segs = Segments(message(content, bp("a", 0, 10), bp("b", 6, 16)))
	texts = nil
	for _, s := range segs {
		texts = append(texts, s.Text)
	}
	assert.Equal(t, []string{"alpha beta", " gamma", " delta"}, texts)
}
