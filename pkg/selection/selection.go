// Package selection builds the TextSelection values that seed new branches
// and splits messages into plain and branched segments for display.
//
// Offsets are rune indices into the message content as it is displayed.
// Renderers show message content verbatim, so that is the raw content.
package selection

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-playground/validator"
	"github.com/pkg/errors"
)

// MinLength is the shortest selection, in runes, that can seed a branch.
const MinLength = 3

var (
	ErrSelectionTooShort = errors.New("selection too short")
	ErrSelectionNotFound = errors.New("selection not found in message")
)

var validate = validator.New()

// FromText selects the first occurrence of text inside msg. Surrounding
// whitespace is ignored, as a browser selection would be trimmed.
func FromText(nodeID conversation.NodeID, msg conversation.Message, text string) (conversation.TextSelection, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinLength {
		return conversation.TextSelection{}, errors.Wrapf(ErrSelectionTooShort, "%q has fewer than %d characters", text, MinLength)
	}
	i := strings.Index(msg.Content, text)
	if i < 0 {
		return conversation.TextSelection{}, errors.Wrapf(ErrSelectionNotFound, "%q in message %s", text, msg.ID)
	}
	start := utf8.RuneCountInString(msg.Content[:i])
	sel := conversation.TextSelection{
		Text:        text,
		StartOffset: start,
		EndOffset:   start + utf8.RuneCountInString(text),
		MessageID:   msg.ID,
		NodeID:      nodeID,
	}
	return sel, Validate(sel)
}

// FromRange selects the runes [start, end) of msg.
func FromRange(nodeID conversation.NodeID, msg conversation.Message, start, end int) (conversation.TextSelection, error) {
	runes := []rune(msg.Content)
	if start < 0 || end > len(runes) || start >= end {
		return conversation.TextSelection{}, errors.Wrapf(ErrSelectionNotFound, "range [%d,%d) in message of length %d", start, end, len(runes))
	}
	sel := conversation.TextSelection{
		Text:        string(runes[start:end]),
		StartOffset: start,
		EndOffset:   end,
		MessageID:   msg.ID,
		NodeID:      nodeID,
	}
	if strings.TrimSpace(sel.Text) == "" || utf8.RuneCountInString(sel.Text) < MinLength {
		return conversation.TextSelection{}, errors.Wrapf(ErrSelectionTooShort, "range [%d,%d)", start, end)
	}
	return sel, Validate(sel)
}

// Validate checks the struct constraints of a selection.
func Validate(sel conversation.TextSelection) error {
	if err := validate.Struct(sel); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok && utf8.RuneCountInString(sel.Text) < MinLength {
			return errors.Wrap(ErrSelectionTooShort, err.Error())
		}
		return errors.Wrap(err, "invalid selection")
	}
	return nil
}

// Segment is a run of message text. BranchPoint is set when the run was the
// selection of a branch.
type Segment struct {
	Text        string
	BranchPoint *conversation.BranchPoint
}

// Segments splits a message around its branch points, in offset order.
// Overlapping branch points are clipped to the part not already covered and
// out of range ones are ignored.
func Segments(msg conversation.Message) []Segment {
	runes := []rune(msg.Content)
	if len(msg.BranchPoints) == 0 {
		return []Segment{{Text: msg.Content}}
	}

	bps := make([]conversation.BranchPoint, len(msg.BranchPoints))
	copy(bps, msg.BranchPoints)
	sort.SliceStable(bps, func(i, j int) bool {
		return bps[i].StartOffset < bps[j].StartOffset
	})

	var ret []Segment
	last := 0
	for i := range bps {
		bp := &bps[i]
		start, end := bp.StartOffset, bp.EndOffset
		if start < last {
			start = last
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			continue
		}
		if start > last {
			ret = append(ret, Segment{Text: string(runes[last:start])})
		}
		ret = append(ret, Segment{Text: string(runes[start:end]), BranchPoint: bp})
		last = end
	}
	if last < len(runes) {
		ret = append(ret, Segment{Text: string(runes[last:])})
	}
	return ret
}
