package summary

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
)

// PlainText strips markdown markup so that emphasis markers, link targets and
// code fences do not leak into the extracted keywords. If the markdown cannot
// be rendered the input is returned unchanged.
func PlainText(markdown string) string {
	if !strings.ContainsAny(markdown, "*_`#[]>~|") {
		return markdown
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return markdown
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return markdown
	}
	return doc.Text()
}
