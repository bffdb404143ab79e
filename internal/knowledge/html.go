package knowledge

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reTag      = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
)

// blockElements end a line when flattened.
const blockElements = "p, div, li, tr, h1, h2, h3, h4, h5, h6, table, ul, ol"

// FlattenHTML turns an HTML answer into plain text. Strings without markup
// are only trimmed.
func FlattenHTML(s string) string {
	s = strings.TrimSpace(s)
	if !reTag.MatchString(s) {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").PrependHtml("- ")
	doc.Find(blockElements).AppendHtml("\n")

	text := doc.Text()
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = reNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
