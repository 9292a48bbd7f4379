package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// HTMLSummary is what ReadHTMLSummary finds in a report page.
type HTMLSummary struct {
	// Title is the <title> text.
	Title string

	// Headline is the overall coverage line, empty when not found.
	Headline string
}

// ReadHTMLSummary extracts the title and headline coverage from a report's
// index.html. It understands the built-in report (the "summary" block) and
// genhtml output (the first percentage in the header coverage table).
func ReadHTMLSummary(path string) (*HTMLSummary, error) {
	f, err := os.Open(path) //nolint:gosec // path is a report chosen by the opener
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseHTMLSummary(f)
}

// ParseHTMLSummary is ReadHTMLSummary on a reader.
func ParseHTMLSummary(r io.Reader) (*HTMLSummary, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	s := &HTMLSummary{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "title" && s.Title == "":
				s.Title = normalizeSpace(textOf(n))
			case s.Headline == "" && hasClass(n, "summary"):
				s.Headline = normalizeSpace(textOf(n))
			case s.Headline == "" && n.Data == "td" && strings.HasPrefix(getAttr(n, "class"), "headerCovTableEntry"):
				if text := normalizeSpace(textOf(n)); strings.Contains(text, "%") {
					s.Headline = "Line coverage: " + text
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return s, nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// normalizeSpace collapses runs of whitespace. strings.Fields also splits
// on the no-break spaces genhtml puts before the percent sign.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
