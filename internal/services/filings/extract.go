package filings

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Section lookup windows, in bytes of extracted text.
const (
	sectionWindow = 8000
	revenueWindow = 6000
)

var revenueTerms = []string{"revenue", "net sales", "total revenue", "income statement"}

// ExtractText converts a filing document to a single line of plain text.
// Script and style content is dropped and whitespace runs collapse to one
// space. Text from adjacent elements is space separated.
func ExtractText(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("failed to parse filing document: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	for _, n := range doc.Nodes {
		collectText(n, &sb)
	}
	return strings.Join(strings.Fields(sb.String()), " "), nil
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// SectionKind classifies a requested section name.
type SectionKind int

const (
	SectionUnknown SectionKind = iota
	SectionRisk
	SectionManagement
	SectionRevenue
)

// KindOf matches section names the same way the extractor does: any name
// containing "risk", "management"/"discussion" or "revenue".
func KindOf(section string) SectionKind {
	s := strings.ToLower(section)
	switch {
	case strings.Contains(s, "risk"):
		return SectionRisk
	case strings.Contains(s, "management"), strings.Contains(s, "discussion"):
		return SectionManagement
	case strings.Contains(s, "revenue"):
		return SectionRevenue
	default:
		return SectionUnknown
	}
}

// ExtractSection slices the part of text relevant to section. Matching is
// case-insensitive. An empty result means no marker was found.
func ExtractSection(text, section string) string {
	lower := asciiLower(text)

	switch KindOf(section) {
	case SectionRisk:
		return between(text, lower, "item 1a", "item 1b", "risk factors")
	case SectionManagement:
		return between(text, lower, "item 7", "item 8", "management discussion")
	case SectionRevenue:
		for _, term := range revenueTerms {
			if i := strings.Index(lower, term); i != -1 {
				return window(text, i, revenueWindow)
			}
		}
	}
	return ""
}

// between returns text from start up to end, or sectionWindow bytes when
// end is missing. When start is missing the alternative marker opens a
// fixed window instead.
func between(text, lower, start, end, alt string) string {
	i := strings.Index(lower, start)
	if i == -1 {
		if j := strings.Index(lower, alt); j != -1 {
			return window(text, j, sectionWindow)
		}
		return ""
	}
	if k := strings.Index(lower[i:], end); k != -1 {
		return text[i : i+k]
	}
	return window(text, i, sectionWindow)
}

// asciiLower folds only A-Z so byte offsets stay aligned with text.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func window(text string, from, size int) string {
	to := from + size
	if to > len(text) {
		to = len(text)
	}
	return strings.ToValidUTF8(text[from:to], "")
}
