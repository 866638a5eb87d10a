package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxChars caps the cleaned text of a single page, in characters.
	DefaultMaxChars = 10_000
	// TruncationMarker is appended when a page exceeds its cap.
	TruncationMarker = "...[Content truncated]"
	// MinChunkChars is the shortest chunk kept by Normalize. Shorter
	// fragments are menu labels, bylines, and other noise.
	MinChunkChars = 16
)

// Document is a simplified representation of extracted page content.
type Document struct {
	URL   string
	Title string
	Text  string
}

func fromDocument(doc *goquery.Document, score Scorer, maxChars int) Document {
	title := strings.TrimSpace(doc.Find("head title").First().Text())
	Clean(doc)
	root := SelectContent(doc, score)
	if root == nil {
		return Document{Title: title}
	}
	text := Normalize(Text(root))
	return Document{Title: title, Text: Truncate(text, maxChars, TruncationMarker)}
}

// Text joins every stripped, non-empty text node under sel with newlines.
func Text(sel *goquery.Selection) string {
	return strings.Join(textNodes(sel), "\n")
}

func textNodes(sel *goquery.Selection) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				out = append(out, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

var (
	blankRunRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe = regexp.MustCompile(`[ \t]+`)
)

// Normalize composes s to NFC, splits each line on double spaces into
// chunks, drops chunks shorter than MinChunkChars, and collapses blank lines
// and space runs.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		for _, chunk := range strings.Split(strings.TrimSpace(line), "  ") {
			chunk = strings.TrimSpace(chunk)
			if utf8.RuneCountInString(chunk) >= MinChunkChars {
				kept = append(kept, chunk)
			}
		}
	}
	out := strings.Join(kept, "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return spaceRunRe.ReplaceAllString(out, " ")
}

// Truncate cuts s to max characters and appends marker when it was longer.
// It never splits a UTF-8 rune. max <= 0 disables the cap.
func Truncate(s string, max int, marker string) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + marker
		}
		n++
	}
	return s
}
