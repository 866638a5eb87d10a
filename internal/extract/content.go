package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// mainSelector lists semantic containers that usually hold the article body.
const mainSelector = `main, article, [role="main"], .main-content, #main-content, .post-content, .article-content, .entry-content`

// Scorer ranks a candidate content region. Higher wins.
type Scorer func(*goquery.Selection) int

// TextLengthScorer scores a region by the character count of its stripped text.
func TextLengthScorer(s *goquery.Selection) int {
	return utf8.RuneCountInString(strings.Join(textNodes(s), ""))
}

// SelectContent returns the best main-content candidate, or <body> when the
// page has none. Ties keep the earliest candidate in document order.
// It returns nil when the document has neither.
func SelectContent(doc *goquery.Document, score Scorer) *goquery.Selection {
	if score == nil {
		score = TextLengthScorer
	}
	candidates := doc.Find(mainSelector)
	if candidates.Length() > 0 {
		var best *goquery.Selection
		var bestScore int
		candidates.Each(func(i int, s *goquery.Selection) {
			if v := score(s); i == 0 || v > bestScore {
				best, bestScore = s, v
			}
		})
		return best
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return nil
	}
	return body
}
