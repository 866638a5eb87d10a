package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector matches elements that never carry article content.
const boilerplateSelector = "script, style, footer, nav, header, aside, form, button, input, select, textarea, label, iframe, noscript, .sidebar, .ad, .advertisement, .popup, .modal"

// Clean removes non-content elements from doc in place.
func Clean(doc *goquery.Document) {
	doc.Find(boilerplateSelector).Remove()
	doc.Find("[id], [class], [role], [aria-label]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return isConsentContainer(s)
	}).Remove()
}

// isConsentContainer returns true if the element looks like a cookie/consent banner.
func isConsentContainer(s *goquery.Selection) bool {
	if len(s.Nodes) == 0 {
		return false
	}
	if name := goquery.NodeName(s); name == "html" || name == "body" {
		return false
	}
	for _, attr := range s.Nodes[0].Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && key != "aria-label" && key != "role" {
			continue
		}
		if containsAny(strings.ToLower(attr.Val), []string{"cookie", "consent", "gdpr"}) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
