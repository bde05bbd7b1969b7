package codecheck

import (
	"strings"

	"golang.org/x/net/html"
)

// ClosingMarkup is appended to documents the model truncated before </html>.
const ClosingMarkup = "\n\n</body></html>"

// CompleteMarkup appends the closing tags when the document does not end with
// </html>. It reports whether anything was appended.
func CompleteMarkup(doc string) (string, bool) {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(doc)), "</html>") {
		return doc, false
	}
	return doc + ClosingMarkup, true
}

// CheckMarkup rejects output that parses to a document without any content
// elements, which is what plain prose or an empty reply turns into.
func CheckMarkup(doc string) error {
	if strings.TrimSpace(doc) == "" {
		return violation(RuleEmpty, "LLM returned empty content.")
	}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return violation(RuleMarkup, "Generated output could not be parsed as HTML: %v. Return one complete HTML document.", err)
	}
	if countContentElements(root) == 0 {
		return violation(RuleMarkup, "Generated output contains no HTML elements. Return one complete HTML document starting with <!DOCTYPE html>.")
	}
	return nil
}

func countContentElements(n *html.Node) int {
	count := 0
	if n.Type == html.ElementNode {
		switch n.Data {
		case "html", "head", "body":
		default:
			count++
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countContentElements(c)
	}
	return count
}
