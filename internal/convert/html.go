package convert

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
)

var (
	blankRuns    = regexp.MustCompile(`\n{2,}`)
	trailingWS   = regexp.MustCompile(`[ \t]+\n`)
	htmlBodyKeys = []string{"body", "content", "text", "html"}
)

// extractHTML unwraps cell values that hold HTML inside JSON, either as an
// object with one of the usual body keys or as a list of fragments. Anything
// that is not JSON is returned unchanged.
func extractHTML(cell string) string {
	if cell == "" {
		return ""
	}

	var data any
	if err := json.Unmarshal([]byte(cell), &data); err != nil {
		return cell
	}

	switch v := data.(type) {
	case map[string]any:
		for _, key := range htmlBodyKeys {
			if val, ok := v[key]; ok {
				return stringify(val)
			}
		}
		return stringify(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, "\n")
	default:
		return stringify(v)
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// cleanHTML strips tags and returns the text nodes one per line, with runs of
// blank lines collapsed.
func cleanHTML(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return strings.TrimSpace(src)
	}
	doc.Find("script, style").Remove()

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}

	text := strings.Join(parts, "\n")
	text = trailingWS.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(strings.TrimSpace(text), "\n\n")
	return html.UnescapeString(text)
}

func collectText(n *nethtml.Node, parts *[]string) {
	if n.Type == nethtml.TextNode {
		*parts = append(*parts, n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
