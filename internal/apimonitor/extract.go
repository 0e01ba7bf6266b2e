package apimonitor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"telcosync/internal/textutil"
)

const strippedElements = "script, style, noscript, nav, header, footer, svg, iframe"

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true, "dd": true,
	"div": true, "dl": true, "dt": true, "figcaption": true, "figure": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "hr": true, "li": true, "main": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tbody": true, "td": true, "th": true,
	"thead": true, "tr": true, "ul": true,
}

// Extract returns the normalised text of the element matched by selector.
// The whole body is used when selector is empty or matches nothing. Block
// elements become line breaks and whitespace inside each line is collapsed.
func Extract(r io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(strippedElements).Remove()

	var root *goquery.Selection
	if selector = strings.TrimSpace(selector); selector != "" {
		root = doc.Find(selector).First()
	}
	if root == nil || root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	walk(&b, root)

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = textutil.CollapseWhitespace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}

func walk(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch {
		case name == "#text":
			b.WriteString(node.Text())
		case name == "#comment":
		case blockElements[name]:
			b.WriteByte('\n')
			walk(b, node)
			b.WriteByte('\n')
		default:
			walk(b, node)
		}
	})
}

// Hash fingerprints extracted page text.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
