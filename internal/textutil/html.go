package textutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLToText strips markup and collapses whitespace. Block elements become
// paragraph breaks. Input that does not parse is returned with whitespace
// collapsed.
func HTMLToText(html string) string {
	if !strings.Contains(html, "<") {
		return collapseSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapseSpace(html)
	}
	var b strings.Builder
	writeText(&b, doc.Selection)
	var paragraphs []string
	for _, block := range strings.Split(b.String(), "\n\n") {
		if text := collapseSpace(block); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// FirstImage returns the src of the first <img> element, if any.
func FirstImage(html string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "pre": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "figure": true, "figcaption": true,
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		name := goquery.NodeName(child)
		switch name {
		case "#text":
			b.WriteString(child.Text())
			return
		case "script", "style", "noscript", "#comment":
			return
		}
		block := blockElements[name]
		if block {
			b.WriteString("\n\n")
		}
		writeText(b, child)
		if block {
			b.WriteString("\n\n")
		}
	})
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
