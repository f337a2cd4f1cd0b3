package raster

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

type block struct {
	tag  string
	text string
}

var skipTags = map[string]bool{"head": true, "style": true, "script": true, "title": true}

// parseBlocks flattens a document into text blocks. Loose text outside any
// block element becomes a paragraph.
func parseBlocks(src string) ([]block, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var out []block
	var loose strings.Builder
	flushLoose := func() {
		if t := collapse(loose.String()); t != "" {
			out = append(out, block{tag: "p", text: t})
		}
		loose.Reset()
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
			if _, ok := styles[n.Data]; ok {
				flushLoose()
				if t := collapse(textContent(n)); t != "" {
					out = append(out, block{tag: n.Data, text: t})
				}
				return
			}
			if n.Data == "br" {
				loose.WriteString(" ")
			}
		case html.TextNode:
			loose.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.Data == "div" || n.Data == "section" || n.Data == "main") {
			flushLoose()
		}
	}
	walk(doc)
	flushLoose()
	return out, nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
