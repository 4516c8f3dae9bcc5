package feed

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Heading is one table-of-contents entry.
type Heading struct {
	ID    string
	Text  string
	Level int // 2 or 3
}

// TableOfContents assigns ids heading-0, heading-1, … to every h2 and h3 in
// content, in document order, and returns the rewritten HTML together with
// the entries. Existing ids on those headings are replaced.
func TableOfContents(content string) (string, []Heading, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return "", nil, fmt.Errorf("parse content: %w", err)
	}

	var headings []Heading
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.H2 || n.DataAtom == atom.H3) {
			id := fmt.Sprintf("heading-%d", len(headings))
			setAttr(n, "id", id)
			level := 2
			if n.DataAtom == atom.H3 {
				level = 3
			}
			headings = append(headings, Heading{
				ID:    id,
				Text:  strings.TrimSpace(textContent(n)),
				Level: level,
			})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	var b strings.Builder
	for _, n := range nodes {
		walk(n)
		if err := html.Render(&b, n); err != nil {
			return "", nil, fmt.Errorf("render content: %w", err)
		}
	}
	return b.String(), headings, nil
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
