package kindle

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const (
	librarySelector   = ".kp-notebook-library-each-book"
	backSelector      = ".kp-notebook-back-to-library"
	libraryBookClass  = "kp-notebook-library-each-book"
	searchableClass   = "kp-notebook-searchable"
	highlightClass    = "kp-notebook-highlight"
	highlightTextID   = "highlight"
	highlightAltClass = "a-size-base-plus"
)

// ParseLibrary reads the book list of a notebook page. At most limit books
// are returned; a non-positive limit means DefaultBookLimit.
func ParseLibrary(src string, limit int) ([]Book, error) {
	if limit <= 0 {
		limit = DefaultBookLimit
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}

	var books []Book
	for i, el := range findAll(doc, classed(libraryBookClass)) {
		if i >= limit {
			break
		}
		fields := findAll(el, classed(searchableClass))
		b := Book{
			ID:         attr(el, "id"),
			Title:      UnknownField,
			Author:     UnknownField,
			Highlights: []Highlight{},
		}
		if b.ID == "" {
			b.ID = "book-" + strconv.Itoa(i)
		}
		if len(fields) > 0 {
			b.Title = orUnknown(textContent(fields[0]))
		}
		if len(fields) > 1 {
			b.Author = orUnknown(textContent(fields[1]))
		}
		if img := findFirst(el, tagged("img")); img != nil {
			b.Cover = attr(img, "src")
		}
		books = append(books, b)
	}
	return books, nil
}

// ParseHighlights reads the highlights of the book open on a notebook page.
// Empty highlights are dropped.
func ParseHighlights(src string) ([]Highlight, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}

	out := []Highlight{}
	for _, el := range findAll(doc, classed(highlightClass)) {
		t := findFirst(el, func(n *html.Node) bool { return attr(n, "id") == highlightTextID })
		if t == nil {
			t = findFirst(el, func(n *html.Node) bool {
				return n.Data == "span" && classed(highlightAltClass)(n)
			})
		}
		if t == nil {
			continue
		}
		if text := textContent(t); text != "" {
			out = append(out, Highlight{Text: text})
		}
	}
	return out, nil
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownField
	}
	return s
}

func classed(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && slices.Contains(strings.Fields(attr(n, "class")), class)
	}
}

func tagged(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

// findAll returns the descendants of n matching match, in document order.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if f := findFirst(c, match); f != nil {
			return f
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent is the trimmed concatenation of every text node under n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		if p.Type == html.TextNode {
			sb.WriteString(p.Data)
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
