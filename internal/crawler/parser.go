package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts image and anchor references from HTML content.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. Attribute values come back entity-decoded
type Parser struct {
	// baseURL resolves relative references. It starts as the document URL and
	// is replaced by the first <base href> encountered.
	baseURL *url.URL

	baseSet bool
}

// ParseResult contains the references extracted from an HTML page.
// All URLs are absolute; nothing is filtered by scheme or host here.
type ParseResult struct {
	// Title is the page title from <title> tag.
	Title string

	// Images contains <img src> references in document order.
	Images []string

	// Icons contains <link rel="...icon..." href> references in document order.
	Icons []string

	// Links contains <a href> references in document order.
	Links []string
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts all relevant references.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Images: make([]string, 0),
		Icons:  make([]string, 0),
		Links:  make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "base":
		if href, ok := getAttr(n, "href"); ok && !p.baseSet {
			if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
				p.baseURL = p.baseURL.ResolveReference(u)
				p.baseSet = true
			}
		}

	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if href, ok := getAttr(n, "href"); ok {
			if resolved := p.resolveURL(href); resolved != "" {
				result.Links = append(result.Links, resolved)
			}
		}

	case "img":
		if src, ok := getAttr(n, "src"); ok {
			if resolved := p.resolveURL(src); resolved != "" {
				result.Images = append(result.Images, resolved)
			}
		}

	case "link":
		rel, _ := getAttr(n, "rel")
		if !isIconRel(rel) {
			return
		}
		if href, ok := getAttr(n, "href"); ok {
			if resolved := p.resolveURL(href); resolved != "" {
				result.Icons = append(result.Icons, resolved)
			}
		}
	}
}

// isIconRel reports whether a rel attribute names an icon, e.g. "icon",
// "shortcut icon", "apple-touch-icon" or "mask-icon".
func isIconRel(rel string) bool {
	for _, token := range strings.Fields(rel) {
		if strings.Contains(strings.ToLower(token), "icon") {
			return true
		}
	}
	return false
}

// resolveURL resolves a reference against the base URL.
// It returns an empty string when the reference cannot be parsed.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return p.baseURL.ResolveReference(u).String()
}

// getAttr retrieves an attribute value from an HTML node.
// The boolean reports whether the attribute is present at all.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
