// Package content converts source rich-text markup into destination-ready
// plain text with byte-offset facets.
package content

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rivo/uniseg"
	"golang.org/x/net/html"

	"github.com/blacktop/skymirror/internal/mirror"
)

// DefaultMaxGraphemes is the destination's post-length ceiling. The platform
// counts grapheme clusters, not runes or bytes.
const DefaultMaxGraphemes = 300

// Transformer extracts plain text and facets from source markup. Denylist
// entries are removed as raw substrings before parsing.
type Transformer struct {
	MaxGraphemes int
	Denylist     []string
}

// NewTransformer constructs a Transformer with the default length ceiling.
func NewTransformer(denylist ...string) *Transformer {
	return &Transformer{MaxGraphemes: DefaultMaxGraphemes, Denylist: denylist}
}

// Transform converts markup into RichContent. Empty or over-length results
// fail with ContentRejected; truncation is never performed because it would
// invalidate facet byte offsets and publish a misleading artifact.
func (t *Transformer) Transform(markup string) (mirror.RichContent, error) {
	for _, pattern := range t.Denylist {
		if pattern != "" {
			markup = strings.ReplaceAll(markup, pattern, "")
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return mirror.RichContent{}, fmt.Errorf("parse markup: %w", err)
	}

	ex := &extractor{}
	for _, node := range doc.Find("body").Nodes {
		ex.walkChildren(node, false)
	}

	text, facets := trim(ex.buf.String(), ex.facets)

	if text == "" {
		return mirror.RichContent{}, mirror.ContentRejected{Reason: "empty text"}
	}

	max := t.MaxGraphemes
	if max <= 0 {
		max = DefaultMaxGraphemes
	}
	if count := uniseg.GraphemeClusterCount(text); count > max {
		return mirror.RichContent{}, mirror.ContentRejected{Reason: fmt.Sprintf("text is %d graphemes, ceiling is %d", count, max)}
	}

	return mirror.RichContent{Text: text, Facets: facets}, nil
}

// trim strips surrounding whitespace and shifts facet offsets to match,
// dropping any facet the shift pushes out of bounds.
func trim(text string, facets []mirror.Facet) (string, []mirror.Facet) {
	trimmed := strings.TrimRight(text, " \t\n")
	shifted := strings.TrimLeft(trimmed, " \t\n")
	shift := len(trimmed) - len(shifted)

	kept := make([]mirror.Facet, 0, len(facets))
	for _, f := range facets {
		f.ByteStart -= shift
		f.ByteEnd -= shift
		if f.ByteStart < 0 || f.ByteEnd > len(shifted) || f.ByteEnd <= f.ByteStart {
			continue
		}
		kept = append(kept, f)
	}
	return shifted, kept
}

type extractor struct {
	buf    bytes.Buffer
	facets []mirror.Facet
}

func (e *extractor) walk(n *html.Node, inAnchor bool) {
	switch n.Type {
	case html.TextNode:
		e.buf.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "br":
			e.buf.WriteString("\n")
			return
		case "p":
			if e.buf.Len() > 0 {
				e.buf.WriteString("\n\n")
			}
		case "span":
			// Mastodon wraps shortened link parts in marker spans: the
			// invisible parts are dropped, the ellipsized part gets its
			// ellipsis back.
			class := attr(n, "class")
			if hasClass(class, "invisible") {
				return
			}
			if hasClass(class, "ellipsis") {
				e.walkChildren(n, inAnchor)
				e.buf.WriteString("…")
				return
			}
		case "a":
			if !inAnchor {
				e.anchor(n)
				return
			}
		}
		e.walkChildren(n, inAnchor)
	}
}

func (e *extractor) walkChildren(n *html.Node, inAnchor bool) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		e.walk(child, inAnchor)
	}
}

// anchor emits the anchor's visible text and records a facet over it.
// Anchors never nest after parsing, so facets come out ordered and disjoint.
func (e *extractor) anchor(n *html.Node) {
	start := e.buf.Len()
	e.walkChildren(n, true)
	end := e.buf.Len()
	if end <= start {
		return
	}

	href := attr(n, "href")
	class := attr(n, "class")
	label := e.buf.String()[start:end]

	facet := mirror.Facet{ByteStart: start, ByteEnd: end}
	// Hashtag check comes first: the source marks hashtags with both the
	// "mention" and "hashtag" classes.
	switch {
	case hasClass(class, "hashtag"):
		facet.Tag = strings.TrimPrefix(strings.TrimSpace(label), "#")
	case hasClass(class, "mention"):
		facet.Mention = mentionHandle(label, href)
		facet.Link = href
	default:
		if href == "" {
			return
		}
		facet.Link = href
	}
	e.facets = append(e.facets, facet)
}

// mentionHandle derives a destination-style handle from a mention's label
// and profile URL, e.g. "@alice" on host "example.social" becomes
// "alice.example.social". Whether it resolves is the publisher's problem.
func mentionHandle(label, href string) string {
	name := strings.TrimPrefix(strings.TrimSpace(label), "@")
	if u, err := url.Parse(href); err == nil && u.Host != "" {
		return name + "." + u.Host
	}
	return name
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(class, name string) bool {
	for _, c := range strings.Fields(class) {
		if c == name {
			return true
		}
	}
	return false
}
