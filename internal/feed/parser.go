// Package feed parses RSS 2.0 and Atom payloads into generic items that
// keep every child element together with its namespace, so providers can
// resolve both plain tags ("title") and namespaced tags ("job_listing:company").
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// ParseError indicates a malformed or unrecognized feed payload. The feed
// is skipped for the run; the orchestrator logs the message.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse feed: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Element is one child element of a feed item, namespace preserved.
type Element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Inner   string     `xml:",innerxml"`
}

// Value returns the element's text content, falling back to its inner
// markup for elements whose body is nested HTML (Atom content divs).
func (e Element) Value() string {
	if t := strings.TrimSpace(e.Text); t != "" {
		return t
	}
	return strings.TrimSpace(e.Inner)
}

// Item is one feed entry with all original child elements.
type Item struct {
	Children []Element `xml:",any"`
}

// Feed is a parsed feed document.
type Feed struct {
	Title string
	Link  string
	Items []Item
}

// Prefixes of namespaces commonly seen in job feeds, mapped to their
// declared URIs so "ns:tag" lookups work whether or not the document
// declared the namespace.
var knownNamespaces = map[string]string{
	"content":     "http://purl.org/rss/1.0/modules/content/",
	"dc":          "http://purl.org/dc/elements/1.1/",
	"atom":        "http://www.w3.org/2005/Atom",
	"media":       "http://search.yahoo.com/mrss/",
	"georss":      "http://www.georss.org/georss",
	"job_listing": "https://wpjobmanager.com/xml/job_listing/",
}

func namespaceMatches(space, prefix string) bool {
	if space == prefix {
		return true
	}
	if uri, ok := knownNamespaces[prefix]; ok && space == uri {
		return true
	}
	// Undeclared or vendor-specific namespaces: accept a URI that embeds
	// the prefix, e.g. "https://example.com/ns/job_listing".
	return strings.Contains(strings.ToLower(space), strings.ToLower(prefix))
}

// Get resolves a source tag name against the item's children. Plain names
// match the first child with that local name; "ns:tag" names additionally
// require the child's namespace to match the prefix.
func (it Item) Get(name string) string {
	prefix, local := "", name
	if i := strings.Index(name, ":"); i >= 0 {
		prefix, local = name[:i], name[i+1:]
	}
	for _, c := range it.Children {
		if !strings.EqualFold(c.XMLName.Local, local) {
			continue
		}
		if prefix != "" && !namespaceMatches(c.XMLName.Space, prefix) {
			continue
		}
		if v := c.Value(); v != "" {
			return v
		}
	}
	return ""
}

// GetAttr returns the named attribute of the first matching child element,
// used for Atom-style <link href="..."/> tags.
func (it Item) GetAttr(name, attr string) string {
	for _, c := range it.Children {
		if !strings.EqualFold(c.XMLName.Local, name) {
			continue
		}
		for _, a := range c.Attrs {
			if strings.EqualFold(a.Name.Local, attr) && a.Value != "" {
				return a.Value
			}
		}
	}
	return ""
}

type rssDoc struct {
	Channel struct {
		Title string `xml:"title"`
		Link  string `xml:"link"`
		Items []Item `xml:"item"`
	} `xml:"channel"`
}

type atomDoc struct {
	Title   string `xml:"title"`
	Links   []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
	Entries []Item `xml:"entry"`
}

// Parse decodes an RSS 2.0 or Atom payload. A payload whose root element is
// neither <rss> nor <feed>, or that fails XML decoding, yields a ParseError.
func Parse(payload []byte) (*Feed, error) {
	root, err := rootElement(payload)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	switch root {
	case "rss":
		var doc rssDoc
		if err := xml.Unmarshal(payload, &doc); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("decode rss: %w", err)}
		}
		return &Feed{Title: doc.Channel.Title, Link: doc.Channel.Link, Items: doc.Channel.Items}, nil
	case "feed":
		var doc atomDoc
		if err := xml.Unmarshal(payload, &doc); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("decode atom: %w", err)}
		}
		link := ""
		for _, l := range doc.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		return &Feed{Title: doc.Title, Link: link, Items: doc.Entries}, nil
	default:
		return nil, &ParseError{Err: fmt.Errorf("unrecognized root element <%s>", root)}
	}
}

func rootElement(payload []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("read root element: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// Date layouts seen across job feeds, tried in order.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate parses a feed date in any of the supported layouts. The zero
// time is returned for empty or unparsable values; the filter pipeline
// deliberately treats those candidates as new enough to pass.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
