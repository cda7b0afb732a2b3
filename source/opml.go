package source

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// OPMLOutline is one node of an OPML body. Nodes with an XMLURL are feeds;
// the others are folders.
type OPMLOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	HTMLURL  string        `xml:"htmlUrl,attr"`
	Outlines []OPMLOutline `xml:"outline"`
}

// Name returns the title, falling back to the text attribute.
func (o OPMLOutline) Name() string {
	if o.Title != "" {
		return o.Title
	}
	return o.Text
}

// IsFeed reports whether the outline describes a feed.
func (o OPMLOutline) IsFeed() bool {
	return o.XMLURL != ""
}

type opmlDocument struct {
	XMLName xml.Name      `xml:"opml"`
	Body    []OPMLOutline `xml:"body>outline"`
}

// ParseOPML returns the top-level outlines of an OPML document.
func ParseOPML(doc string) ([]OPMLOutline, error) {
	var d opmlDocument
	if err := xml.NewDecoder(strings.NewReader(doc)).Decode(&d); err != nil {
		return nil, fmt.Errorf("parse opml: %w", err)
	}
	return d.Body, nil
}
