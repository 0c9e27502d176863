// Package wxr parses WXR-style blog exports (WordPress eXtended RSS)
// into normalized post records, the input shape consumed by the import
// pipeline. Parsing is deliberately lenient: missing optional fields
// yield zero values and validation is left to the importer, which
// decides what counts as malformed.
package wxr

import (
	"encoding/xml"
	"io"
	"strings"
	"time"
)

// Category kinds attached to a record.
const (
	KindCategory = "category"
	KindTag      = "tag"
)

// CategoryRef is a category or tag attached to a record in the export.
type CategoryRef struct {
	Name string
	Kind string
}

// Record is one normalized content item from the export. Type carries
// the source item type ("post", "page", "attachment", ...); the
// importer keeps only "post" items.
type Record struct {
	URL         string
	SourceID    int64
	Type        string
	Title       string
	ContentHTML string
	ContentText string
	Excerpt     string
	Author      string
	Status      string
	PublishedAt *time.Time
	Categories  []CategoryRef
}

type xmlCategory struct {
	Domain string `xml:"domain,attr"`
	Value  string `xml:",chardata"`
}

type xmlItem struct {
	Title      string        `xml:"title"`
	Link       string        `xml:"link"`
	Creator    string        `xml:"creator"`
	Content    string        `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PostID     int64         `xml:"post_id"`
	PostDate   string        `xml:"post_date_gmt"`
	Status     string        `xml:"status"`
	PostType   string        `xml:"post_type"`
	Categories []xmlCategory `xml:"category"`

	// excerpt:encoded shares the local name "encoded" with
	// content:encoded; it lands here (its namespace varies across WXR
	// versions) and is picked out by splitEncoded.
	Other []xmlEncoded `xml:",any"`
}

type xmlEncoded struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlExport struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []xmlItem `xml:"item"`
	} `xml:"channel"`
}

// Parse decodes a WXR export into normalized records, one per channel
// item, in document order.
func Parse(r io.Reader) ([]Record, error) {
	var doc xmlExport
	dec := xml.NewDecoder(r)
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		records = append(records, normalizeItem(it))
	}
	return records, nil
}

func normalizeItem(it xmlItem) Record {
	rec := Record{
		URL:      strings.TrimSpace(it.Link),
		SourceID: it.PostID,
		Type:     strings.TrimSpace(it.PostType),
		Title:    strings.TrimSpace(it.Title),
		Author:   strings.TrimSpace(it.Creator),
		Status:   normalizeStatus(it.Status),
	}

	content, excerpt := splitEncoded(it)
	rec.ContentHTML = content
	rec.ContentText = HTMLToText(content)
	rec.Excerpt = strings.TrimSpace(HTMLToText(excerpt))

	if ts := parseGMT(it.PostDate); ts != nil {
		rec.PublishedAt = ts
	}

	for _, c := range it.Categories {
		name := strings.TrimSpace(c.Value)
		if name == "" {
			continue
		}
		switch c.Domain {
		case "category":
			rec.Categories = append(rec.Categories, CategoryRef{Name: name, Kind: KindCategory})
		case "post_tag", "tag":
			rec.Categories = append(rec.Categories, CategoryRef{Name: name, Kind: KindTag})
		}
	}
	return rec
}

// splitEncoded returns the HTML body and the excerpt of an item.
// content:encoded is matched by namespace during decoding; the excerpt
// is fished out of the unmatched elements because its namespace carries
// the WXR version ("http://wordpress.org/export/1.2/excerpt/").
func splitEncoded(it xmlItem) (content, excerpt string) {
	content = it.Content
	for _, e := range it.Other {
		if e.XMLName.Local == "encoded" && strings.Contains(e.XMLName.Space, "/excerpt/") {
			excerpt = e.Value
		}
	}
	return content, excerpt
}

// normalizeStatus collapses source publication states to the two the
// pipeline stores: only "publish"/"published" count as published,
// everything else (draft, pending, private, future, ...) is a draft.
func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "publish", "published":
		return "published"
	default:
		return "draft"
	}
}

// parseGMT parses wp:post_date_gmt ("2006-01-02 15:04:05", UTC).
// WordPress writes "0000-00-00 00:00:00" for drafts without a date;
// that and any unparsable value yield nil.
func parseGMT(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
