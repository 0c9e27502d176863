package wxr

import (
	"strings"
	"testing"
	"time"
)

const sampleExport = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
	xmlns:content="http://purl.org/rss/1.0/modules/content/"
	xmlns:excerpt="http://wordpress.org/export/1.2/excerpt/"
	xmlns:dc="http://purl.org/dc/elements/1.1/"
	xmlns:wp="http://wordpress.org/export/1.2/">
<channel>
	<title>Example Blog</title>
	<item>
		<title>Hello World</title>
		<link>https://b.com/p1</link>
		<dc:creator><![CDATA[ann]]></dc:creator>
		<content:encoded><![CDATA[<p>First &amp; finest post.</p><script>alert(1)</script>]]></content:encoded>
		<excerpt:encoded><![CDATA[<em>short</em> intro]]></excerpt:encoded>
		<wp:post_id>11</wp:post_id>
		<wp:post_date_gmt>2024-03-01 09:30:00</wp:post_date_gmt>
		<wp:status>publish</wp:status>
		<wp:post_type>post</wp:post_type>
		<category domain="category" nicename="tech"><![CDATA[Tech]]></category>
		<category domain="post_tag" nicename="golang"><![CDATA[golang]]></category>
		<category domain="series" nicename="x"><![CDATA[ignored]]></category>
	</item>
	<item>
		<title>Some Page</title>
		<link>https://b.com/about</link>
		<wp:post_id>12</wp:post_id>
		<wp:post_date_gmt>0000-00-00 00:00:00</wp:post_date_gmt>
		<wp:status>draft</wp:status>
		<wp:post_type>page</wp:post_type>
	</item>
</channel>
</rss>`

func TestParse_NormalizesItems(t *testing.T) {
	records, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	p := records[0]
	if p.URL != "https://b.com/p1" || p.SourceID != 11 || p.Type != "post" {
		t.Fatalf("unexpected identity: %+v", p)
	}
	if p.Title != "Hello World" || p.Author != "ann" {
		t.Fatalf("unexpected metadata: %+v", p)
	}
	if p.Status != "published" {
		t.Fatalf("publish must normalize to published, got %q", p.Status)
	}
	if !strings.Contains(p.ContentHTML, "<p>") {
		t.Fatalf("HTML body lost: %q", p.ContentHTML)
	}
	if p.ContentText != "First & finest post." {
		t.Fatalf("plain text wrong: %q", p.ContentText)
	}
	if p.Excerpt != "short intro" {
		t.Fatalf("excerpt wrong: %q", p.Excerpt)
	}
	want := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	if p.PublishedAt == nil || !p.PublishedAt.Equal(want) {
		t.Fatalf("publish date wrong: %v", p.PublishedAt)
	}
	if len(p.Categories) != 2 {
		t.Fatalf("expected 2 category refs (series dropped), got %+v", p.Categories)
	}
	if p.Categories[0] != (CategoryRef{Name: "Tech", Kind: KindCategory}) {
		t.Fatalf("unexpected first ref: %+v", p.Categories[0])
	}
	if p.Categories[1] != (CategoryRef{Name: "golang", Kind: KindTag}) {
		t.Fatalf("unexpected second ref: %+v", p.Categories[1])
	}

	page := records[1]
	if page.Type != "page" || page.Status != "draft" {
		t.Fatalf("unexpected page record: %+v", page)
	}
	if page.PublishedAt != nil {
		t.Fatalf("zero WordPress date must map to nil, got %v", page.PublishedAt)
	}
}

func TestParse_RejectsNonXML(t *testing.T) {
	if _, err := Parse(strings.NewReader("not xml at all")); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"publish":   "published",
		"Published": "published",
		"draft":     "draft",
		"pending":   "draft",
		"private":   "draft",
		"":          "draft",
	}
	for in, want := range cases {
		if got := normalizeStatus(in); got != want {
			t.Fatalf("normalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
