package feed

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func parseEntries(t *testing.T, source Source, data string) []Entry {
	t.Helper()

	parser := NewParser()
	parser.now = func() time.Time { return time.Date(2025, 2, 14, 12, 0, 0, 0, time.FixedZone("CST", 8*3600)) }

	parsed, err := parser.Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return slices.Collect(parser.Normalize(source, parsed))
}

func TestNormalizeRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>V2EX</title>
    <link>https://www.v2ex.com</link>
    <item>
      <title>Learning Python</title>
      <link>https://www.v2ex.com/t/1</link>
      <description>Python tips</description>
      <guid>https://www.v2ex.com/t/1#guid</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Unrelated</title>
      <link>https://www.v2ex.com/t/2</link>
      <description>Nothing here</description>
      <pubDate>Mon, 03 Jul 2023 11:00:00 +0800</pubDate>
    </item>
  </channel>
</rss>`

	entries := parseEntries(t, SourceV2EX, rssData)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Title != "Learning Python" {
		t.Errorf("Expected title 'Learning Python', got '%s'", first.Title)
	}
	if first.Link != "https://www.v2ex.com/t/1" {
		t.Errorf("Expected link 'https://www.v2ex.com/t/1', got '%s'", first.Link)
	}
	if first.UID != "https://www.v2ex.com/t/1#guid" {
		t.Errorf("Expected uid from guid, got '%s'", first.UID)
	}
	if first.Summary == nil || *first.Summary != "Python tips" {
		t.Errorf("Expected summary 'Python tips', got %v", first.Summary)
	}
	if !first.PublishedAt.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected published time: %v", first.PublishedAt)
	}

	second := entries[1]
	if second.UID != "https://www.v2ex.com/t/2" {
		t.Errorf("Expected uid to fall back to link, got '%s'", second.UID)
	}
	if second.PublishedAt.Location() != time.UTC {
		t.Errorf("Expected published time in UTC, got %v", second.PublishedAt.Location())
	}
	if !second.PublishedAt.Equal(time.Date(2023, 7, 3, 3, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected published time: %v", second.PublishedAt)
	}
}

func TestNormalizeAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>linux.do</title>
  <id>https://linux.do/latest.rss</id>
  <updated>2025-02-14T08:00:00Z</updated>
  <entry>
    <title>Go 1.24 released</title>
    <id>tag:linux.do,2025:topic-42</id>
    <link href="https://linux.do/t/42"/>
    <updated>2025-02-14T08:00:00Z</updated>
    <content type="html">Full release notes</content>
  </entry>
</feed>`

	entries := parseEntries(t, SourceLinuxDo, atomData)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.UID != "tag:linux.do,2025:topic-42" {
		t.Errorf("Expected uid from atom id, got '%s'", entry.UID)
	}
	if entry.Link != "https://linux.do/t/42" {
		t.Errorf("Expected link 'https://linux.do/t/42', got '%s'", entry.Link)
	}
	if entry.Summary == nil || *entry.Summary != "Full release notes" {
		t.Errorf("Expected summary to fall back to content, got %v", entry.Summary)
	}
	if !entry.PublishedAt.Equal(time.Date(2025, 2, 14, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected published time from updated, got %v", entry.PublishedAt)
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:dcterms="http://purl.org/dc/terms/">
  <channel>
    <title>nodeseek</title>
    <item>
      <title>Created only</title>
      <guid isPermaLink="false">created-only</guid>
      <dcterms:created>2024-12-01T09:30:00Z</dcterms:created>
    </item>
    <item>
      <title>Bare title</title>
    </item>
  </channel>
</rss>`

	entries := parseEntries(t, SourceNodeSeek, rssData)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	created := entries[0]
	if created.Link != "created-only" {
		t.Errorf("Expected link to fall back to guid, got '%s'", created.Link)
	}
	if created.Summary != nil {
		t.Errorf("Expected nil summary, got '%s'", *created.Summary)
	}
	if !created.PublishedAt.Equal(time.Date(2024, 12, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("Expected published time from dcterms:created, got %v", created.PublishedAt)
	}

	bare := entries[1]
	if bare.UID != "nodeseek:Bare title" {
		t.Errorf("Expected synthetic uid 'nodeseek:Bare title', got '%s'", bare.UID)
	}
	if bare.Link != "" {
		t.Errorf("Expected empty link, got '%s'", bare.Link)
	}
	if !bare.PublishedAt.Equal(time.Date(2025, 2, 14, 4, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected published time from the clock, got %v", bare.PublishedAt)
	}
	if bare.PublishedAt.Location() != time.UTC {
		t.Errorf("Expected clock fallback in UTC, got %v", bare.PublishedAt.Location())
	}
}

func TestNormalizeAtom03Created(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed version="0.3" xmlns="http://purl.org/atom/ns#">
  <title>nodeseek</title>
  <entry>
    <title>Created only</title>
    <id>tag:nodeseek.com,2024:post-7</id>
    <link rel="alternate" type="text/html" href="https://www.nodeseek.com/post-7-1"/>
    <created>2024-12-01T09:30:00Z</created>
  </entry>
  <entry>
    <title>No dates</title>
    <id>tag:nodeseek.com,2024:post-8</id>
  </entry>
</feed>`

	entries := parseEntries(t, SourceNodeSeek, atomData)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	if !entries[0].PublishedAt.Equal(time.Date(2024, 12, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("Expected published time from atom created, got %v", entries[0].PublishedAt)
	}
	if !entries[1].PublishedAt.Equal(time.Date(2025, 2, 14, 4, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected published time from the clock, got %v", entries[1].PublishedAt)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Feed</title>
    <item><title>One</title><link>https://example.com/1</link></item>
    <item><title>Two</title></item>
  </channel>
</rss>`

	first := parseEntries(t, SourceV2EX, rssData)
	second := parseEntries(t, SourceV2EX, rssData)

	for i := range first {
		if first[i].UID != second[i].UID {
			t.Errorf("Entry %d uid changed between runs: '%s' != '%s'", i, first[i].UID, second[i].UID)
		}
		if first[i].UID == "" {
			t.Errorf("Entry %d has empty uid", i)
		}
	}
}

func TestNormalizeStopsEarly(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Feed</title>
    <item><title>One</title></item>
    <item><title>Two</title></item>
    <item><title>Three</title></item>
  </channel>
</rss>`

	parser := NewParser()
	parsed, err := parser.Parse(strings.NewReader(rssData))
	if err != nil {
		t.Fatal(err)
	}

	var seen []string
	for entry := range parser.Normalize(SourceV2EX, parsed) {
		seen = append(seen, entry.Title)
		if len(seen) == 2 {
			break
		}
	}

	if !slices.Equal(seen, []string{"One", "Two"}) {
		t.Errorf("Expected to stop after two entries, got %v", seen)
	}
}

func TestParseInvalidFeed(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse(strings.NewReader("this is not a feed"))
	if err == nil {
		t.Error("Expected error for invalid feed data")
	}
}
