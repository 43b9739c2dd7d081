package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
	now          func() time.Time
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		now:          time.Now,
	}
}

func (p *Parser) Parse(r io.Reader) (*gofeed.Feed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	if feed.FeedType == "atom" {
		readAtomCreated(data, feed)
	}
	return feed, nil
}

type atomCreatedDoc struct {
	Entries []struct {
		Created string `xml:"created"`
	} `xml:"entry"`
}

// readAtomCreated copies Atom 0.3 <created> dates, which gofeed skips, into
// each item's Custom map. Documents encoding/xml cannot read are left as is.
func readAtomCreated(data []byte, feed *gofeed.Feed) {
	var doc atomCreatedDoc
	if err := xml.Unmarshal(data, &doc); err != nil || len(doc.Entries) != len(feed.Items) {
		return
	}

	for i, entry := range doc.Entries {
		created := strings.TrimSpace(entry.Created)
		if created == "" || feed.Items[i] == nil {
			continue
		}
		if feed.Items[i].Custom == nil {
			feed.Items[i].Custom = make(map[string]string)
		}
		feed.Items[i].Custom["created"] = created
	}
}

// Normalize yields one Entry per feed item. Items are converted as the
// sequence is consumed.
func (p *Parser) Normalize(source Source, feed *gofeed.Feed) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if feed == nil {
			return
		}
		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			if !yield(p.normalizeItem(source, item)) {
				return
			}
		}
	}
}

func (p *Parser) normalizeItem(source Source, item *gofeed.Item) Entry {
	entry := Entry{
		Title:       item.Title,
		Link:        cmp.Or(item.Link, item.GUID),
		UID:         cmp.Or(item.GUID, item.Link, fmt.Sprintf("%s:%s", source, item.Title)),
		PublishedAt: p.publishedAt(item),
	}

	if summary := cmp.Or(item.Description, item.Content); summary != "" {
		entry.Summary = &summary
	}

	return entry
}

func (p *Parser) publishedAt(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	}

	if created, ok := createdAt(item); ok {
		return created.UTC()
	}

	return p.now().UTC()
}

// createdAt reads the Dublin Core terms "created" element, which gofeed
// keeps as a raw extension, then the Atom 0.3 <created> element.
func createdAt(item *gofeed.Item) (time.Time, bool) {
	var raw string
	if values := item.Extensions["dcterms"]["created"]; len(values) > 0 {
		raw = values[0].Value
	}
	raw = cmp.Or(raw, item.Custom["created"])
	if raw == "" {
		return time.Time{}, false
	}

	created, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return created, true
}
