package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/forum-monitor/app/database"
)

// Generator renders a topic's captured posts as an RSS 2.0 document.
type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: version,
	}
}

func (g *Generator) Run(topic database.Topic, posts []database.Post) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", topic.Name, 4)
	g.writeElement(&buf, "link", topic.FeedURL, 4)
	g.writeElement(&buf, "description", g.describe(topic), 4)

	selfLink := fmt.Sprintf("%s/feeds/%d", g.baseURL, topic.ID)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().UTC()
	if len(posts) > 0 {
		lastBuildDate = cmp.Or(posts[0].PublishedAt, posts[0].CreatedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("ForumMonitor/%s", g.version), 4)

	for _, post := range posts {
		g.writeItem(&buf, post)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) describe(topic database.Topic) string {
	if len(topic.Keywords) == 0 {
		return fmt.Sprintf("All posts from %s", topic.Source)
	}
	return fmt.Sprintf("Posts from %s matching %s", topic.Source, strings.Join(topic.Keywords, ", "))
}

func (g *Generator) writeItem(buf *bytes.Buffer, post database.Post) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(post.UID)))
	xml.EscapeText(buf, []byte(post.UID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", post.Title, 6)
	g.writeElement(buf, "link", post.Link, 6)

	description := "No description available"
	if post.Content != nil && *post.Content != "" {
		description = *post.Content
	}
	g.writeElement(buf, "description", description, 6)
	g.writeElement(buf, "pubDate", post.PublishedAt.Format(time.RFC1123Z), 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
