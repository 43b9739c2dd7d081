package feed

import (
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run reports whether the entry's title and summary mention any of the
// keywords. An empty keyword list accepts every entry.
func (f *Filterer) Run(entry Entry, keywords []string) bool {
	return Matches(CombinedText(entry.Title, entry.Summary), keywords)
}

// Matches is a case-insensitive substring test against each keyword.
func Matches(text *string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	if text == nil || *text == "" {
		return false
	}

	lowered := strings.ToLower(*text)
	for _, keyword := range keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// CombinedText joins the non-empty parts with a single space. It returns nil
// when both parts are empty.
func CombinedText(title string, summary *string) *string {
	parts := make([]string, 0, 2)
	if title != "" {
		parts = append(parts, title)
	}
	if summary != nil && *summary != "" {
		parts = append(parts, *summary)
	}
	if len(parts) == 0 {
		return nil
	}

	combined := strings.Join(parts, " ")
	return &combined
}
