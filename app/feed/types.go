package feed

import (
	"time"
)

// Entry is a feed item reduced to the fields the monitor stores.
type Entry struct {
	Title       string
	Link        string
	Summary     *string
	UID         string // never empty
	PublishedAt time.Time
}

// Topic seed files

type TopicSeed struct {
	Name     string   `yaml:"name"` // defaults to the filename without .yml
	Source   string   `yaml:"source"`
	URL      string   `yaml:"url"`
	Keywords []string `yaml:"keywords"`
	Active   *bool    `yaml:"active"`
}

func (s *TopicSeed) IsActive() bool {
	return s.Active == nil || *s.Active
}
