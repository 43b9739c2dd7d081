package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lysyi3m/forum-monitor/app/database"
	"github.com/lysyi3m/forum-monitor/app/feed"
)

type Stats struct {
	TopicsChecked int `json:"topics_checked"`
	PostsCreated  int `json:"posts_created"`
	Duplicates    int `json:"duplicates"`
}

// Ingester turns the entries of every active topic's feed into posts and
// pending push logs.
type Ingester struct {
	db       *database.DB
	fetcher  EntryFetcher
	filterer *feed.Filterer
}

func NewIngester(db *database.DB, fetcher EntryFetcher, filterer *feed.Filterer) *Ingester {
	return &Ingester{
		db:       db,
		fetcher:  fetcher,
		filterer: filterer,
	}
}

// Run performs one ingest pass. Every active topic's feed is fetched first
// with no transaction open; any fetch failure aborts the pass before anything
// is written. The entries are then deduplicated, filtered and stored in a
// single transaction, one topic after another.
func (i *Ingester) Run(ctx context.Context) (Stats, error) {
	startedAt := time.Now()

	topics, err := database.NewTopicStore(i.db).ListActiveTopics(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load active topics: %w", err)
	}

	fetched := make(map[int64][]feed.Entry, len(topics))
	for _, topic := range topics {
		entries, err := i.fetcher.Fetch(ctx, topic.Source, topic.FeedURL)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to ingest topic %q: %w", topic.Name, err)
		}
		fetched[topic.ID] = slices.Collect(entries)
	}

	var stats Stats
	err = i.db.InTx(ctx, func(tx *database.Tx) error {
		// Topics removed or paused while feeds were loading are skipped.
		current, err := tx.Topics().ListActiveTopics(ctx)
		if err != nil {
			return fmt.Errorf("failed to load active topics: %w", err)
		}

		for _, topic := range current {
			entries, ok := fetched[topic.ID]
			if !ok {
				continue
			}
			stats.TopicsChecked++

			created, duplicates, err := i.storeEntries(ctx, tx, topic, entries)
			if err != nil {
				return fmt.Errorf("failed to ingest topic %q: %w", topic.Name, err)
			}

			stats.PostsCreated += created
			stats.Duplicates += duplicates

			slog.Info("Topic ingested",
				"topic", topic.Name,
				"source", topic.Source,
				"created", created,
				"duplicates", duplicates)
		}

		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	slog.Info("Ingest completed",
		"duration", time.Since(startedAt),
		"topics_checked", stats.TopicsChecked,
		"posts_created", stats.PostsCreated,
		"duplicates", stats.Duplicates)

	return stats, nil
}

func (i *Ingester) storeEntries(ctx context.Context, tx *database.Tx, topic database.Topic, entries []feed.Entry) (created, duplicates int, err error) {
	posts := tx.Posts()
	pushLogs := tx.PushLogs()

	for _, entry := range entries {
		exists, err := posts.UIDExists(ctx, entry.UID)
		if err != nil {
			return 0, 0, err
		}
		if exists {
			duplicates++
			continue
		}

		if !i.filterer.Run(entry, topic.Keywords) {
			continue
		}

		post := &database.Post{
			TopicID:     topic.ID,
			Title:       entry.Title,
			Content:     entry.Summary,
			Link:        entry.Link,
			UID:         entry.UID,
			PublishedAt: entry.PublishedAt,
		}
		if err := posts.CreatePost(ctx, post); err != nil {
			return 0, 0, err
		}

		if err := pushLogs.CreatePushLog(ctx, &database.PushLog{PostID: post.ID, Status: database.PushStatusPending}); err != nil {
			return 0, 0, err
		}

		created++
	}

	return created, duplicates, nil
}
