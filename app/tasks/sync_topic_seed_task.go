package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/forum-monitor/app/database"
	"github.com/lysyi3m/forum-monitor/app/feed"
)

// SyncTopicSeedTask writes one seed file into the topics table, creating the
// topic or overwriting the one with the same name.
type SyncTopicSeedTask struct {
	Task
	Seed      *feed.TopicSeed
	topicRepo database.TopicRepository
}

func NewSyncTopicSeedTask(seed *feed.TopicSeed, topicRepo database.TopicRepository) *SyncTopicSeedTask {
	return &SyncTopicSeedTask{
		Task:      NewTask(TaskTypeSyncTopicSeed, seed.Name),
		Seed:      seed,
		topicRepo: topicRepo,
	}
}

func (t *SyncTopicSeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	topic, created, err := t.topicRepo.UpsertTopic(ctx, database.TopicInput{
		Name:     t.Seed.Name,
		Source:   t.Seed.Source,
		FeedURL:  t.Seed.URL,
		Keywords: t.Seed.Keywords,
		IsActive: t.Seed.IsActive(),
	})
	if err != nil {
		return fmt.Errorf("failed to sync topic seed to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncTopicSeed",
		"topic", topic.Name,
		"id", topic.ID,
		"created", created,
		"duration", t.GetDuration())

	return nil
}
