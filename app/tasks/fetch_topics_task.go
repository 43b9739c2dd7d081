package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type FetchTopicsTask struct {
	Task
	ingester *Ingester
}

func NewFetchTopicsTask(ingester *Ingester) *FetchTopicsTask {
	return &FetchTopicsTask{
		Task:     NewTask(TaskTypeFetchTopics, "all"),
		ingester: ingester,
	}
}

func (t *FetchTopicsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stats, err := t.ingester.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch topics: %w", err)
	}

	slog.Info("Task completed",
		"type", "FetchTopics",
		"duration", t.GetDuration(),
		"topics_checked", stats.TopicsChecked,
		"posts_created", stats.PostsCreated,
		"duplicates", stats.Duplicates)

	return nil
}
