package tasks

import (
	"context"
	"iter"

	"github.com/lysyi3m/forum-monitor/app/feed"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Example usage:
//
//	scheduler := NewScheduler(topicSeeds, topicRepo, ingester, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewFetchTopicsTask(ingester))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// EntryFetcher retrieves and normalizes one feed. *feed.Fetcher satisfies it.
type EntryFetcher interface {
	Fetch(ctx context.Context, source string, feedURL string) (iter.Seq[feed.Entry], error)
}

var _ EntryFetcher = (*feed.Fetcher)(nil)
