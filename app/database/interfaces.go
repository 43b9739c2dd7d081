package database

import (
	"context"
)

type TopicRepository interface {
	GetTopic(ctx context.Context, id int64) (*Topic, error)
	GetTopicByName(ctx context.Context, name string) (*Topic, error)
	ListTopics(ctx context.Context, skip, limit int) ([]Topic, int, error)
	ListActiveTopics(ctx context.Context) ([]Topic, error)

	CreateTopic(ctx context.Context, input TopicInput) (*Topic, error)
	UpdateTopic(ctx context.Context, id int64, update TopicUpdate) (*Topic, error)
	UpsertTopic(ctx context.Context, input TopicInput) (*Topic, bool, error)
	DeleteTopic(ctx context.Context, id int64) error
}

type PostRepository interface {
	ListPosts(ctx context.Context, filter PostFilter) ([]Post, int, error)
	GetLatestPosts(ctx context.Context, topicID int64, limit int) ([]Post, error)

	UIDExists(ctx context.Context, uid string) (bool, error)
	CreatePost(ctx context.Context, post *Post) error
}

type PushLogRepository interface {
	ListPushLogs(ctx context.Context, filter PushLogFilter) ([]PushLog, int, error)

	CreatePushLog(ctx context.Context, log *PushLog) error
}

type StatsRepository interface {
	GetSystemStats(ctx context.Context) (SystemStats, error)
}

var (
	_ TopicRepository   = (*TopicStore)(nil)
	_ PostRepository    = (*PostStore)(nil)
	_ PushLogRepository = (*PushLogStore)(nil)
	_ StatsRepository   = (*StatsStore)(nil)
)
