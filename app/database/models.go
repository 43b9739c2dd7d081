package database

import (
	"time"
)

const (
	PushStatusPending = "pending"
	PushStatusSuccess = "success"
	PushStatusFailed  = "failed"
)

type Topic struct {
	ID        int64
	Name      string
	Source    string   // v2ex, nodeseek or linux.do
	FeedURL   string
	Keywords  []string // matched case-insensitively, order irrelevant
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Post struct {
	ID          int64
	TopicID     int64
	Title       string
	Content     *string
	Link        string
	UID         string // globally unique across all topics
	PublishedAt time.Time
	IsPushed    bool
	CreatedAt   time.Time
}

type PushLog struct {
	ID        int64
	PostID    int64
	Status    string
	Message   *string
	CreatedAt time.Time
}

// TopicInput carries the fields of a new topic.
type TopicInput struct {
	Name     string
	Source   string
	FeedURL  string
	Keywords []string
	IsActive bool
}

// TopicUpdate carries a partial update; nil fields are left untouched.
type TopicUpdate struct {
	Name     *string
	Source   *string
	FeedURL  *string
	Keywords *[]string
	IsActive *bool
}

func (u TopicUpdate) IsEmpty() bool {
	return u.Name == nil && u.Source == nil && u.FeedURL == nil && u.Keywords == nil && u.IsActive == nil
}

type PostFilter struct {
	Skip    int
	Limit   int
	TopicID *int64
	Source  *string
}

type PushLogFilter struct {
	Skip   int
	Limit  int
	Status *string
}

type SystemStats struct {
	TopicsTotal  int
	ActiveTopics int
	PostsTotal   int
	LogsTotal    int
}
