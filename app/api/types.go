package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/lysyi3m/forum-monitor/app/database"
	"github.com/lysyi3m/forum-monitor/app/feed"
	"github.com/lysyi3m/forum-monitor/app/tasks"
)

type GeneratorInterface interface {
	Run(topic database.Topic, posts []database.Post) (string, error)
}

type IngesterInterface interface {
	Run(ctx context.Context) (tasks.Stats, error)
}

var (
	_ GeneratorInterface = (*feed.Generator)(nil)
	_ IngesterInterface  = (*tasks.Ingester)(nil)
)

type Handler struct {
	db           *database.DB
	topicRepo    database.TopicRepository
	postRepo     database.PostRepository
	pushLogRepo  database.PushLogRepository
	statsRepo    database.StatsRepository
	generator    GeneratorInterface
	ingester     IngesterInterface
	maxFeedItems int
}

// Requests

type PageQuery struct {
	Skip  int `form:"skip,default=0"`
	Limit int `form:"limit,default=20"`
}

func (q PageQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Skip, validation.Min(0)),
		validation.Field(&q.Limit,
			validation.Required.Error("must be between 1 and 100"),
			validation.Min(1), validation.Max(100)),
	)
}

type PostQuery struct {
	PageQuery
	TopicID *int64  `form:"topic_id"`
	Source  *string `form:"source"`
}

func (q PostQuery) Validate() error {
	if err := q.PageQuery.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&q,
		validation.Field(&q.TopicID, validation.Min(int64(1))),
	)
}

type PushLogQuery struct {
	PageQuery
	Status *string `form:"status"`
}

type TopicCreateRequest struct {
	Name     string   `json:"name"`
	Source   string   `json:"source"`
	FeedURL  string   `json:"feed_url"`
	Keywords []string `json:"keywords"`
	IsActive *bool    `json:"is_active"`
}

func (r *TopicCreateRequest) normalize() {
	r.Source = strings.ToLower(strings.TrimSpace(r.Source))
}

func (r TopicCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Source, validation.Required, validation.In(sourceValues()...)),
		validation.Field(&r.FeedURL, validation.Required, is.RequestURL, is.URL, validation.Length(1, 500)),
		validation.Field(&r.Keywords, validation.By(validateKeywords)),
	)
}

func (r TopicCreateRequest) toInput() database.TopicInput {
	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}
	return database.TopicInput{
		Name:     r.Name,
		Source:   r.Source,
		FeedURL:  r.FeedURL,
		Keywords: r.Keywords,
		IsActive: isActive,
	}
}

// TopicUpdateRequest validates only the fields that are present.
type TopicUpdateRequest struct {
	Name     *string   `json:"name"`
	Source   *string   `json:"source"`
	FeedURL  *string   `json:"feed_url"`
	Keywords *[]string `json:"keywords"`
	IsActive *bool     `json:"is_active"`
}

func (r *TopicUpdateRequest) normalize() {
	if r.Source != nil {
		source := strings.ToLower(strings.TrimSpace(*r.Source))
		r.Source = &source
	}
}

func (r TopicUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&r.Source, validation.NilOrNotEmpty, validation.In(sourceValues()...)),
		validation.Field(&r.FeedURL, validation.NilOrNotEmpty, is.RequestURL, is.URL, validation.Length(1, 500)),
		validation.Field(&r.Keywords, validation.By(validateKeywords)),
	)
}

func (r TopicUpdateRequest) toUpdate() database.TopicUpdate {
	return database.TopicUpdate{
		Name:     r.Name,
		Source:   r.Source,
		FeedURL:  r.FeedURL,
		Keywords: r.Keywords,
		IsActive: r.IsActive,
	}
}

func sourceValues() []any {
	values := make([]any, 0, len(feed.Sources))
	for _, source := range feed.Sources {
		values = append(values, source.String())
	}
	return values
}

func validateKeywords(value any) error {
	var keywords []string
	switch v := value.(type) {
	case []string:
		keywords = v
	case *[]string:
		if v == nil {
			return nil
		}
		keywords = *v
	}

	for i, keyword := range keywords {
		if strings.TrimSpace(keyword) == "" {
			return fmt.Errorf("keyword at index %d must not be empty", i)
		}
	}
	return nil
}

// Responses

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

type TopicResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	FeedURL   string    `json:"feed_url"`
	Keywords  []string  `json:"keywords"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newTopicResponse(topic database.Topic) TopicResponse {
	return TopicResponse{
		ID:        topic.ID,
		Name:      topic.Name,
		Source:    topic.Source,
		FeedURL:   topic.FeedURL,
		Keywords:  topic.Keywords,
		IsActive:  topic.IsActive,
		CreatedAt: topic.CreatedAt,
		UpdatedAt: topic.UpdatedAt,
	}
}

type PostResponse struct {
	ID          int64     `json:"id"`
	TopicID     int64     `json:"topic_id"`
	Title       string    `json:"title"`
	Content     *string   `json:"content"`
	Link        string    `json:"link"`
	UID         string    `json:"uid"`
	PublishedAt time.Time `json:"published_at"`
	IsPushed    bool      `json:"is_pushed"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPostResponse(post database.Post) PostResponse {
	return PostResponse{
		ID:          post.ID,
		TopicID:     post.TopicID,
		Title:       post.Title,
		Content:     post.Content,
		Link:        post.Link,
		UID:         post.UID,
		PublishedAt: post.PublishedAt,
		IsPushed:    post.IsPushed,
		CreatedAt:   post.CreatedAt,
	}
}

type PushLogResponse struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Status    string    `json:"status"`
	Message   *string   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func newPushLogResponse(log database.PushLog) PushLogResponse {
	return PushLogResponse{
		ID:        log.ID,
		PostID:    log.PostID,
		Status:    log.Status,
		Message:   log.Message,
		CreatedAt: log.CreatedAt,
	}
}

type SystemStatsResponse struct {
	TopicsTotal  int `json:"topics_total"`
	ActiveTopics int `json:"active_topics"`
	PostsTotal   int `json:"posts_total"`
	LogsTotal    int `json:"logs_total"`
}

func mapItems[S any, T any](items []S, convert func(S) T) []T {
	converted := make([]T, 0, len(items))
	for _, item := range items {
		converted = append(converted, convert(item))
	}
	return converted
}
