package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const topicColumns = `id, name, source, feed_url, keywords, is_active, created_at, updated_at`

// TopicStore handles database operations for topics
type TopicStore struct {
	conn
}

func NewTopicStore(db *DB) *TopicStore {
	return &TopicStore{conn: db.conn()}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (*Topic, error) {
	var (
		topic    Topic
		keywords string
	)
	err := row.Scan(&topic.ID, &topic.Name, &topic.Source, &topic.FeedURL, &keywords,
		&topic.IsActive, &topic.CreatedAt, &topic.UpdatedAt)
	if err != nil {
		return nil, err
	}

	topic.Keywords, err = decodeKeywords(keywords)
	if err != nil {
		return nil, err
	}

	return &topic, nil
}

func (r *TopicStore) GetTopic(ctx context.Context, id int64) (*Topic, error) {
	topic, err := scanTopic(r.queryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = ?`, id))
	if err != nil {
		return nil, translateError(err, "topic not found")
	}
	return topic, nil
}

func (r *TopicStore) GetTopicByName(ctx context.Context, name string) (*Topic, error) {
	topic, err := scanTopic(r.queryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE name = ?`, name))
	if err != nil {
		return nil, translateError(err, "topic not found")
	}
	return topic, nil
}

func (r *TopicStore) ListTopics(ctx context.Context, skip, limit int) ([]Topic, int, error) {
	var total int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM topics`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count topics: %w", err)
	}

	topics, err := r.listTopics(ctx, `SELECT `+topicColumns+` FROM topics ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, 0, err
	}

	return topics, total, nil
}

func (r *TopicStore) ListActiveTopics(ctx context.Context) ([]Topic, error) {
	return r.listTopics(ctx, `SELECT `+topicColumns+` FROM topics WHERE is_active = ? ORDER BY id`, true)
}

func (r *TopicStore) listTopics(ctx context.Context, query string, args ...any) ([]Topic, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	topics := make([]Topic, 0)
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, *topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}

	return topics, nil
}

func (r *TopicStore) CreateTopic(ctx context.Context, input TopicInput) (*Topic, error) {
	keywords, err := encodeKeywords(input.Keywords)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var id int64
	err = r.queryRow(ctx, `
		INSERT INTO topics (name, source, feed_url, keywords, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, input.Name, input.Source, input.FeedURL, keywords, input.IsActive, now, now).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, NewConflictError("topic with the same name already exists", err)
		}
		return nil, translateError(err, "failed to create topic")
	}

	return &Topic{
		ID:        id,
		Name:      input.Name,
		Source:    input.Source,
		FeedURL:   input.FeedURL,
		Keywords:  normalizeKeywords(input.Keywords),
		IsActive:  input.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateTopic applies a partial update. Fields left nil keep their value.
func (r *TopicStore) UpdateTopic(ctx context.Context, id int64, update TopicUpdate) (*Topic, error) {
	if update.IsEmpty() {
		return r.GetTopic(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Source != nil {
		sets = append(sets, "source = ?")
		args = append(args, *update.Source)
	}
	if update.FeedURL != nil {
		sets = append(sets, "feed_url = ?")
		args = append(args, *update.FeedURL)
	}
	if update.Keywords != nil {
		keywords, err := encodeKeywords(*update.Keywords)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "keywords = ?")
		args = append(args, keywords)
	}
	if update.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *update.IsActive)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := r.exec(ctx, `UPDATE topics SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, NewConflictError("topic with the same name already exists", err)
		}
		return nil, translateError(err, "failed to update topic")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, translateError(err, "failed to update topic")
	}
	if affected == 0 {
		return nil, NewNotFoundError("topic not found")
	}

	return r.GetTopic(ctx, id)
}

// UpsertTopic creates the topic or overwrites the one with the same name.
// The boolean result reports whether a new row was created.
func (r *TopicStore) UpsertTopic(ctx context.Context, input TopicInput) (*Topic, bool, error) {
	existing, err := r.GetTopicByName(ctx, input.Name)
	if err != nil && !IsNotFound(err) {
		return nil, false, err
	}

	if existing == nil {
		topic, err := r.CreateTopic(ctx, input)
		return topic, err == nil, err
	}

	keywords := normalizeKeywords(input.Keywords)
	topic, err := r.UpdateTopic(ctx, existing.ID, TopicUpdate{
		Source:   &input.Source,
		FeedURL:  &input.FeedURL,
		Keywords: &keywords,
		IsActive: &input.IsActive,
	})
	return topic, false, err
}

// DeleteTopic removes the topic; its posts and their push logs go with it.
func (r *TopicStore) DeleteTopic(ctx context.Context, id int64) error {
	result, err := r.exec(ctx, `DELETE FROM topics WHERE id = ?`, id)
	if err != nil {
		return translateError(err, "failed to delete topic")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "failed to delete topic")
	}
	if affected == 0 {
		return NewNotFoundError("topic not found")
	}

	return nil
}

func normalizeKeywords(keywords []string) []string {
	if keywords == nil {
		return []string{}
	}
	return keywords
}

func encodeKeywords(keywords []string) (string, error) {
	data, err := json.Marshal(normalizeKeywords(keywords))
	if err != nil {
		return "", fmt.Errorf("failed to encode keywords: %w", err)
	}
	return string(data), nil
}

func decodeKeywords(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}
	return normalizeKeywords(keywords), nil
}
