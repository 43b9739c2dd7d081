package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const postColumns = `p.id, p.topic_id, p.title, p.content, p.link, p.uid, p.published_at, p.is_pushed, p.created_at`

// PostStore handles database operations for posts
type PostStore struct {
	conn
}

func NewPostStore(db *DB) *PostStore {
	return &PostStore{conn: db.conn()}
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		post    Post
		content sql.NullString
	)
	err := row.Scan(&post.ID, &post.TopicID, &post.Title, &content, &post.Link, &post.UID,
		&post.PublishedAt, &post.IsPushed, &post.CreatedAt)
	if err != nil {
		return nil, err
	}
	if content.Valid {
		post.Content = &content.String
	}
	return &post, nil
}

// UIDExists checks if a post with the given uid exists in any topic
func (r *PostStore) UIDExists(ctx context.Context, uid string) (bool, error) {
	var id int64
	err := r.queryRow(ctx, `SELECT id FROM posts WHERE uid = ? LIMIT 1`, uid).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check uid: %w", err)
	}
	return true, nil
}

// CreatePost inserts the post and fills in its ID and CreatedAt.
func (r *PostStore) CreatePost(ctx context.Context, post *Post) error {
	now := time.Now().UTC()
	err := r.queryRow(ctx, `
		INSERT INTO posts (topic_id, title, content, link, uid, published_at, is_pushed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, post.TopicID, post.Title, nullString(post.Content), post.Link, post.UID,
		post.PublishedAt.UTC(), post.IsPushed, now).Scan(&post.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return NewConflictError(fmt.Sprintf("post with uid %q already exists", post.UID), err)
		}
		return translateError(err, "failed to create post")
	}

	post.CreatedAt = now
	return nil
}

// ListPosts returns a page of posts, most recently created first. The total
// counts every post matching the filter.
func (r *PostStore) ListPosts(ctx context.Context, filter PostFilter) ([]Post, int, error) {
	var (
		joins string
		where []string
		args  []any
	)
	if filter.TopicID != nil {
		where = append(where, "p.topic_id = ?")
		args = append(args, *filter.TopicID)
	}
	if filter.Source != nil {
		joins = ` JOIN topics t ON t.id = p.topic_id`
		where = append(where, "t.source = ?")
		args = append(args, *filter.Source)
	}

	predicate := joins
	if len(where) > 0 {
		predicate += ` WHERE ` + strings.Join(where, " AND ")
	}

	var total int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM posts p`+predicate, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	posts, err := r.listPosts(ctx,
		`SELECT `+postColumns+` FROM posts p`+predicate+` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Skip)...)
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

// GetLatestPosts returns the newest posts of a topic by publish time
func (r *PostStore) GetLatestPosts(ctx context.Context, topicID int64, limit int) ([]Post, error) {
	return r.listPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		WHERE p.topic_id = ?
		ORDER BY p.published_at DESC, p.id DESC
		LIMIT ?
	`, topicID, limit)
}

func (r *PostStore) listPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
