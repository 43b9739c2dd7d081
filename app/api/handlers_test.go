package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/forum-monitor/app/database"
	"github.com/lysyi3m/forum-monitor/app/feed"
	"github.com/lysyi3m/forum-monitor/app/tasks"
)

type fakeIngester struct {
	stats tasks.Stats
	err   error
	runs  int
}

func (f *fakeIngester) Run(ctx context.Context) (tasks.Stats, error) {
	f.runs++
	return f.stats, f.err
}

type testServer struct {
	db       *database.DB
	engine   *gin.Engine
	ingester *fakeIngester
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.NewConnection(database.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	ingester := &fakeIngester{}
	handler := NewHandler(db, feed.NewGenerator("http://localhost:8080", "test"), ingester, 50)

	return &testServer{db: db, engine: NewServer(handler, false), ingester: ingester}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) createTopic(t *testing.T, name string, keywords ...string) TopicResponse {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/topics", map[string]any{
		"name":     name,
		"source":   "v2ex",
		"feed_url": "https://www.v2ex.com/index.xml",
		"keywords": keywords,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var topic TopicResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &topic))
	return topic
}

func (s *testServer) createPost(t *testing.T, topicID int64, uid string) {
	t.Helper()

	ctx := context.Background()
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		post := &database.Post{
			TopicID:     topicID,
			Title:       "Post " + uid,
			Link:        "https://www.v2ex.com/t/" + uid,
			UID:         uid,
			PublishedAt: time.Date(2025, 2, 14, 8, 0, 0, 0, time.UTC),
		}
		if err := tx.Posts().CreatePost(ctx, post); err != nil {
			return err
		}
		return tx.PushLogs().CreatePushLog(ctx, &database.PushLog{PostID: post.ID})
	})
	require.NoError(t, err)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateTopic(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/topics", map[string]any{
		"name":     "Python",
		"source":   "V2EX",
		"feed_url": "https://www.v2ex.com/index.xml",
		"keywords": []string{"python"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	topic := decode[TopicResponse](t, w)
	assert.NotZero(t, topic.ID)
	assert.Equal(t, "Python", topic.Name)
	assert.Equal(t, "v2ex", topic.Source)
	assert.Equal(t, []string{"python"}, topic.Keywords)
	assert.True(t, topic.IsActive)

	w = s.do(t, http.MethodGet, "/api/v1/topics/"+itoa(topic.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, topic.ID, decode[TopicResponse](t, w).ID)
}

func TestCreateTopicEmptyKeywordsSerializesAsArray(t *testing.T) {
	s := newTestServer(t)

	topic := s.createTopic(t, "everything")
	assert.NotNil(t, topic.Keywords)

	w := s.do(t, http.MethodGet, "/api/v1/topics/"+itoa(topic.ID), nil)
	assert.Contains(t, w.Body.String(), `"keywords":[]`)
}

func TestCreateTopicValidation(t *testing.T) {
	s := newTestServer(t)

	tests := map[string]map[string]any{
		"missing name":    {"source": "v2ex", "feed_url": "https://www.v2ex.com/index.xml"},
		"long name":       {"name": strings.Repeat("x", 256), "source": "v2ex", "feed_url": "https://www.v2ex.com/index.xml"},
		"unknown source":  {"name": "a", "source": "reddit", "feed_url": "https://www.reddit.com/.rss"},
		"invalid url":     {"name": "a", "source": "v2ex", "feed_url": "not a url"},
		"long url":        {"name": "a", "source": "v2ex", "feed_url": "https://example.com/" + strings.Repeat("a", 500)},
		"empty keyword":   {"name": "a", "source": "v2ex", "feed_url": "https://www.v2ex.com/index.xml", "keywords": []string{"go", ""}},
		"wrong json type": {"name": 42, "source": "v2ex", "feed_url": "https://www.v2ex.com/index.xml"},
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/topics", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestCreateTopicDuplicateNameConflicts(t *testing.T) {
	s := newTestServer(t)
	original := s.createTopic(t, "dup", "go")

	w := s.do(t, http.MethodPost, "/api/v1/topics", map[string]any{
		"name":     "dup",
		"source":   "nodeseek",
		"feed_url": "https://rss.nodeseek.com",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/topics/"+itoa(original.ID), nil)
	topic := decode[TopicResponse](t, w)
	assert.Equal(t, "v2ex", topic.Source)
	assert.Equal(t, []string{"go"}, topic.Keywords)
}

func TestGetTopicNotFoundAndInvalidID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/topics/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/topics/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTopicPartial(t *testing.T) {
	s := newTestServer(t)
	topic := s.createTopic(t, "partial", "rust")

	w := s.do(t, http.MethodPatch, "/api/v1/topics/"+itoa(topic.ID), map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decode[TopicResponse](t, w)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "partial", updated.Name)
	assert.Equal(t, []string{"rust"}, updated.Keywords)

	w = s.do(t, http.MethodPut, "/api/v1/topics/"+itoa(topic.ID), map[string]any{"source": "Linux.Do", "keywords": []string{}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated = decode[TopicResponse](t, w)
	assert.Equal(t, "linux.do", updated.Source)
	assert.Empty(t, updated.Keywords)
	assert.False(t, updated.IsActive)
}

func TestUpdateTopicErrors(t *testing.T) {
	s := newTestServer(t)
	s.createTopic(t, "Topic 1")
	second := s.createTopic(t, "Topic 2")

	w := s.do(t, http.MethodPatch, "/api/v1/topics/"+itoa(second.ID), map[string]any{"name": "Topic 1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/topics/999", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/topics/"+itoa(second.ID), map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/topics/"+itoa(second.ID), map[string]any{"source": "reddit"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTopicCascades(t *testing.T) {
	s := newTestServer(t)
	keep := s.createTopic(t, "keep")
	drop := s.createTopic(t, "drop")
	s.createPost(t, keep.ID, "k1")
	s.createPost(t, drop.ID, "d1")
	s.createPost(t, drop.ID, "d2")

	w := s.do(t, http.MethodDelete, "/api/v1/topics/"+itoa(drop.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/system/stats", nil)
	assert.JSONEq(t, `{"topics_total":1,"active_topics":1,"posts_total":1,"logs_total":1}`, w.Body.String())

	w = s.do(t, http.MethodDelete, "/api/v1/topics/"+itoa(drop.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTopicsPagination(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"a", "b", "c"} {
		s.createTopic(t, name)
	}

	w := s.do(t, http.MethodGet, "/api/v1/topics?skip=1&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[Page[TopicResponse]](t, w)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Skip)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "b", page.Items[0].Name)

	w = s.do(t, http.MethodGet, "/api/v1/topics", nil)
	page = decode[Page[TopicResponse]](t, w)
	assert.Equal(t, 0, page.Skip)
	assert.Equal(t, 20, page.Limit)
	assert.Len(t, page.Items, 3)
}

func TestPagingValidation(t *testing.T) {
	s := newTestServer(t)

	for _, query := range []string{"limit=0", "limit=101", "limit=-1", "skip=-1", "limit=abc", "skip=x"} {
		for _, path := range []string{"/api/v1/topics", "/api/v1/posts", "/api/v1/logs"} {
			w := s.do(t, http.MethodGet, path+"?"+query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, "%s?%s", path, query)
		}
	}

	w := s.do(t, http.MethodGet, "/api/v1/posts?limit=100", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPostsMostRecentFirst(t *testing.T) {
	s := newTestServer(t)
	v2ex := s.createTopic(t, "v2ex")
	other := s.createTopic(t, "other")
	s.createPost(t, v2ex.ID, "p1")
	s.createPost(t, other.ID, "p2")
	s.createPost(t, v2ex.ID, "p3")

	w := s.do(t, http.MethodGet, "/api/v1/posts?skip=0&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[Page[PostResponse]](t, w)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p3", page.Items[0].UID)
	assert.Equal(t, "p2", page.Items[1].UID)

	w = s.do(t, http.MethodGet, "/api/v1/posts?topic_id="+itoa(v2ex.ID), nil)
	page = decode[Page[PostResponse]](t, w)
	assert.Equal(t, 2, page.Total)

	w = s.do(t, http.MethodGet, "/api/v1/posts?source=V2EX", nil)
	page = decode[Page[PostResponse]](t, w)
	assert.Equal(t, 3, page.Total)

	w = s.do(t, http.MethodGet, "/api/v1/posts?source=nodeseek", nil)
	page = decode[Page[PostResponse]](t, w)
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Items)
}

func TestListPushLogs(t *testing.T) {
	s := newTestServer(t)
	topic := s.createTopic(t, "logs")
	s.createPost(t, topic.ID, "p1")

	w := s.do(t, http.MethodGet, "/api/v1/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[Page[PushLogResponse]](t, w)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "pending", page.Items[0].Status)
	assert.Nil(t, page.Items[0].Message)

	w = s.do(t, http.MethodGet, "/api/v1/logs?status=failed", nil)
	page = decode[Page[PushLogResponse]](t, w)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Items)
}

func TestTriggerFetch(t *testing.T) {
	s := newTestServer(t)
	s.ingester.stats = tasks.Stats{TopicsChecked: 2, PostsCreated: 1, Duplicates: 3}

	w := s.do(t, http.MethodPost, "/api/v1/tasks/fetch", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"topics_checked":2,"posts_created":1,"duplicates":3}`, w.Body.String())
	assert.Equal(t, 1, s.ingester.runs)
}

func TestTriggerFetchErrors(t *testing.T) {
	s := newTestServer(t)

	s.ingester.err = &feed.TransportError{URL: "https://www.v2ex.com/index.xml", StatusCode: http.StatusServiceUnavailable}
	w := s.do(t, http.MethodPost, "/api/v1/tasks/fetch", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "HTTP 503")

	s.ingester.err = errors.New("disk full")
	w = s.do(t, http.MethodPost, "/api/v1/tasks/fetch", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetTopicFeed(t *testing.T) {
	s := newTestServer(t)
	topic := s.createTopic(t, "python", "python")
	s.createPost(t, topic.ID, "p1")

	w := s.do(t, http.MethodGet, "/feeds/"+itoa(topic.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Feed-Items"))
	assert.Contains(t, w.Body.String(), "<title>Post p1</title>")
	assert.Contains(t, w.Body.String(), `<atom:link href="http://localhost:8080/feeds/`+itoa(topic.ID)+`"`)

	w = s.do(t, http.MethodGet, "/feeds/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodOptions, "/api/v1/topics", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
