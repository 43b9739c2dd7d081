package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/forum-monitor/app/database"
	"github.com/lysyi3m/forum-monitor/app/feed"
)

func NewHandler(db *database.DB, generator GeneratorInterface, ingester IngesterInterface, maxFeedItems int) *Handler {
	return &Handler{
		db:           db,
		topicRepo:    database.NewTopicStore(db),
		postRepo:     database.NewPostStore(db),
		pushLogRepo:  database.NewPushLogStore(db),
		statsRepo:    database.NewStatsStore(db),
		generator:    generator,
		ingester:     ingester,
		maxFeedItems: maxFeedItems,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListTopics(c *gin.Context) {
	var query PageQuery
	if !bindQuery(c, &query) {
		return
	}

	topics, total, err := h.topicRepo.ListTopics(c.Request.Context(), query.Skip, query.Limit)
	if err != nil {
		respondError(c, "list_topics", err)
		return
	}

	c.JSON(http.StatusOK, Page[TopicResponse]{
		Items: mapItems(topics, newTopicResponse),
		Total: total,
		Skip:  query.Skip,
		Limit: query.Limit,
	})
}

func (h *Handler) CreateTopic(c *gin.Context) {
	var req TopicCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var topic *database.Topic
	err := h.db.InTx(ctx, func(tx *database.Tx) error {
		var err error
		topic, err = tx.Topics().CreateTopic(ctx, req.toInput())
		return err
	})
	if err != nil {
		respondError(c, "create_topic", err)
		return
	}

	slog.Info("Topic created", "id", topic.ID, "name", topic.Name, "source", topic.Source)
	c.JSON(http.StatusCreated, newTopicResponse(*topic))
}

func (h *Handler) GetTopic(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	topic, err := h.topicRepo.GetTopic(c.Request.Context(), id)
	if err != nil {
		respondError(c, "get_topic", err)
		return
	}

	c.JSON(http.StatusOK, newTopicResponse(*topic))
}

func (h *Handler) UpdateTopic(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req TopicUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var topic *database.Topic
	err := h.db.InTx(ctx, func(tx *database.Tx) error {
		var err error
		topic, err = tx.Topics().UpdateTopic(ctx, id, req.toUpdate())
		return err
	})
	if err != nil {
		respondError(c, "update_topic", err)
		return
	}

	c.JSON(http.StatusOK, newTopicResponse(*topic))
}

func (h *Handler) DeleteTopic(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	err := h.db.InTx(ctx, func(tx *database.Tx) error {
		return tx.Topics().DeleteTopic(ctx, id)
	})
	if err != nil {
		respondError(c, "delete_topic", err)
		return
	}

	slog.Info("Topic deleted", "id", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListPosts(c *gin.Context) {
	var query PostQuery
	if !bindQuery(c, &query) {
		return
	}

	filter := database.PostFilter{
		Skip:    query.Skip,
		Limit:   query.Limit,
		TopicID: query.TopicID,
	}
	if query.Source != nil {
		source := strings.ToLower(*query.Source)
		filter.Source = &source
	}

	posts, total, err := h.postRepo.ListPosts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "list_posts", err)
		return
	}

	c.JSON(http.StatusOK, Page[PostResponse]{
		Items: mapItems(posts, newPostResponse),
		Total: total,
		Skip:  query.Skip,
		Limit: query.Limit,
	})
}

func (h *Handler) ListPushLogs(c *gin.Context) {
	var query PushLogQuery
	if !bindQuery(c, &query) {
		return
	}

	logs, total, err := h.pushLogRepo.ListPushLogs(c.Request.Context(), database.PushLogFilter{
		Skip:   query.Skip,
		Limit:  query.Limit,
		Status: query.Status,
	})
	if err != nil {
		respondError(c, "list_push_logs", err)
		return
	}

	c.JSON(http.StatusOK, Page[PushLogResponse]{
		Items: mapItems(logs, newPushLogResponse),
		Total: total,
		Skip:  query.Skip,
		Limit: query.Limit,
	})
}

func (h *Handler) GetSystemStats(c *gin.Context) {
	stats, err := h.statsRepo.GetSystemStats(c.Request.Context())
	if err != nil {
		respondError(c, "get_system_stats", err)
		return
	}

	c.JSON(http.StatusOK, SystemStatsResponse{
		TopicsTotal:  stats.TopicsTotal,
		ActiveTopics: stats.ActiveTopics,
		PostsTotal:   stats.PostsTotal,
		LogsTotal:    stats.LogsTotal,
	})
}

func (h *Handler) TriggerFetch(c *gin.Context) {
	stats, err := h.ingester.Run(c.Request.Context())
	if err != nil {
		if feed.IsFetchError(err) {
			slog.Warn("Manual fetch failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		respondError(c, "trigger_fetch", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetTopicFeed(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	topic, err := h.topicRepo.GetTopic(ctx, id)
	if err != nil {
		respondError(c, "get_topic", err)
		return
	}

	posts, err := h.postRepo.GetLatestPosts(ctx, id, h.maxFeedItems)
	if err != nil {
		respondError(c, "get_latest_posts", err)
		return
	}

	rss, err := h.generator.Run(*topic, posts)
	if err != nil {
		slog.Error("RSS generation error", "topic", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(posts)))
	c.String(http.StatusOK, rss)
}

type validatable interface {
	Validate() error
}

func bindQuery(c *gin.Context, query validatable) bool {
	if err := c.ShouldBindQuery(query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := query.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, operation string, err error) {
	var dbErr *database.Error
	switch {
	case database.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": errorMessage(err)})
	case database.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": errorMessage(err)})
	case errors.As(err, &dbErr):
		slog.Error("Database error", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	default:
		slog.Error("Request failed", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func errorMessage(err error) string {
	var dbErr *database.Error
	if errors.As(err, &dbErr) {
		return dbErr.Message
	}
	return err.Error()
}
