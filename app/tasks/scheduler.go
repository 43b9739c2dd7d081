package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/forum-monitor/app/database"
	"github.com/lysyi3m/forum-monitor/app/feed"
)

const taskTimeout = 5 * time.Minute

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler syncs topic seeds at startup and enqueues an ingest pass on
// every tick. Failed tasks are logged and left for the next tick.
type Scheduler struct {
	topicSeeds  *feed.TopicSeeds
	topicRepo   database.TopicRepository
	ingester    *Ingester
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(topicSeeds *feed.TopicSeeds, topicRepo database.TopicRepository, ingester *Ingester,
	interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		topicSeeds:  topicSeeds,
		topicRepo:   topicRepo,
		ingester:    ingester,
		interval:    interval,
		workerCount: max(workerCount, 1),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	seeds := s.topicSeeds.GetSeeds()
	slog.Debug("Processing topic seeds", "count", len(seeds))

	for _, seed := range seeds {
		if err := s.EnqueueTask(NewSyncTopicSeedTask(seed, s.topicRepo)); err != nil {
			slog.Warn("Failed to enqueue SyncTopicSeedTask", "topic", seed.Name, "error", err)
		}
	}

	s.enqueueTasks()
}

func (s *Scheduler) enqueueTasks() {
	if err := s.EnqueueTask(NewFetchTopicsTask(s.ingester)); err != nil {
		slog.Warn("Failed to enqueue FetchTopicsTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"name", task.GetName(),
			"id", task.GetID(),
			"error", err)
	}
}
