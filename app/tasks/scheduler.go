package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/workflow-digest/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// TaskFactory builds the task a cron tick enqueues.
type TaskFactory func() TaskInterface

type Scheduler struct {
	factory     TaskFactory
	cron        *cron.Cron
	schedule    string
	workerCount int
	taskTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

// NewScheduler validates the cron spec (standard five fields, or descriptors
// such as "@daily") against location.
func NewScheduler(factory TaskFactory, schedule string, location *time.Location, workerCount int) (*Scheduler, error) {
	if location == nil {
		location = time.Local
	}
	if workerCount < 1 {
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		factory:     factory,
		cron:        cron.New(cron.WithLocation(location)),
		schedule:    schedule,
		workerCount: workerCount,
		taskTimeout: 30 * time.Minute,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 32),
	}

	if schedule != "" {
		if _, err := s.cron.AddFunc(schedule, s.enqueueScheduled); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.cron.Start()

	if entries := s.cron.Entries(); len(entries) > 0 {
		slog.Info("Scheduler started", "schedule", s.schedule, "next_run", entries[0].Next, "workers", s.workerCount)
	}
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		metrics.QueueDepth.Set(float64(len(s.taskQueue)))
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueScheduled() {
	task := s.factory()
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue scheduled task", "type", string(task.GetType()), "error", err)
		return
	}
	slog.Debug("Scheduled task enqueued", "type", string(task.GetType()), "id", task.GetID())
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			metrics.QueueDepth.Set(float64(len(s.taskQueue)))
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "trigger", task.GetTrigger(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// retryDelay doubles from one second and caps at thirty.
func retryDelay(retryCount int) time.Duration {
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	return min(delay, 30*time.Second)
}
