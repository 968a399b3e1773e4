package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/newsradar-io/newsradar/internal/engine"
	"github.com/newsradar-io/newsradar/internal/events"
	"github.com/newsradar-io/newsradar/internal/history"
	"github.com/newsradar-io/newsradar/internal/interval"
)

// Scheduler drives periodic collection batches and executes manual
// collection tasks queued over NATS.
type Scheduler struct {
	engine      *engine.Engine
	consumerMgr *events.ConsumerManager
	runnerCfg   engine.RunnerConfig
	tick        time.Duration
}

func New(eng *engine.Engine, consumerMgr *events.ConsumerManager, runnerCfg engine.RunnerConfig, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = 5 * time.Minute
	}
	return &Scheduler{
		engine:      eng,
		consumerMgr: consumerMgr,
		runnerCfg:   runnerCfg,
		tick:        tick,
	}
}

// Start blocks until the context is canceled. The periodic batch and the
// task consumer run concurrently; either finishing ends the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.consumerMgr != nil {
		go func() {
			if err := s.consumeTasks(ctx); err != nil {
				slog.Error("task consumer stopped", "error", err)
			}
		}()
	}

	slog.Info("scheduler started", "tick", s.tick)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	// One batch right away rather than waiting a full tick.
	s.runBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.runBatch(ctx)
		}
	}
}

func (s *Scheduler) runBatch(ctx context.Context) {
	results, err := s.engine.RunDueKeywords(ctx, s.runnerCfg)
	if err != nil {
		slog.Error("running collection batch", "error", err)
		return
	}
	for _, r := range results {
		if r.Outcome == engine.OutcomeFailed {
			slog.Warn("keyword collection failed", "keyword_id", r.KeywordID, "error", r.Err)
		}
	}
}

func (s *Scheduler) consumeTasks(ctx context.Context) error {
	consumer, err := s.consumerMgr.EnsureConsumer(ctx, events.StreamTasks, "scheduler-collect", events.SubjectCollectTask)
	if err != nil {
		return err
	}

	slog.Info("task consumer started", "consumer", "scheduler-collect")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(events.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching collection tasks", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			s.processTask(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *Scheduler) processTask(ctx context.Context, msg jetstream.Msg) {
	var task events.CollectTask
	if err := json.Unmarshal(msg.Data(), &task); err != nil {
		slog.Error("unmarshaling collection task", "error", err)
		_ = msg.Nak()
		return
	}

	slog.Debug("running queued collection", "keyword_id", task.KeywordID, "user_id", task.UserID)

	req := engine.CycleRequest{
		KeywordID:   task.KeywordID,
		TriggerType: history.TriggerManual,
	}
	if task.RequestedStart != nil && task.RequestedEnd != nil {
		iv := interval.New(*task.RequestedStart, *task.RequestedEnd)
		if !iv.IsEmpty() {
			req.Requested = &iv
		}
	}

	res := s.engine.RunCollectionCycle(ctx, req)
	if res.Outcome == engine.OutcomeFailed {
		slog.Warn("queued collection failed", "keyword_id", task.KeywordID, "error", res.Err)
	}
	_ = msg.Ack()
}
