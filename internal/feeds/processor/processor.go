// Package processor runs the periodic claim-and-fanout loop: every tick
// it claims visible tasks and drives each one through the fan-out
// service, advancing or retiring it.
package processor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/bez-dna/bzd-flux/internal/feeds"
	"github.com/bez-dna/bzd-flux/internal/feeds/metrics"
	"github.com/bez-dna/bzd-flux/internal/logging"
)

// schedule is the tick interval. A missed tick (previous still running)
// is skipped, never queued, via cron.SkipIfStillRunning.
const schedule = "@every 3s"

// TaskQueue is the slice of the queue component the processor needs.
type TaskQueue interface {
	Claim(ctx context.Context) ([]feeds.Task, error)
	Advance(ctx context.Context, taskID uuid.UUID, messageID, topicID, cursor uuid.UUID) error
	Complete(ctx context.Context, taskID uuid.UUID) error
}

// FanoutService is the slice of the fan-out component the processor
// needs.
type FanoutService interface {
	CreateEntriesForMessageTopic(ctx context.Context, messageID, topicID uuid.UUID, lastTopicUserID *uuid.UUID) (*uuid.UUID, error)
}

// Processor drives the cron.Cron schedule that runs Tick.
type Processor struct {
	queue   TaskQueue
	fanout  FanoutService
	log     logging.Logger
	cron    *cron.Cron
	metrics *metrics.Metrics
}

// New builds a Processor; call Start to begin ticking and Stop to
// cooperatively drain in-flight ticks.
func New(queue TaskQueue, fanout FanoutService, log logging.Logger) *Processor {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})))
	return &Processor{queue: queue, fanout: fanout, log: log, cron: c}
}

// WithMetrics attaches a collector set; ticks update it as they run. Not
// calling this leaves metrics uncollected.
func (p *Processor) WithMetrics(m *metrics.Metrics) *Processor {
	p.metrics = m
	return p
}

// Start registers the tick schedule and begins running it in the
// background. ctx is captured by the scheduled func and bounds every
// tick's database and fan-out calls.
func (p *Processor) Start(ctx context.Context) error {
	_, err := p.cron.AddFunc(schedule, func() {
		if err := p.Tick(ctx); err != nil {
			p.log.Error("processor tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("processor: register schedule: %w", err)
	}
	p.cron.Start()
	return nil
}

// Stop waits for any in-flight tick to finish, then returns.
func (p *Processor) Stop() {
	<-p.cron.Stop().Done()
}

// Tick claims one batch of visible tasks and drives each through
// fan-out, sequentially. A per-task error is logged and the task is left
// leased, to be retried after its visibility timeout expires.
func (p *Processor) Tick(ctx context.Context) error {
	tasks, err := p.queue.Claim(ctx)
	if err != nil {
		return fmt.Errorf("processor: claim tasks: %w", err)
	}

	for _, task := range tasks {
		if err := p.runTask(ctx, task); err != nil {
			p.log.Error("task fan-out failed, leaving leased for retry",
				"task_id", task.TaskID, "error", err)
		}
	}
	return nil
}

func (p *Processor) runTask(ctx context.Context, task feeds.Task) error {
	if p.metrics != nil {
		p.metrics.TasksClaimed.Inc()
		timer := prometheus.NewTimer(p.metrics.TaskFanoutDuration)
		defer timer.ObserveDuration()
	}

	if task.Payload.Kind != feeds.CreateMessageTopicKind || task.Payload.CreateMessageTopic == nil {
		return fmt.Errorf("%w: %s", feeds.ErrUnknownPayloadKind, task.Payload.Kind)
	}
	body := task.Payload.CreateMessageTopic

	cursor, err := p.fanout.CreateEntriesForMessageTopic(ctx, body.MessageID, body.TopicID, body.LastTopicUserID)
	if err != nil {
		return fmt.Errorf("fan out task %s: %w", task.TaskID, err)
	}

	if cursor == nil {
		if err := p.queue.Complete(ctx, task.TaskID); err != nil {
			return fmt.Errorf("complete task %s: %w", task.TaskID, err)
		}
		if p.metrics != nil {
			p.metrics.TasksCompleted.Inc()
		}
		return nil
	}

	if err := p.queue.Advance(ctx, task.TaskID, body.MessageID, body.TopicID, *cursor); err != nil {
		return fmt.Errorf("advance task %s: %w", task.TaskID, err)
	}
	return nil
}

// cronLogger adapts logging.Logger to cron.Logger's shape, which splits
// the error out of the keysAndValues list cron's own Logger uses.
type cronLogger struct {
	log logging.Logger
}

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Info(msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Error(msg, append([]interface{}{"error", err}, kv...)...)
}
