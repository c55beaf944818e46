package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"eventhub/logger"
)

// NewServer builds the worker that drains QueueName.
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueName: 1},
		Logger:      asynqLogger{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, t *asynq.Task, err error) {
			logger.Warn("task failed", "type", t.Type(), "err", err)
		}),
	})
}

// NewScheduler registers the periodic full scan on cronspec.
func NewScheduler(opt asynq.RedisConnOpt, cronspec string) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   asynqLogger{},
	})
	if _, err := s.Register(cronspec, NewScanTask(), asynq.Queue(QueueName), asynq.MaxRetry(0)); err != nil {
		return nil, fmt.Errorf("register scan %q: %w", cronspec, err)
	}
	return s, nil
}

// asynqLogger routes asynq's internal logging through the app logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { logger.Debug(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Info(args ...interface{}) { logger.Info(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Warn(args ...interface{}) { logger.Warn(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Error(args ...interface{}) { logger.Error(fmt.Sprint(args...), "component", "asynq") }

func (asynqLogger) Fatal(args ...interface{}) {
	logger.Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
