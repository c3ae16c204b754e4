package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 按 cron 表达式定时执行每日汇总，时区固定为 UTC
type Scheduler struct {
	cron       *cron.Cron
	aggregator *Aggregator
	spec       string
	logger     *zap.SugaredLogger
}

// NewScheduler spec 为带秒的 cron 表达式，例如 "0 5 0 * * *"
func NewScheduler(a *Aggregator, spec string, logger *zap.SugaredLogger) (*Scheduler, error) {
	log := cronLogger{logger.Named("cron")}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	s := &Scheduler{cron: c, aggregator: a, spec: spec, logger: logger.Named("scheduler")}
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run() {
	res, err := s.aggregator.RunDaily(context.Background(), time.Now())
	if errors.Is(err, ErrAlreadyRunning) {
		s.logger.Infow("汇总任务已在其他实例执行，跳过本次")
		return
	}
	if err != nil {
		s.logger.Errorw("定时汇总失败", "date", res.Date, "error", err)
	}
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infow("汇总任务已调度", "spec", s.spec)
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 把 cron 的日志转到 zap
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
