package task

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/ipfsnut/birthdays-with-jose/internal/config"
	"github.com/ipfsnut/birthdays-with-jose/internal/logger"
	"github.com/ipfsnut/birthdays-with-jose/internal/relay"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
)

// ReconcileJob 镜像对账任务。定期把引擎事件日志整体重放进账本，
// 修复中继漏写的记录；镜像写入幂等，重放是安全的
type ReconcileJob struct {
	engine *sales.Engine
	relay  *relay.Relay
	config *config.Config
}

// NewReconcileJob 创建对账任务
func NewReconcileJob(engine *sales.Engine, r *relay.Relay, cfg *config.Config) *ReconcileJob {
	return &ReconcileJob{
		engine: engine,
		relay:  r,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *ReconcileJob) GetName() string {
	return "order_mirror_reconciler"
}

// GetSchedule 获取调度配置
func (j *ReconcileJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *ReconcileJob) Execute() {
	logger.Debug("Starting mirror reconcile task")

	events := j.engine.Events(0)
	failedCount := 0

	for _, event := range events {
		if err := j.relay.Apply(event); err != nil {
			logger.Error("Failed to reconcile event %s (seq %d): %v", event.Name, event.Seq, err)
			failedCount++
		}
	}

	if failedCount > 0 {
		logger.Warn("Mirror reconcile completed with %d failures out of %d events", failedCount, len(events))
		return
	}
	logger.Debug("Mirror reconcile completed, %d events replayed", len(events))
}
