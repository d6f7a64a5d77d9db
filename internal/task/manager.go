package task

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/ipfsnut/birthdays-with-jose/internal/config"
	"github.com/ipfsnut/birthdays-with-jose/internal/logger"
	"github.com/ipfsnut/birthdays-with-jose/internal/relay"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
)

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	engine    *sales.Engine
	relay     *relay.Relay
	config    *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(engine *sales.Engine, r *relay.Relay, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		engine:    engine,
		relay:     r,
		config:    cfg,
	}
}

// Start 启动任务管理器
func Start(engine *sales.Engine, r *relay.Relay, cfg *config.Config) *Manager {
	manager := NewManager(engine, r, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	// 注册镜像对账任务
	m.RegisterReconcileJob()
}

// RegisterReconcileJob 注册镜像对账任务
func (m *Manager) RegisterReconcileJob() {
	job := NewReconcileJob(m.engine, m.relay, m.config)

	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
