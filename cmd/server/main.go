package main

import (
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/ipfsnut/birthdays-with-jose/internal/chain"
	"github.com/ipfsnut/birthdays-with-jose/internal/config"
	"github.com/ipfsnut/birthdays-with-jose/internal/database"
	"github.com/ipfsnut/birthdays-with-jose/internal/logger"
	"github.com/ipfsnut/birthdays-with-jose/internal/relay"
	"github.com/ipfsnut/birthdays-with-jose/internal/router"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
	"github.com/ipfsnut/birthdays-with-jose/internal/storage"
	"github.com/ipfsnut/birthdays-with-jose/internal/task"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	setupLogger(cfg.Log)
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化销售引擎，所有权威状态都在引擎内
	token := sales.NewMemoryToken()
	engine, err := sales.NewEngine(sales.Params{
		BirthdayCap:    cfg.Sales.BirthdayCap,
		NatalCap:       cfg.Sales.NatalCap,
		BirthdayPrice:  big.NewInt(cfg.Sales.BirthdayPrice),
		NatalPrice:     big.NewInt(cfg.Sales.NatalPrice),
		FeePerOrder:    big.NewInt(cfg.Sales.FeePerOrder),
		Owner:          common.HexToAddress(cfg.Sales.OwnerAddress),
		PlatformWallet: common.HexToAddress(cfg.Sales.PlatformWallet),
		Address:        common.HexToAddress(cfg.Sales.EngineAddress),
	}, token)
	if err != nil {
		logger.Fatal("Failed to initialize sales engine: %v", err)
	}

	// 初始化内容存储与加密盒
	store, err := setupStore(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize content store: %v", err)
	}
	sealBox, err := storage.NewSealBox(cfg.Sales.MasterKey)
	if err != nil {
		logger.Fatal("Failed to initialize seal box: %v", err)
	}

	// 事件中继：引擎事件异步落入账本镜像
	eventRelay, err := relay.NewRelay(db, cfg.Sales.EngineAddress)
	if err != nil {
		logger.Fatal("Failed to initialize event relay: %v", err)
	}
	engine.AddSink(eventRelay)
	defer eventRelay.Release()

	// 链上历史导入，仅迁移场景启用
	if cfg.Chain.Enabled {
		monitor, err := chain.NewImportMonitor(cfg.Chain, db)
		if err != nil {
			logger.Fatal("Failed to initialize chain import monitor: %v", err)
		}
		if err := monitor.Start(); err != nil {
			logger.Fatal("Failed to start chain import monitor: %v", err)
		}
		defer monitor.Stop()
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, engine, store, sealBox, cfg)

	// 启动定时任务
	taskManager := task.Start(engine, eventRelay, cfg)
	defer taskManager.Stop()

	// 启动服务器
	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := r.Run(":" + cfg.Server.Port); err != nil {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
}

func setupLogger(cfg config.LogConfig) {
	level := logger.ParseLogLevel(cfg.Level)

	var l *logger.Logger
	var err error
	if cfg.Output == "file" {
		l, err = logger.NewWithFile(level, logger.FileConfig{Filename: cfg.File})
	} else {
		l, err = logger.New(level)
	}
	if err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(l)
}

func setupStore(cfg config.StorageConfig) (storage.Store, error) {
	if cfg.Mode == "gateway" {
		return storage.NewGatewayStore(cfg)
	}
	return storage.NewMemoryStore(), nil
}
