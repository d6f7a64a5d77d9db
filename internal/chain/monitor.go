package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ipfsnut/birthdays-with-jose/internal/config"
	"github.com/ipfsnut/birthdays-with-jose/internal/logger"
	"github.com/ipfsnut/birthdays-with-jose/internal/logic"
	"github.com/ipfsnut/birthdays-with-jose/internal/model"
	"gorm.io/gorm"
)

// ImportMonitor 链上历史导入器。把原链上部署的Created/Fulfilled日志
// 重放进同一套账本镜像，用于迁移期补齐历史订单。写入全部幂等，
// 中断后从已记录的最大区块号续传
type ImportMonitor struct {
	client     *ethclient.Client
	contract   *Contract
	orderLogic *logic.OrderLogic
	eventLogic *logic.EventLogic
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewImportMonitor 创建链上导入器
func NewImportMonitor(cfg config.ChainConfig, db *gorm.DB) (*ImportMonitor, error) {
	if cfg.RpcUrl == "" {
		return nil, fmt.Errorf("no RPC URL configured")
	}

	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain client: %w", err)
	}

	contract, err := NewContract(cfg.Contract, cfg)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ImportMonitor{
		client:     client,
		contract:   contract,
		orderLogic: logic.NewOrderLogic(db),
		eventLogic: logic.NewEventLogic(db),
		interval:   time.Second * 60,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start 启动导入循环
func (m *ImportMonitor) Start() error {
	block := NewBlock()
	currentBlock, err := block.GetCurrentBlockNumber(m.ctx, m.client)
	if err != nil {
		return fmt.Errorf("failed to connect to blockchain: %w", err)
	}
	logger.Info("Connected to blockchain, current block: %d", currentBlock)

	go m.loop()
	return nil
}

// Stop 停止导入
func (m *ImportMonitor) Stop() {
	logger.Info("Stopping chain import monitor")
	m.cancel()
	m.client.Close()
}

// loop 导入循环
func (m *ImportMonitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			logger.Info("Chain import monitor stopped")
			return
		case <-ticker.C:
			if err := m.runOnce(); err != nil {
				logger.Error("Chain import pass failed: %v", err)
			}
		}
	}
}

// runOnce 执行一轮导入
func (m *ImportMonitor) runOnce() error {
	block := NewBlock()

	currentBlock, err := block.GetCurrentBlockNumber(m.ctx, m.client)
	if err != nil {
		return fmt.Errorf("failed to get current block number: %w", err)
	}

	startBlock, err := m.getStartBlockNum()
	if err != nil {
		return err
	}
	if startBlock > currentBlock {
		return nil
	}

	// 分批拉取，避免单次请求范围过大
	batchSize := int64(500)
	for from := startBlock; from <= currentBlock; from += batchSize {
		to := from + batchSize - 1
		if to > currentBlock {
			to = currentBlock
		}

		logs, err := block.GetBatchBlockLogs(m.ctx, m.client, m.contract.GetAddress(), from, to)
		if err != nil {
			return fmt.Errorf("error getting logs for blocks %d-%d: %w", from, to, err)
		}

		for _, log := range logs {
			if err := m.processLog(log); err != nil {
				logger.Error("Error processing log at block %d: %v", log.BlockNumber, err)
			}
		}

		time.Sleep(time.Millisecond * 200)
	}

	return nil
}

// getStartBlockNum 计算续传起点：部署区块与已记录最大区块的较大者
func (m *ImportMonitor) getStartBlockNum() (int64, error) {
	deployBlock := m.contract.GetBlockNum()

	maxRecorded, err := m.eventLogic.GetMaxBlockNum(m.contract.GetAddress().Hex())
	if err != nil {
		return 0, err
	}

	if maxRecorded >= deployBlock {
		return maxRecorded + 1, nil
	}
	return deployBlock, nil
}

// processLog 解析单条日志并幂等落入镜像
func (m *ImportMonitor) processLog(log types.Log) error {
	eventData, err := m.contract.ParseEvent(log)
	if err != nil {
		return fmt.Errorf("error parsing event: %w", err)
	}

	eventName, _ := eventData["eventName"].(string)

	dataJSON, err := json.Marshal(normalizeEventData(eventData))
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := &model.EventModel{
		ContractAddress: m.contract.GetAddress().Hex(),
		ContractName:    m.contract.GetName(),
		EventName:       eventName,
		TxHash:          log.TxHash.Hex(),
		BlockNum:        int64(log.BlockNumber),
		LogIndex:        int64(log.Index),
		Data:            string(dataJSON),
	}
	if err := m.eventLogic.CreateEvent(event); err != nil {
		return err
	}

	switch eventName {
	case "Created":
		err = m.orderLogic.RecordCreated(logic.CreatedRecord{
			TokenId:   toInt64(eventData["tokenId"]),
			SongType:  songTypeName(toInt64(eventData["songType"])),
			ContentId: toString(eventData["contentId"]),
			OrderedBy: toAddressHex(eventData["payer"]),
			PricePaid: toInt64(eventData["price"]),
		})
	case "Fulfilled":
		err = m.orderLogic.RecordFulfilled(toInt64(eventData["tokenId"]), toString(eventData["contentId"]))
	default:
		logger.Debug("Skipping event %s at block %d", eventName, log.BlockNumber)
		return nil
	}
	if err != nil {
		return err
	}

	if event.Id > 0 {
		if err := m.eventLogic.UpdateEventProcessed(event.Id, true); err != nil {
			logger.Warn("Failed to mark event %d processed: %v", event.Id, err)
		}
	}

	return nil
}

// normalizeEventData 把ABI解码值转成可序列化的普通类型
func normalizeEventData(data map[string]interface{}) map[string]interface{} {
	normalized := make(map[string]interface{}, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case *big.Int:
			normalized[key] = v.String()
		case common.Address:
			normalized[key] = v.Hex()
		case []byte:
			normalized[key] = common.Bytes2Hex(v)
		default:
			normalized[key] = v
		}
	}
	return normalized
}

// songTypeName 链上songType枚举值转类型名
func songTypeName(v int64) string {
	switch v {
	case 0:
		return "birthday"
	case 1:
		return "natal"
	default:
		return fmt.Sprintf("unknown(%d)", v)
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case *big.Int:
		return n.Int64()
	case uint8:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toAddressHex(v interface{}) string {
	switch a := v.(type) {
	case common.Address:
		return a.Hex()
	case string:
		return a
	default:
		return ""
	}
}
