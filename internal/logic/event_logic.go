package logic

import (
	"errors"
	"fmt"

	"github.com/ipfsnut/birthdays-with-jose/internal/model"
	"gorm.io/gorm"
)

// EventLogic 事件记录业务逻辑
type EventLogic struct {
	db *gorm.DB
}

// NewEventLogic 创建事件业务逻辑
func NewEventLogic(db *gorm.DB) *EventLogic {
	return &EventLogic{db: db}
}

// CreateEvent 创建事件记录，按(tx_hash, log_index)幂等
func (e *EventLogic) CreateEvent(event *model.EventModel) error {
	if err := e.validateEvent(event); err != nil {
		return err
	}

	var existing model.EventModel
	err := e.db.Where("tx_hash = ? AND log_index = ?", event.TxHash, event.LogIndex).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询事件失败: %w", err)
	}

	if err := e.db.Create(event).Error; err != nil {
		var again model.EventModel
		if findErr := e.db.Where("tx_hash = ? AND log_index = ?", event.TxHash, event.LogIndex).First(&again).Error; findErr == nil {
			return nil
		}
		return fmt.Errorf("创建事件记录失败: %w", err)
	}

	return nil
}

// GetMaxBlockNum 获取指定合约已记录的最大区块号，链上导入据此续传
func (e *EventLogic) GetMaxBlockNum(contractAddress string) (int64, error) {
	var maxBlock int64
	err := e.db.Model(&model.EventModel{}).
		Where("contract_address = ?", contractAddress).
		Select("COALESCE(MAX(block_num), 0)").
		Scan(&maxBlock).Error
	if err != nil {
		return 0, fmt.Errorf("获取最大区块号失败: %w", err)
	}
	return maxBlock, nil
}

// UpdateEventProcessed 更新事件处理状态
func (e *EventLogic) UpdateEventProcessed(id int64, processed bool) error {
	if err := e.db.Model(&model.EventModel{}).Where("id = ?", id).Update("processed", processed).Error; err != nil {
		return fmt.Errorf("更新事件处理状态失败: %w", err)
	}
	return nil
}

// GetUnprocessedEvents 获取未处理的事件
func (e *EventLogic) GetUnprocessedEvents(limit int) ([]model.EventModel, error) {
	var events []model.EventModel
	if err := e.db.Where("processed = ?", false).
		Order("block_num ASC, log_index ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("获取未处理事件失败: %w", err)
	}
	return events, nil
}

// validateEvent 验证事件数据
func (e *EventLogic) validateEvent(event *model.EventModel) error {
	if event.TxHash == "" {
		return errors.New("交易哈希不能为空")
	}
	if event.EventName == "" {
		return errors.New("事件名称不能为空")
	}
	if event.ContractAddress == "" {
		return errors.New("合约地址不能为空")
	}
	return nil
}
