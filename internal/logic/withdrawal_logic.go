package logic

import (
	"errors"
	"fmt"

	"github.com/ipfsnut/birthdays-with-jose/internal/model"
	"gorm.io/gorm"
)

// WithdrawalLogic 提现结算记录业务逻辑
type WithdrawalLogic struct {
	db *gorm.DB
}

// NewWithdrawalLogic 创建提现记录业务逻辑
func NewWithdrawalLogic(db *gorm.DB) *WithdrawalLogic {
	return &WithdrawalLogic{db: db}
}

// RecordWithdrawal 记录一次提现结算，按水位线窗口幂等
func (w *WithdrawalLogic) RecordWithdrawal(record *model.WithdrawalRecordModel) error {
	if record.WatermarkTo < record.WatermarkFrom {
		return errors.New("水位线窗口无效")
	}

	var existing model.WithdrawalRecordModel
	err := w.db.Where("watermark_from = ? AND watermark_to = ?",
		record.WatermarkFrom, record.WatermarkTo).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询提现记录失败: %w", err)
	}

	if err := w.db.Create(record).Error; err != nil {
		return fmt.Errorf("创建提现记录失败: %w", err)
	}
	return nil
}

// GetWithdrawals 获取提现记录列表
func (w *WithdrawalLogic) GetWithdrawals(page, pageSize int) ([]model.WithdrawalRecordModel, int64, error) {
	var records []model.WithdrawalRecordModel
	var total int64

	if err := w.db.Model(&model.WithdrawalRecordModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取提现记录总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := w.db.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("获取提现记录列表失败: %w", err)
	}

	return records, total, nil
}
