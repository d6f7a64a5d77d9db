package model

import (
	"time"
)

// WithdrawalRecordModel 提现结算记录，每次提现一行，便于审计水位线窗口
type WithdrawalRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 水位线窗口 [from, to)
	WatermarkFrom int64 `json:"watermark_from" gorm:"not null"`
	WatermarkTo   int64 `json:"watermark_to" gorm:"not null"`
	OrderCount    int64 `json:"order_count" gorm:"not null"`

	// 分账金额（最小单位）
	PlatformFee int64 `json:"platform_fee" gorm:"not null"`
	OwnerAmount int64 `json:"owner_amount" gorm:"not null"`
}

// TableName 自定义表名
func (WithdrawalRecordModel) TableName() string {
	return "withdrawal_record"
}
