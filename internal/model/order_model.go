package model

import (
	"time"
)

// OrderModel 订单账本记录（链下镜像，非权威数据）
type OrderModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 铸造信息
	TokenId   int64  `json:"token_id" gorm:"uniqueIndex;not null"`
	SongType  string `json:"song_type" gorm:"not null"`
	ContentId string `json:"content_id" gorm:"not null"`
	OrderedBy string `json:"ordered_by" gorm:"not null"`
	PricePaid int64  `json:"price_paid" gorm:"not null"`

	// 交付信息
	SongContentId string      `json:"song_content_id"`
	Status        OrderStatus `json:"status" gorm:"default:'pending'"`
	FulfilledAt   *time.Time  `json:"fulfilled_at"`
}

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // 已下单待制作
	OrderStatusFulfilled OrderStatus = "fulfilled" // 已交付
)

// TableName 自定义表名
func (OrderModel) TableName() string {
	return "orders"
}
