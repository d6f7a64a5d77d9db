package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/ipfsnut/birthdays-with-jose/internal/model"
	"gorm.io/gorm"
)

// OrderLogic 订单账本业务逻辑。账本是链下镜像，只做展示用途，
// 写入按token_id幂等，重复写入不产生第二行
type OrderLogic struct {
	db *gorm.DB
}

// NewOrderLogic 创建订单账本业务逻辑
func NewOrderLogic(db *gorm.DB) *OrderLogic {
	return &OrderLogic{db: db}
}

// CreatedRecord 铸造事件镜像数据
type CreatedRecord struct {
	TokenId   int64
	SongType  string
	ContentId string
	OrderedBy string
	PricePaid int64
}

// RecordCreated 记录新订单，按token_id幂等：已存在的行原样保留
func (l *OrderLogic) RecordCreated(record CreatedRecord) error {
	if err := l.validateCreatedRecord(record); err != nil {
		return err
	}

	// 先查再插，token_id上的唯一索引兜底并发下的重复插入
	var existing model.OrderModel
	err := l.db.Where("token_id = ?", record.TokenId).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询订单失败: %w", err)
	}

	order := model.OrderModel{
		TokenId:   record.TokenId,
		SongType:  record.SongType,
		ContentId: record.ContentId,
		OrderedBy: record.OrderedBy,
		PricePaid: record.PricePaid,
		Status:    model.OrderStatusPending,
	}
	if err := l.db.Create(&order).Error; err != nil {
		// 并发下撞到唯一索引视为已写入
		var again model.OrderModel
		if findErr := l.db.Where("token_id = ?", record.TokenId).First(&again).Error; findErr == nil {
			return nil
		}
		return fmt.Errorf("创建订单记录失败: %w", err)
	}

	return nil
}

// RecordFulfilled 记录交付，幂等：重复应用得到同样的结束状态
func (l *OrderLogic) RecordFulfilled(tokenId int64, songContentId string) error {
	if songContentId == "" {
		return errors.New("歌曲内容标识不能为空")
	}

	var order model.OrderModel
	if err := l.db.Where("token_id = ?", tokenId).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("订单不存在")
		}
		return fmt.Errorf("查询订单失败: %w", err)
	}

	if order.Status == model.OrderStatusFulfilled {
		return nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":          model.OrderStatusFulfilled,
		"song_content_id": songContentId,
		"fulfilled_at":    &now,
	}
	if err := l.db.Model(&order).Updates(updates).Error; err != nil {
		return fmt.Errorf("更新订单状态失败: %w", err)
	}

	return nil
}

// GetOrders 获取订单列表
func (l *OrderLogic) GetOrders(status, orderedBy string, page, pageSize int) ([]model.OrderModel, int64, error) {
	var orders []model.OrderModel
	var total int64

	query := l.db.Model(&model.OrderModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if orderedBy != "" {
		query = query.Where("ordered_by = ?", orderedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取订单总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("token_id ASC").Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("获取订单列表失败: %w", err)
	}

	return orders, total, nil
}

// GetOrder 按token_id获取单个订单
func (l *OrderLogic) GetOrder(tokenId int64) (*model.OrderModel, error) {
	var order model.OrderModel
	if err := l.db.Where("token_id = ?", tokenId).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("订单不存在")
		}
		return nil, fmt.Errorf("获取订单失败: %w", err)
	}

	return &order, nil
}

// GetOrderStats 获取订单统计信息
func (l *OrderLogic) GetOrderStats() (map[string]interface{}, error) {
	var stats struct {
		TotalOrders     int64 `json:"total_orders"`
		PendingOrders   int64 `json:"pending_orders"`
		FulfilledOrders int64 `json:"fulfilled_orders"`
		TotalPaid       int64 `json:"total_paid"`
	}

	if err := l.db.Model(&model.OrderModel{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("获取订单总数失败: %w", err)
	}
	if err := l.db.Model(&model.OrderModel{}).Where("status = ?", model.OrderStatusPending).Count(&stats.PendingOrders).Error; err != nil {
		return nil, fmt.Errorf("获取待交付订单数失败: %w", err)
	}
	if err := l.db.Model(&model.OrderModel{}).Where("status = ?", model.OrderStatusFulfilled).Count(&stats.FulfilledOrders).Error; err != nil {
		return nil, fmt.Errorf("获取已交付订单数失败: %w", err)
	}
	if err := l.db.Model(&model.OrderModel{}).Select("COALESCE(SUM(price_paid), 0)").Scan(&stats.TotalPaid).Error; err != nil {
		return nil, fmt.Errorf("获取支付总额失败: %w", err)
	}

	return map[string]interface{}{
		"total_orders":     stats.TotalOrders,
		"pending_orders":   stats.PendingOrders,
		"fulfilled_orders": stats.FulfilledOrders,
		"total_paid":       stats.TotalPaid,
	}, nil
}

// validateCreatedRecord 验证铸造镜像数据
func (l *OrderLogic) validateCreatedRecord(record CreatedRecord) error {
	if record.TokenId < 0 {
		return errors.New("token_id不能为负数")
	}
	if record.ContentId == "" {
		return errors.New("内容标识不能为空")
	}
	if record.OrderedBy == "" {
		return errors.New("下单地址不能为空")
	}
	if record.SongType == "" {
		return errors.New("歌曲类型不能为空")
	}
	return nil
}
