package relay

import (
	"encoding/json"
	"fmt"

	"github.com/ipfsnut/birthdays-with-jose/internal/logger"
	"github.com/ipfsnut/birthdays-with-jose/internal/logic"
	"github.com/ipfsnut/birthdays-with-jose/internal/model"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// Relay 引擎事件中继。订阅引擎日志并幂等落入账本镜像。
// 镜像写入尽力而为：失败只记日志，由对账任务重放修复，
// 绝不把镜像失败当成整体操作失败（权威状态已经成功）
type Relay struct {
	pool            *ants.Pool
	orderLogic      *logic.OrderLogic
	eventLogic      *logic.EventLogic
	withdrawalLogic *logic.WithdrawalLogic
	contractAddress string
	contractName    string
}

// NewRelay 创建事件中继
func NewRelay(db *gorm.DB, contractAddress string) (*Relay, error) {
	pool, err := ants.NewPool(4)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay pool: %w", err)
	}

	return &Relay{
		pool:            pool,
		orderLogic:      logic.NewOrderLogic(db),
		eventLogic:      logic.NewEventLogic(db),
		withdrawalLogic: logic.NewWithdrawalLogic(db),
		contractAddress: contractAddress,
		contractName:    "songnft",
	}, nil
}

// Publish 实现sales.Sink，在引擎锁内被调用，必须快速返回
func (r *Relay) Publish(event sales.Event) {
	if err := r.pool.Submit(func() {
		if err := r.Apply(event); err != nil {
			logger.Error("Failed to mirror event %s (seq %d): %v", event.Name, event.Seq, err)
		}
	}); err != nil {
		logger.Error("Failed to submit event %s (seq %d) to relay pool: %v", event.Name, event.Seq, err)
	}
}

// Apply 将单个事件幂等落入镜像，对账任务重放时也走这里
func (r *Relay) Apply(event sales.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	eventRow := &model.EventModel{
		ContractAddress: r.contractAddress,
		ContractName:    r.contractName,
		EventName:       event.Name,
		TxHash:          fmt.Sprintf("seq-%d", event.Seq),
		BlockNum:        event.Seq,
		LogIndex:        0,
		Data:            string(data),
	}
	if err := r.eventLogic.CreateEvent(eventRow); err != nil {
		return err
	}

	switch event.Name {
	case sales.EventCreated:
		err = r.orderLogic.RecordCreated(logic.CreatedRecord{
			TokenId:   asInt64(event.Data["tokenId"]),
			SongType:  asString(event.Data["songType"]),
			ContentId: asString(event.Data["contentId"]),
			OrderedBy: asString(event.Data["payer"]),
			PricePaid: asInt64(event.Data["price"]),
		})
	case sales.EventFulfilled:
		err = r.orderLogic.RecordFulfilled(asInt64(event.Data["tokenId"]), asString(event.Data["contentId"]))
	case sales.EventWithdrawn:
		err = r.withdrawalLogic.RecordWithdrawal(&model.WithdrawalRecordModel{
			WatermarkFrom: asInt64(event.Data["watermarkFrom"]),
			WatermarkTo:   asInt64(event.Data["watermarkTo"]),
			OrderCount:    asInt64(event.Data["orderCount"]),
			PlatformFee:   asInt64(event.Data["platformFee"]),
			OwnerAmount:   asInt64(event.Data["ownerAmount"]),
		})
	default:
		// 管理类事件只留事件行
	}
	if err != nil {
		return err
	}

	if eventRow.Id > 0 {
		if err := r.eventLogic.UpdateEventProcessed(eventRow.Id, true); err != nil {
			logger.Warn("Failed to mark event %d processed: %v", eventRow.Id, err)
		}
	}

	return nil
}

// Release 释放协程池
func (r *Relay) Release() {
	r.pool.Release()
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
