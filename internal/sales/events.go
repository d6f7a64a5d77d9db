package sales

import (
	"time"
)

// 引擎事件名，与原链上合约事件保持一致，镜像中继据此分发
const (
	EventCreated               = "Created"
	EventFulfilled             = "Fulfilled"
	EventPricesUpdated         = "PricesUpdated"
	EventPlatformWalletUpdated = "PlatformWalletUpdated"
	EventWithdrawn             = "Withdrawn"
)

// Event 引擎事件，Seq在日志中单调递增且连续
type Event struct {
	Seq       int64                  `json:"seq"`
	Name      string                 `json:"name"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"created_at"`
}

// Sink 事件接收方。Publish在引擎锁内调用，实现必须快速返回且
// 不得同步回调引擎
type Sink interface {
	Publish(event Event)
}
