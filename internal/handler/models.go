package handler

import "encoding/json"

// Response 统一响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	SongType     string          `json:"song_type" binding:"required"`
	BuyerAddress string          `json:"buyer_address" binding:"required"`
	OrderData    json.RawMessage `json:"order_data" binding:"required"`
}

// FulfillOrderRequest 交付请求
type FulfillOrderRequest struct {
	CallerAddress string `json:"caller_address" binding:"required"`
	SongData      []byte `json:"song_data" binding:"required"`
}

// WithdrawRequest 提现请求
type WithdrawRequest struct {
	CallerAddress string `json:"caller_address" binding:"required"`
}

// SetPricesRequest 改价请求
type SetPricesRequest struct {
	CallerAddress string `json:"caller_address" binding:"required"`
	BirthdayPrice int64  `json:"birthday_price" binding:"required"`
	NatalPrice    int64  `json:"natal_price" binding:"required"`
}

// SetPlatformWalletRequest 平台钱包变更请求
type SetPlatformWalletRequest struct {
	CallerAddress string `json:"caller_address" binding:"required"`
	Wallet        string `json:"wallet" binding:"required"`
}
