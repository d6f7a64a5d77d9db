package sales

import "errors"

// 引擎错误对应合约的同步revert，所有守卫失败都不产生任何状态变化
var (
	ErrValidation       = errors.New("validation error")
	ErrSoldOut          = errors.New("sold out")
	ErrAlreadyFulfilled = errors.New("already fulfilled")
	ErrTransferFailed   = errors.New("transfer failed")
	ErrNoFunds          = errors.New("no funds")
	ErrNotFound         = errors.New("not found")
	ErrNotOwner         = errors.New("caller is not the owner")
)
