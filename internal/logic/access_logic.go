package logic

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
)

// 访问门禁错误
var (
	ErrNotFulfilled = errors.New("order not fulfilled")
	ErrNotHolder    = errors.New("caller does not hold the token")
)

// Authority 权威状态读取接口，由销售引擎实现
type Authority interface {
	OrderOf(tokenId int64) (sales.Order, error)
	OwnerOf(tokenId int64) (common.Address, error)
}

// AccessLogic 成品取回的访问门禁。镜像与权威状态会短暂不一致，
// 授权判定必须回查权威状态，绝不只看账本
type AccessLogic struct {
	authority Authority
}

// NewAccessLogic 创建访问门禁
func NewAccessLogic(authority Authority) *AccessLogic {
	return &AccessLogic{authority: authority}
}

// SongAccess 校验后返回成品内容指针。两项检查缺一不可：
// 订单已交付，且请求地址是代币当前持有人
func (l *AccessLogic) SongAccess(tokenId int64, caller common.Address) (string, error) {
	order, err := l.authority.OrderOf(tokenId)
	if err != nil {
		return "", err
	}
	if !order.Fulfilled {
		return "", fmt.Errorf("%w: token %d", ErrNotFulfilled, tokenId)
	}

	holder, err := l.authority.OwnerOf(tokenId)
	if err != nil {
		return "", err
	}
	if holder != caller {
		return "", fmt.Errorf("%w: token %d", ErrNotHolder, tokenId)
	}

	return order.SongURI, nil
}
