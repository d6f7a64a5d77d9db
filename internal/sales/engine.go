package sales

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfsnut/birthdays-with-jose/internal/logger"
)

// Order 单个已铸造代币的订单记录，除fulfilled/songUri外全部不可变
type Order struct {
	TokenId      int64          `json:"token_id"`
	SongType     SongType       `json:"song_type"`
	OrderDataURI string         `json:"order_data_uri"`
	OrderedBy    common.Address `json:"ordered_by"`
	OrderedAt    time.Time      `json:"ordered_at"`
	PricePaid    *big.Int       `json:"price_paid"`
	Fulfilled    bool           `json:"fulfilled"`
	SongURI      string         `json:"song_uri"`
}

// Params 引擎启动参数，每个部署一份注入，不写死在代码里
type Params struct {
	BirthdayCap    uint64
	NatalCap       uint64
	BirthdayPrice  *big.Int
	NatalPrice     *big.Int
	FeePerOrder    *big.Int
	Owner          common.Address
	PlatformWallet common.Address
	Address        common.Address // 引擎收款地址
}

// Engine 销售与交付状态机。原实现运行在链上串行交易模型下，
// 这里用单把互斥锁提供同样的全序与原子性：任意两个状态变更不交错
type Engine struct {
	mu    sync.Mutex
	token PaymentToken

	address        common.Address
	owner          common.Address
	platformWallet common.Address

	prices      map[SongType]*big.Int
	caps        map[SongType]uint64
	minted      map[SongType]uint64
	feePerOrder *big.Int

	// nextTokenId同时是累计铸造总数，编号从0起连续分配且不复用
	nextTokenId          int64
	lastWithdrawnTokenId int64 // 提现水位线

	orders  map[int64]*Order
	holders map[int64]common.Address

	journal []Event
	sinks   []Sink
}

// NewEngine 创建销售引擎
func NewEngine(params Params, token PaymentToken) (*Engine, error) {
	if token == nil {
		return nil, fmt.Errorf("%w: payment token is required", ErrValidation)
	}
	if params.Owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: owner address is zero", ErrValidation)
	}
	if params.PlatformWallet == (common.Address{}) {
		return nil, fmt.Errorf("%w: platform wallet is zero", ErrValidation)
	}
	if params.BirthdayPrice == nil || params.BirthdayPrice.Sign() <= 0 ||
		params.NatalPrice == nil || params.NatalPrice.Sign() <= 0 {
		return nil, fmt.Errorf("%w: prices must be positive", ErrValidation)
	}
	if params.FeePerOrder == nil || params.FeePerOrder.Sign() < 0 {
		return nil, fmt.Errorf("%w: fee per order must not be negative", ErrValidation)
	}

	return &Engine{
		token:          token,
		address:        params.Address,
		owner:          params.Owner,
		platformWallet: params.PlatformWallet,
		prices: map[SongType]*big.Int{
			SongTypeBirthday: new(big.Int).Set(params.BirthdayPrice),
			SongTypeNatal:    new(big.Int).Set(params.NatalPrice),
		},
		caps: map[SongType]uint64{
			SongTypeBirthday: params.BirthdayCap,
			SongTypeNatal:    params.NatalCap,
		},
		minted:      map[SongType]uint64{},
		feePerOrder: new(big.Int).Set(params.FeePerOrder),
		orders:      make(map[int64]*Order),
		holders:     make(map[int64]common.Address),
	}, nil
}

// Mint 下单铸造。守卫全部通过并完成扣款后才递增计数器和分配编号，
// 失败的铸造不消耗编号，编号因此从0起连续无空洞
func (e *Engine) Mint(caller common.Address, songType SongType, orderDataURI string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if orderDataURI == "" {
		return 0, fmt.Errorf("%w: order data uri is empty", ErrValidation)
	}
	price, ok := e.prices[songType]
	if !ok {
		return 0, fmt.Errorf("%w: unknown song type %d", ErrValidation, songType)
	}
	if e.minted[songType] >= e.caps[songType] {
		return 0, fmt.Errorf("%w: %s supply cap %d reached", ErrSoldOut, songType, e.caps[songType])
	}

	if err := e.token.TransferFrom(caller, e.address, price); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	tokenId := e.nextTokenId
	e.nextTokenId++
	e.minted[songType]++

	order := &Order{
		TokenId:      tokenId,
		SongType:     songType,
		OrderDataURI: orderDataURI,
		OrderedBy:    caller,
		OrderedAt:    time.Now(),
		PricePaid:    new(big.Int).Set(price),
	}
	e.orders[tokenId] = order
	e.holders[tokenId] = caller

	e.emit(EventCreated, map[string]interface{}{
		"tokenId":   tokenId,
		"payer":     caller.Hex(),
		"songType":  songType.String(),
		"contentId": orderDataURI,
		"price":     price.Int64(),
	})

	return tokenId, nil
}

// Fulfill 交付歌曲，仅所有者可调用，单次单向转换：重复交付直接失败
func (e *Engine) Fulfill(caller common.Address, tokenId int64, songURI string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	order, ok := e.orders[tokenId]
	if !ok {
		return fmt.Errorf("%w: token %d", ErrNotFound, tokenId)
	}
	if order.Fulfilled {
		return fmt.Errorf("%w: token %d", ErrAlreadyFulfilled, tokenId)
	}
	if songURI == "" {
		return fmt.Errorf("%w: song uri is empty", ErrValidation)
	}

	order.Fulfilled = true
	order.SongURI = songURI

	e.emit(EventFulfilled, map[string]interface{}{
		"tokenId":   tokenId,
		"contentId": songURI,
	})

	return nil
}

// Withdraw 结算提现。平台费 = 水位线以来的铸造数 × 每单固定费，
// 上限为当前余额；余下部分归所有者。水位线无条件推进到当前铸造总数，
// 欠收部分就地吸收，不作为债务结转
func (e *Engine) Withdraw(caller common.Address) (platformAmount, ownerAmount *big.Int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return nil, nil, ErrNotOwner
	}

	balance := e.token.BalanceOf(e.address)
	if balance.Sign() == 0 {
		return nil, nil, ErrNoFunds
	}

	pending := e.nextTokenId - e.lastWithdrawnTokenId
	feeDue := new(big.Int).Mul(big.NewInt(pending), e.feePerOrder)

	platformAmount = new(big.Int).Set(feeDue)
	if platformAmount.Cmp(balance) > 0 {
		platformAmount = new(big.Int).Set(balance)
	}
	ownerAmount = new(big.Int).Sub(balance, platformAmount)

	// 两笔转账全有或全无，第二笔失败时回补第一笔
	if platformAmount.Sign() > 0 {
		if err := e.token.Transfer(e.address, e.platformWallet, platformAmount); err != nil {
			return nil, nil, fmt.Errorf("%w: platform share: %v", ErrTransferFailed, err)
		}
	}
	if ownerAmount.Sign() > 0 {
		if err := e.token.Transfer(e.address, e.owner, ownerAmount); err != nil {
			if platformAmount.Sign() > 0 {
				if rbErr := e.token.Transfer(e.platformWallet, e.address, platformAmount); rbErr != nil {
					logger.Error("Failed to roll back platform share of %s: %v", platformAmount, rbErr)
				}
			}
			return nil, nil, fmt.Errorf("%w: owner share: %v", ErrTransferFailed, err)
		}
	}

	from := e.lastWithdrawnTokenId
	e.lastWithdrawnTokenId = e.nextTokenId

	e.emit(EventWithdrawn, map[string]interface{}{
		"watermarkFrom": from,
		"watermarkTo":   e.nextTokenId,
		"orderCount":    pending,
		"platformFee":   platformAmount.Int64(),
		"ownerAmount":   ownerAmount.Int64(),
	})

	return platformAmount, ownerAmount, nil
}

// SetPrices 更新价格，仅所有者可调用
func (e *Engine) SetPrices(caller common.Address, birthday, natal *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	if birthday == nil || birthday.Sign() <= 0 || natal == nil || natal.Sign() <= 0 {
		return fmt.Errorf("%w: prices must be positive", ErrValidation)
	}

	e.prices[SongTypeBirthday] = new(big.Int).Set(birthday)
	e.prices[SongTypeNatal] = new(big.Int).Set(natal)

	e.emit(EventPricesUpdated, map[string]interface{}{
		"birthday": birthday.Int64(),
		"natal":    natal.Int64(),
	})

	return nil
}

// SetPlatformWallet 更新平台钱包地址，仅所有者可调用
func (e *Engine) SetPlatformWallet(caller common.Address, wallet common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	if wallet == (common.Address{}) {
		return fmt.Errorf("%w: platform wallet is zero", ErrValidation)
	}

	e.platformWallet = wallet

	e.emit(EventPlatformWalletUpdated, map[string]interface{}{
		"wallet": wallet.Hex(),
	})

	return nil
}

// Price 查询指定类型当前价格
func (e *Engine) Price(songType SongType) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	price, ok := e.prices[songType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown song type %d", ErrValidation, songType)
	}
	return new(big.Int).Set(price), nil
}

// Owner 所有者地址
func (e *Engine) Owner() common.Address {
	return e.owner
}

// TypeSupply 单类型供应信息
type TypeSupply struct {
	Minted    uint64 `json:"minted"`
	Remaining uint64 `json:"remaining"`
	Cap       uint64 `json:"cap"`
	SoldOut   bool   `json:"sold_out"`
}

// Supply 供应总览
type Supply struct {
	ByType         map[string]TypeSupply `json:"by_type"`
	TotalMinted    uint64                `json:"total_minted"`
	TotalRemaining uint64                `json:"total_remaining"`
	TotalCap       uint64                `json:"total_cap"`
	SoldOut        bool                  `json:"sold_out"`
}

// SupplyInfo 供应总览，每次调用基于权威计数器现算，不缓存
func (e *Engine) SupplyInfo() Supply {
	e.mu.Lock()
	defer e.mu.Unlock()

	info := Supply{ByType: make(map[string]TypeSupply)}
	for _, t := range SongTypes() {
		minted := e.minted[t]
		cap := e.caps[t]
		info.ByType[t.String()] = TypeSupply{
			Minted:    minted,
			Remaining: cap - minted,
			Cap:       cap,
			SoldOut:   minted >= cap,
		}
		info.TotalMinted += minted
		info.TotalRemaining += cap - minted
		info.TotalCap += cap
	}
	info.SoldOut = info.TotalRemaining == 0
	return info
}

// OrderOf 查询订单记录，返回副本
func (e *Engine) OrderOf(tokenId int64) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[tokenId]
	if !ok {
		return Order{}, fmt.Errorf("%w: token %d", ErrNotFound, tokenId)
	}
	copied := *order
	copied.PricePaid = new(big.Int).Set(order.PricePaid)
	return copied, nil
}

// OwnerOf 查询代币当前持有人
func (e *Engine) OwnerOf(tokenId int64) (common.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	holder, ok := e.holders[tokenId]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: token %d", ErrNotFound, tokenId)
	}
	return holder, nil
}

// TransferToken 转移代币持有权，访问门禁始终以当前持有人为准
func (e *Engine) TransferToken(from, to common.Address, tokenId int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	holder, ok := e.holders[tokenId]
	if !ok {
		return fmt.Errorf("%w: token %d", ErrNotFound, tokenId)
	}
	if holder != from {
		return fmt.Errorf("%w: token %d held by %s", ErrNotOwner, tokenId, holder.Hex())
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: transfer to zero address", ErrValidation)
	}

	e.holders[tokenId] = to
	return nil
}

// AddSink 注册事件接收方
func (e *Engine) AddSink(sink Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, sink)
}

// Events 返回序号大于since的事件日志副本，对账任务据此重放
func (e *Engine) Events(since int64) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	var events []Event
	for _, ev := range e.journal {
		if ev.Seq > since {
			events = append(events, ev)
		}
	}
	return events
}

// emit 追加事件日志并通知接收方，调用方必须持有e.mu
func (e *Engine) emit(name string, data map[string]interface{}) {
	event := Event{
		Seq:       int64(len(e.journal)) + 1,
		Name:      name,
		Data:      data,
		CreatedAt: time.Now(),
	}
	e.journal = append(e.journal, event)

	for _, sink := range e.sinks {
		sink.Publish(event)
	}
}
