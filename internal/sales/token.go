package sales

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// PaymentToken 支付代币接口，语义对齐ERC20：TransferFrom需要事先授权，
// 任一转账失败都不允许留下部分变更
type PaymentToken interface {
	TransferFrom(from, to common.Address, amount *big.Int) error
	Transfer(from, to common.Address, amount *big.Int) error
	BalanceOf(addr common.Address) *big.Int
}

// MemoryToken 进程内支付代币，本地模式与测试使用
type MemoryToken struct {
	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewMemoryToken 创建进程内支付代币
func NewMemoryToken() *MemoryToken {
	return &MemoryToken{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint 发币（仅本地模式初始化用）
func (t *MemoryToken) Mint(addr common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[addr] = new(big.Int).Add(t.balanceLocked(addr), amount)
}

// Approve 授权spender从owner账户划转
func (t *MemoryToken) Approve(owner, spender common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
}

// Allowance 查询授权额度
func (t *MemoryToken) Allowance(owner, spender common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil || t.allowances[owner][spender] == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(t.allowances[owner][spender])
}

// TransferFrom 授权划转，额度或余额不足则整体失败
func (t *MemoryToken) TransferFrom(from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := new(big.Int)
	if t.allowances[from] != nil && t.allowances[from][to] != nil {
		allowance = t.allowances[from][to]
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient allowance: have %s, need %s", allowance, amount)
	}

	if err := t.transferLocked(from, to, amount); err != nil {
		return err
	}

	t.allowances[from][to] = new(big.Int).Sub(allowance, amount)
	return nil
}

// Transfer 直接划转
func (t *MemoryToken) Transfer(from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferLocked(from, to, amount)
}

// BalanceOf 查询余额
func (t *MemoryToken) BalanceOf(addr common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.balanceLocked(addr))
}

func (t *MemoryToken) transferLocked(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative amount: %s", amount)
	}
	balance := t.balanceLocked(from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance: have %s, need %s", balance, amount)
	}
	t.balances[from] = new(big.Int).Sub(balance, amount)
	t.balances[to] = new(big.Int).Add(t.balanceLocked(to), amount)
	return nil
}

func (t *MemoryToken) balanceLocked(addr common.Address) *big.Int {
	if b, ok := t.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}
