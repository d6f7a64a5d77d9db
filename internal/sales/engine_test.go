package sales

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testOwner    = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	testPlatform = common.HexToAddress("0x00000000000000000000000000000000000000B2")
	testEngine   = common.HexToAddress("0x00000000000000000000000000000000000000C3")
	testBuyer    = common.HexToAddress("0x00000000000000000000000000000000000000D4")
	testBuyer2   = common.HexToAddress("0x00000000000000000000000000000000000000E5")
)

func testParams() Params {
	return Params{
		BirthdayCap:    3,
		NatalCap:       3,
		BirthdayPrice:  big.NewInt(100),
		NatalPrice:     big.NewInt(200),
		FeePerOrder:    big.NewInt(10),
		Owner:          testOwner,
		PlatformWallet: testPlatform,
		Address:        testEngine,
	}
}

func newTestEngine(t *testing.T, params Params) (*Engine, *MemoryToken) {
	t.Helper()
	token := NewMemoryToken()
	engine, err := NewEngine(params, token)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine, token
}

func fundAndApprove(token *MemoryToken, addr common.Address, amount int64) {
	token.Mint(addr, big.NewInt(amount))
	token.Approve(addr, testEngine, big.NewInt(amount))
}

func TestMintAssignsSequentialTokenIds(t *testing.T) {
	engine, token := newTestEngine(t, testParams())
	fundAndApprove(token, testBuyer, 1000)

	for want := int64(0); want < 3; want++ {
		tokenId, err := engine.Mint(testBuyer, SongTypeBirthday, "ar://order")
		if err != nil {
			t.Fatalf("mint %d failed: %v", want, err)
		}
		if tokenId != want {
			t.Errorf("tokenId = %d, want %d", tokenId, want)
		}
	}

	order, err := engine.OrderOf(0)
	if err != nil {
		t.Fatalf("OrderOf failed: %v", err)
	}
	if order.OrderedBy != testBuyer {
		t.Errorf("OrderedBy = %s, want %s", order.OrderedBy.Hex(), testBuyer.Hex())
	}
	if order.PricePaid.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("PricePaid = %s, want 100", order.PricePaid)
	}
	if order.Fulfilled || order.SongURI != "" {
		t.Errorf("new order must be unfulfilled with empty song uri, got %v %q", order.Fulfilled, order.SongURI)
	}
}

func TestMintEmptyURIRejectedBeforePayment(t *testing.T) {
	engine, token := newTestEngine(t, testParams())
	fundAndApprove(token, testBuyer, 1000)

	_, err := engine.Mint(testBuyer, SongTypeBirthday, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if got := token.BalanceOf(testBuyer); got.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("buyer balance changed to %s, payment must not run before validation", got)
	}
	if got := token.BalanceOf(testEngine); got.Sign() != 0 {
		t.Errorf("engine balance = %s, want 0", got)
	}
}

func TestMintWithoutAllowanceFails(t *testing.T) {
	engine, token := newTestEngine(t, testParams())
	token.Mint(testBuyer, big.NewInt(1000)) // 只有余额，没有授权

	_, err := engine.Mint(testBuyer, SongTypeBirthday, "ar://order")
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}

	// 失败的铸造不消耗编号
	fundAndApprove(token, testBuyer, 1000)
	tokenId, err := engine.Mint(testBuyer, SongTypeBirthday, "ar://order")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if tokenId != 0 {
		t.Errorf("tokenId = %d, want 0 (failed mints must not consume ids)", tokenId)
	}
}

func TestMintSoldOut(t *testing.T) {
	params := testParams()
	params.BirthdayCap = 1
	engine, token := newTestEngine(t, params)
	fundAndApprove(token, testBuyer, 1000)

	tokenId, err := engine.Mint(testBuyer, SongTypeBirthday, "ar://order-1")
	if err != nil || tokenId != 0 {
		t.Fatalf("first mint: tokenId=%d err=%v, want 0 nil", tokenId, err)
	}

	_, err = engine.Mint(testBuyer, SongTypeBirthday, "ar://order-2")
	if !errors.Is(err, ErrSoldOut) {
		t.Fatalf("second mint err = %v, want ErrSoldOut", err)
	}

	info := engine.SupplyInfo()
	birthday := info.ByType["birthday"]
	if birthday.Minted != 1 || !birthday.SoldOut || birthday.Remaining != 0 {
		t.Errorf("birthday supply = %+v, want minted=1 sold out", birthday)
	}
	// 售罄不影响另一类型
	if info.ByType["natal"].SoldOut {
		t.Errorf("natal must not be sold out")
	}
	// 余额只扣了一单
	if got := token.BalanceOf(testEngine); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("engine balance = %s, want 100", got)
	}
}

func TestFulfillInvariantAndIdempotencyFailure(t *testing.T) {
	engine, token := newTestEngine(t, testParams())
	fundAndApprove(token, testBuyer, 1000)
	tokenId, _ := engine.Mint(testBuyer, SongTypeNatal, "ar://order")

	if err := engine.Fulfill(testOwner, tokenId, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty song uri err = %v, want ErrValidation", err)
	}
	if err := engine.Fulfill(testBuyer, tokenId, "ar://song"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner err = %v, want ErrNotOwner", err)
	}
	if err := engine.Fulfill(testOwner, 99, "ar://song"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown token err = %v, want ErrNotFound", err)
	}

	if err := engine.Fulfill(testOwner, tokenId, "ar://song"); err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}
	order, _ := engine.OrderOf(tokenId)
	if !order.Fulfilled || order.SongURI != "ar://song" {
		t.Fatalf("order = %+v, want fulfilled with song uri", order)
	}

	// 第二次交付失败且状态不变
	if err := engine.Fulfill(testOwner, tokenId, "ar://other"); !errors.Is(err, ErrAlreadyFulfilled) {
		t.Fatalf("second fulfill err = %v, want ErrAlreadyFulfilled", err)
	}
	order, _ = engine.OrderOf(tokenId)
	if order.SongURI != "ar://song" {
		t.Errorf("song uri changed to %q by failed fulfill", order.SongURI)
	}

	// 不变量：fulfilled == true 当且仅当 songUri 非空
	for id := int64(0); id < 1; id++ {
		o, err := engine.OrderOf(id)
		if err != nil {
			continue
		}
		if o.Fulfilled != (o.SongURI != "") {
			t.Errorf("token %d: fulfilled=%v songURI=%q violates invariant", id, o.Fulfilled, o.SongURI)
		}
	}
}

func TestWithdrawSplitsFeeDeterministically(t *testing.T) {
	engine, token := newTestEngine(t, testParams())
	fundAndApprove(token, testBuyer, 1000)

	// 3单生日歌：余额300，欠费3×10=30
	for i := 0; i < 3; i++ {
		if _, err := engine.Mint(testBuyer, SongTypeBirthday, "ar://order"); err != nil {
			t.Fatalf("mint failed: %v", err)
		}
	}

	platformAmt, ownerAmt, err := engine.Withdraw(testOwner)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if platformAmt.Cmp(big.NewInt(30)) != 0 {
		t.Errorf("platform share = %s, want 30", platformAmt)
	}
	if ownerAmt.Cmp(big.NewInt(270)) != 0 {
		t.Errorf("owner share = %s, want 270", ownerAmt)
	}
	if got := token.BalanceOf(testPlatform); got.Cmp(big.NewInt(30)) != 0 {
		t.Errorf("platform balance = %s, want 30", got)
	}
	if got := token.BalanceOf(testOwner); got.Cmp(big.NewInt(270)) != 0 {
		t.Errorf("owner balance = %s, want 270", got)
	}

	// 余额清零后再提现：NoFunds
	if _, _, err := engine.Withdraw(testOwner); !errors.Is(err, ErrNoFunds) {
		t.Fatalf("empty withdraw err = %v, want ErrNoFunds", err)
	}

	// 非所有者不可提现
	if _, _, err := engine.Withdraw(testBuyer); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner withdraw err = %v, want ErrNotOwner", err)
	}
}

func TestWithdrawShortfallAbsorbed(t *testing.T) {
	params := testParams()
	params.FeePerOrder = big.NewInt(500) // 每单费用高于单价，制造欠收
	engine, token := newTestEngine(t, params)
	fundAndApprove(token, testBuyer, 1000)

	if _, err := engine.Mint(testBuyer, SongTypeBirthday, "ar://order"); err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	// 欠费500，余额只有100：平台拿走全部余额，所有者为零
	platformAmt, ownerAmt, err := engine.Withdraw(testOwner)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if platformAmt.Cmp(big.NewInt(100)) != 0 || ownerAmt.Sign() != 0 {
		t.Fatalf("split = %s/%s, want 100/0", platformAmt, ownerAmt)
	}

	// 水位线已推进：下一单只结自己的费用，欠收不结转
	if _, err := engine.Mint(testBuyer, SongTypeBirthday, "ar://order-2"); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	platformAmt, _, err = engine.Withdraw(testOwner)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if platformAmt.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("platform share = %s, want 100 (one order, balance-capped)", platformAmt)
	}
}

func TestSettersOwnerGatedAndValidated(t *testing.T) {
	engine, token := newTestEngine(t, testParams())

	if err := engine.SetPrices(testBuyer, big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("SetPrices non-owner err = %v", err)
	}
	if err := engine.SetPrices(testOwner, big.NewInt(0), big.NewInt(1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("SetPrices zero price err = %v", err)
	}
	if err := engine.SetPrices(testOwner, big.NewInt(111), big.NewInt(222)); err != nil {
		t.Fatalf("SetPrices failed: %v", err)
	}
	price, _ := engine.Price(SongTypeNatal)
	if price.Cmp(big.NewInt(222)) != 0 {
		t.Errorf("natal price = %s, want 222", price)
	}

	if err := engine.SetPlatformWallet(testOwner, common.Address{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero platform wallet err = %v", err)
	}
	if err := engine.SetPlatformWallet(testOwner, testBuyer2); err != nil {
		t.Fatalf("SetPlatformWallet failed: %v", err)
	}

	// 新价格生效
	fundAndApprove(token, testBuyer, 1000)
	if _, err := engine.Mint(testBuyer, SongTypeBirthday, "ar://order"); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	order, _ := engine.OrderOf(0)
	if order.PricePaid.Cmp(big.NewInt(111)) != 0 {
		t.Errorf("PricePaid = %s, want updated price 111", order.PricePaid)
	}
}

func TestTransferTokenMovesOwnership(t *testing.T) {
	engine, token := newTestEngine(t, testParams())
	fundAndApprove(token, testBuyer, 1000)
	tokenId, _ := engine.Mint(testBuyer, SongTypeBirthday, "ar://order")

	if err := engine.TransferToken(testBuyer2, testOwner, tokenId); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("transfer by non-holder err = %v", err)
	}
	if err := engine.TransferToken(testBuyer, common.Address{}, tokenId); !errors.Is(err, ErrValidation) {
		t.Fatalf("transfer to zero err = %v", err)
	}
	if err := engine.TransferToken(testBuyer, testBuyer2, tokenId); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	holder, _ := engine.OwnerOf(tokenId)
	if holder != testBuyer2 {
		t.Errorf("holder = %s, want %s", holder.Hex(), testBuyer2.Hex())
	}
	// 订单记录的下单人不随持有权变化
	order, _ := engine.OrderOf(tokenId)
	if order.OrderedBy != testBuyer {
		t.Errorf("OrderedBy = %s, want original payer", order.OrderedBy.Hex())
	}
}

func TestJournalRecordsLifecycle(t *testing.T) {
	engine, token := newTestEngine(t, testParams())
	fundAndApprove(token, testBuyer, 1000)
	tokenId, _ := engine.Mint(testBuyer, SongTypeBirthday, "ar://order")
	if err := engine.Fulfill(testOwner, tokenId, "ar://song"); err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}

	events := engine.Events(0)
	if len(events) != 2 {
		t.Fatalf("journal length = %d, want 2", len(events))
	}
	if events[0].Name != EventCreated || events[1].Name != EventFulfilled {
		t.Fatalf("journal = [%s, %s], want [Created, Fulfilled]", events[0].Name, events[1].Name)
	}
	if events[0].Seq != 1 || events[1].Seq != 2 {
		t.Errorf("seqs = %d,%d, want 1,2", events[0].Seq, events[1].Seq)
	}
	if got := events[1].Data["contentId"]; got != "ar://song" {
		t.Errorf("fulfilled contentId = %v, want ar://song", got)
	}

	// 增量读取
	if tail := engine.Events(1); len(tail) != 1 || tail[0].Name != EventFulfilled {
		t.Errorf("Events(1) = %+v, want single Fulfilled event", tail)
	}
}
