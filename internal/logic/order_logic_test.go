package logic

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/ipfsnut/birthdays-with-jose/internal/database"
	"github.com/ipfsnut/birthdays-with-jose/internal/model"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func testCreatedRecord(tokenId int64) CreatedRecord {
	return CreatedRecord{
		TokenId:   tokenId,
		SongType:  "birthday",
		ContentId: "ar://order",
		OrderedBy: "0x00000000000000000000000000000000000000D4",
		PricePaid: 100,
	}
}

func TestRecordCreatedIdempotent(t *testing.T) {
	db := newTestDB(t)
	orderLogic := NewOrderLogic(db)

	if err := orderLogic.RecordCreated(testCreatedRecord(0)); err != nil {
		t.Fatalf("RecordCreated failed: %v", err)
	}

	// 重复写入不产生第二行
	record := testCreatedRecord(0)
	record.ContentId = "ar://other"
	if err := orderLogic.RecordCreated(record); err != nil {
		t.Fatalf("duplicate RecordCreated failed: %v", err)
	}

	var count int64
	db.Model(&model.OrderModel{}).Count(&count)
	if count != 1 {
		t.Fatalf("order rows = %d, want 1", count)
	}

	// 原始行原样保留
	order, err := orderLogic.GetOrder(0)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if order.ContentId != "ar://order" {
		t.Errorf("ContentId = %q, duplicate insert must not overwrite", order.ContentId)
	}
	if order.Status != model.OrderStatusPending {
		t.Errorf("Status = %q, want pending", order.Status)
	}
}

func TestRecordCreatedValidation(t *testing.T) {
	orderLogic := NewOrderLogic(newTestDB(t))

	bad := testCreatedRecord(0)
	bad.ContentId = ""
	if err := orderLogic.RecordCreated(bad); err == nil {
		t.Error("empty content id must be rejected")
	}

	bad = testCreatedRecord(-1)
	if err := orderLogic.RecordCreated(bad); err == nil {
		t.Error("negative token id must be rejected")
	}
}

func TestRecordFulfilledIdempotent(t *testing.T) {
	db := newTestDB(t)
	orderLogic := NewOrderLogic(db)

	// 无对应行时显式报错
	if err := orderLogic.RecordFulfilled(0, "ar://song"); err == nil {
		t.Fatal("RecordFulfilled without order row must fail")
	}

	if err := orderLogic.RecordCreated(testCreatedRecord(0)); err != nil {
		t.Fatalf("RecordCreated failed: %v", err)
	}
	if err := orderLogic.RecordFulfilled(0, "ar://song"); err != nil {
		t.Fatalf("RecordFulfilled failed: %v", err)
	}

	order, _ := orderLogic.GetOrder(0)
	if order.Status != model.OrderStatusFulfilled || order.SongContentId != "ar://song" {
		t.Fatalf("order = %+v, want fulfilled with song content id", order)
	}
	if order.FulfilledAt == nil {
		t.Fatal("FulfilledAt not stamped")
	}
	firstStamp := *order.FulfilledAt

	// 重复应用得到同样的结束状态
	if err := orderLogic.RecordFulfilled(0, "ar://song"); err != nil {
		t.Fatalf("second RecordFulfilled failed: %v", err)
	}
	order, _ = orderLogic.GetOrder(0)
	if order.SongContentId != "ar://song" || !order.FulfilledAt.Equal(firstStamp) {
		t.Errorf("re-applying RecordFulfilled changed state: %+v", order)
	}
}

func TestGetOrdersFiltersAndStats(t *testing.T) {
	db := newTestDB(t)
	orderLogic := NewOrderLogic(db)

	for i := int64(0); i < 3; i++ {
		record := testCreatedRecord(i)
		if i == 2 {
			record.OrderedBy = "0x00000000000000000000000000000000000000E5"
		}
		if err := orderLogic.RecordCreated(record); err != nil {
			t.Fatalf("RecordCreated failed: %v", err)
		}
	}
	if err := orderLogic.RecordFulfilled(1, "ar://song"); err != nil {
		t.Fatalf("RecordFulfilled failed: %v", err)
	}

	pending, total, err := orderLogic.GetOrders(string(model.OrderStatusPending), "", 1, 10)
	if err != nil {
		t.Fatalf("GetOrders failed: %v", err)
	}
	if total != 2 || len(pending) != 2 {
		t.Errorf("pending orders = %d/%d, want 2/2", len(pending), total)
	}

	_, total, err = orderLogic.GetOrders("", "0x00000000000000000000000000000000000000E5", 1, 10)
	if err != nil || total != 1 {
		t.Errorf("orders by address total = %d err=%v, want 1", total, err)
	}

	stats, err := orderLogic.GetOrderStats()
	if err != nil {
		t.Fatalf("GetOrderStats failed: %v", err)
	}
	if stats["total_orders"].(int64) != 3 || stats["fulfilled_orders"].(int64) != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats["total_paid"].(int64) != 300 {
		t.Errorf("total_paid = %v, want 300", stats["total_paid"])
	}
}

func TestEventLogicIdempotent(t *testing.T) {
	db := newTestDB(t)
	eventLogic := NewEventLogic(db)

	event := &model.EventModel{
		ContractAddress: "0x00000000000000000000000000000000000000C3",
		ContractName:    "songnft",
		EventName:       "Created",
		TxHash:          "seq-1",
		BlockNum:        1,
		LogIndex:        0,
		Data:            `{"tokenId":0}`,
	}
	if err := eventLogic.CreateEvent(event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	duplicate := *event
	duplicate.Id = 0
	if err := eventLogic.CreateEvent(&duplicate); err != nil {
		t.Fatalf("duplicate CreateEvent failed: %v", err)
	}

	var count int64
	db.Model(&model.EventModel{}).Count(&count)
	if count != 1 {
		t.Errorf("event rows = %d, want 1", count)
	}

	maxBlock, err := eventLogic.GetMaxBlockNum(event.ContractAddress)
	if err != nil || maxBlock != 1 {
		t.Errorf("max block = %d err=%v, want 1", maxBlock, err)
	}
}

func TestWithdrawalLogicIdempotent(t *testing.T) {
	db := newTestDB(t)
	withdrawalLogic := NewWithdrawalLogic(db)

	record := &model.WithdrawalRecordModel{
		WatermarkFrom: 0,
		WatermarkTo:   3,
		OrderCount:    3,
		PlatformFee:   30,
		OwnerAmount:   270,
	}
	if err := withdrawalLogic.RecordWithdrawal(record); err != nil {
		t.Fatalf("RecordWithdrawal failed: %v", err)
	}
	duplicate := *record
	duplicate.Id = 0
	if err := withdrawalLogic.RecordWithdrawal(&duplicate); err != nil {
		t.Fatalf("duplicate RecordWithdrawal failed: %v", err)
	}

	records, total, err := withdrawalLogic.GetWithdrawals(1, 10)
	if err != nil || total != 1 {
		t.Fatalf("withdrawals = %d err=%v, want 1", total, err)
	}
	if records[0].PlatformFee != 30 || records[0].OwnerAmount != 270 {
		t.Errorf("record = %+v", records[0])
	}
}
