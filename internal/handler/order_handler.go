package handler

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/ipfsnut/birthdays-with-jose/internal/logger"
	"github.com/ipfsnut/birthdays-with-jose/internal/logic"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
	"github.com/ipfsnut/birthdays-with-jose/internal/storage"
	"gorm.io/gorm"
)

// 上传标签中的内容类别
const (
	contentKindOrderData  = "order-data"
	contentKindSongResult = "song-result"
)

type OrderHandler struct {
	engine      *sales.Engine
	store       storage.Store
	sealBox     *storage.SealBox
	orderLogic  *logic.OrderLogic
	accessLogic *logic.AccessLogic
}

func NewOrderHandler(db *gorm.DB, engine *sales.Engine, store storage.Store, sealBox *storage.SealBox) *OrderHandler {
	return &OrderHandler{
		engine:      engine,
		store:       store,
		sealBox:     sealBox,
		orderLogic:  logic.NewOrderLogic(db),
		accessLogic: logic.NewAccessLogic(engine),
	}
}

// CreateOrder 下单：加密上传订单数据，扣款铸造，账本尽力镜像
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	songType, err := sales.ParseSongType(req.SongType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的歌曲类型"})
		return
	}
	if !common.IsHexAddress(req.BuyerAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的下单地址"})
		return
	}
	buyer := common.HexToAddress(req.BuyerAddress)

	// 订单数据加密后上传内容存储
	sealed, err := h.sealBox.Seal(contentKindOrderData, req.OrderData)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "订单数据加密失败"})
		return
	}
	contentId, err := h.store.Put(c.Request.Context(), sealed, []storage.Tag{
		{Name: "Content-Kind", Value: contentKindOrderData},
		{Name: "Song-Type", Value: songType.String()},
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "订单数据上传失败"})
		return
	}

	// 扣款并铸造，引擎的revert原样向上抛
	tokenId, err := h.engine.Mint(buyer, songType, contentId)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	// 账本镜像尽力而为，失败只记日志，由对账任务修复
	price, _ := h.engine.Price(songType)
	if err := h.orderLogic.RecordCreated(logic.CreatedRecord{
		TokenId:   tokenId,
		SongType:  songType.String(),
		ContentId: contentId,
		OrderedBy: buyer.Hex(),
		PricePaid: price.Int64(),
	}); err != nil {
		logger.Error("Failed to mirror created order %d: %v", tokenId, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "下单成功",
		"token_id":   tokenId,
		"content_id": contentId,
	})
}

// GetOrders 获取订单列表（账本镜像，仅展示用途）
func (h *OrderHandler) GetOrders(c *gin.Context) {
	status := c.Query("status")
	orderedBy := c.Query("ordered_by")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, total, err := h.orderLogic.GetOrders(status, orderedBy, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":    orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetOrder 获取单个订单详情，附带权威状态
func (h *OrderHandler) GetOrder(c *gin.Context) {
	tokenId, err := strconv.ParseInt(c.Param("token_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的token_id"})
		return
	}

	order, err := h.orderLogic.GetOrder(tokenId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	// 权威状态随行返回，前端展示以此为准
	authoritative, err := h.engine.OrderOf(tokenId)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"order": order})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":     order,
		"fulfilled": authoritative.Fulfilled,
	})
}

// GetSong 取回成品指针，必须通过权威访问门禁
func (h *OrderHandler) GetSong(c *gin.Context) {
	tokenId, err := strconv.ParseInt(c.Param("token_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的token_id"})
		return
	}
	address := c.Query("address")
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求地址"})
		return
	}

	songURI, err := h.accessLogic.SongAccess(tokenId, common.HexToAddress(address))
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token_id": tokenId,
		"song_uri": songURI,
	})
}

// FulfillOrder 交付成品：加密上传结果，引擎单次交付，账本尽力镜像
func (h *OrderHandler) FulfillOrder(c *gin.Context) {
	tokenId, err := strconv.ParseInt(c.Param("token_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的token_id"})
		return
	}

	var req FulfillOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.CallerAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的调用地址"})
		return
	}

	sealed, err := h.sealBox.Seal(contentKindSongResult, req.SongData)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "成品数据加密失败"})
		return
	}
	songContentId, err := h.store.Put(c.Request.Context(), sealed, []storage.Tag{
		{Name: "Content-Kind", Value: contentKindSongResult},
		{Name: "Token-Id", Value: strconv.FormatInt(tokenId, 10)},
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "成品数据上传失败"})
		return
	}

	if err := h.engine.Fulfill(common.HexToAddress(req.CallerAddress), tokenId, songContentId); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	if err := h.orderLogic.RecordFulfilled(tokenId, songContentId); err != nil {
		logger.Error("Failed to mirror fulfilled order %d: %v", tokenId, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "交付成功",
		"token_id":        tokenId,
		"song_content_id": songContentId,
	})
}

// GetOrderStats 获取订单统计信息
func (h *OrderHandler) GetOrderStats(c *gin.Context) {
	stats, err := h.orderLogic.GetOrderStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
