package handler

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/ipfsnut/birthdays-with-jose/internal/logic"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
	"gorm.io/gorm"
)

// AdminHandler 管理操作。调用地址必须是引擎所有者，所有者校验
// 在引擎入口处统一执行，这里只做参数翻译
type AdminHandler struct {
	engine          *sales.Engine
	withdrawalLogic *logic.WithdrawalLogic
}

func NewAdminHandler(db *gorm.DB, engine *sales.Engine) *AdminHandler {
	return &AdminHandler{
		engine:          engine,
		withdrawalLogic: logic.NewWithdrawalLogic(db),
	}
}

// Withdraw 结算提现
func (h *AdminHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.CallerAddress) {
		ErrorResponse(c, http.StatusBadRequest, "无效的调用地址")
		return
	}

	platformAmount, ownerAmount, err := h.engine.Withdraw(common.HexToAddress(req.CallerAddress))
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "提现成功", gin.H{
		"platform_fee": platformAmount.String(),
		"owner_amount": ownerAmount.String(),
	})
}

// GetWithdrawals 获取提现结算记录
func (h *AdminHandler) GetWithdrawals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := h.withdrawalLogic.GetWithdrawals(page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"withdrawals": records,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// SetPrices 更新价格表
func (h *AdminHandler) SetPrices(c *gin.Context) {
	var req SetPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.CallerAddress) {
		ErrorResponse(c, http.StatusBadRequest, "无效的调用地址")
		return
	}

	err := h.engine.SetPrices(common.HexToAddress(req.CallerAddress),
		big.NewInt(req.BirthdayPrice), big.NewInt(req.NatalPrice))
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "价格已更新", nil)
}

// SetPlatformWallet 更新平台钱包地址
func (h *AdminHandler) SetPlatformWallet(c *gin.Context) {
	var req SetPlatformWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.CallerAddress) || !common.IsHexAddress(req.Wallet) {
		ErrorResponse(c, http.StatusBadRequest, "无效的地址")
		return
	}

	err := h.engine.SetPlatformWallet(common.HexToAddress(req.CallerAddress), common.HexToAddress(req.Wallet))
	if err != nil {
		ErrorResponse(c, statusFromError(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "平台钱包已更新", nil)
}
