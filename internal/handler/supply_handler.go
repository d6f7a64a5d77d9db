package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
)

type SupplyHandler struct {
	engine *sales.Engine
}

func NewSupplyHandler(engine *sales.Engine) *SupplyHandler {
	return &SupplyHandler{engine: engine}
}

// GetSupply 获取供应总览，每次请求基于权威计数器现算
func (h *SupplyHandler) GetSupply(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"supply": h.engine.SupplyInfo()})
}

// GetPrices 获取当前价格表
func (h *SupplyHandler) GetPrices(c *gin.Context) {
	prices := make(map[string]int64)
	for _, t := range sales.SongTypes() {
		price, err := h.engine.Price(t)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		prices[t.String()] = price.Int64()
	}

	c.JSON(http.StatusOK, gin.H{"prices": prices})
}
