package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ipfsnut/birthdays-with-jose/internal/config"
	"github.com/ipfsnut/birthdays-with-jose/internal/handler"
	"github.com/ipfsnut/birthdays-with-jose/internal/sales"
	"github.com/ipfsnut/birthdays-with-jose/internal/storage"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, engine *sales.Engine, store storage.Store, sealBox *storage.SealBox, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "song-storefront",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 订单相关路由
		orderHandler := handler.NewOrderHandler(db, engine, store, sealBox)
		orders := v1.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.GetOrders)
			orders.GET("/:token_id", orderHandler.GetOrder)
			orders.GET("/:token_id/song", orderHandler.GetSong)
			orders.POST("/:token_id/fulfill", orderHandler.FulfillOrder)
		}
		v1.GET("/stats", orderHandler.GetOrderStats)

		// 供应与价格
		supplyHandler := handler.NewSupplyHandler(engine)
		v1.GET("/supply", supplyHandler.GetSupply)
		v1.GET("/prices", supplyHandler.GetPrices)

		// 管理相关路由，所有者校验在引擎内执行
		adminHandler := handler.NewAdminHandler(db, engine)
		admin := v1.Group("/admin")
		{
			admin.POST("/withdraw", adminHandler.Withdraw)
			admin.GET("/withdrawals", adminHandler.GetWithdrawals)
			admin.PUT("/prices", adminHandler.SetPrices)
			admin.PUT("/platform-wallet", adminHandler.SetPlatformWallet)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
