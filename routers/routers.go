package routers

import (
	"net/http"
	"time"

	"Storefront/config"
	"Storefront/handlers"
	"Storefront/metrics"
	"Storefront/middleware"
	"Storefront/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func SetupRouters(svc *services.Services, cfg config.Config, log zerolog.Logger) *gin.Engine {
	//建立Gin路由器
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(metrics.Middleware(cfg.Server.Name))
	router.Use(cors.New(corsConfig(cfg.CORS.AllowOrigins)))
	_ = router.SetTrustedProxies(nil)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	////無須權限，使用中間件解析登入狀態
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(svc.Users))
	{
		//註冊帳號
		api.POST("/register", func(context *gin.Context) {
			handlers.RegisterHandler(context, svc)
		})
		//登入帳號
		api.POST("/login", func(context *gin.Context) {
			handlers.LoginHandler(context, svc)
		})
		//查詢最新商品
		api.GET("/latest-products", func(context *gin.Context) {
			handlers.GetLatestProductsHandler(context, svc)
		})
		//查詢商品列表
		api.GET("/products", func(context *gin.Context) {
			handlers.GetProductListHandler(context, svc)
		})
		//搜尋商品
		api.POST("/products/search", func(context *gin.Context) {
			handlers.SearchProductsHandler(context, svc)
		})
		//查詢商品(ID)或分類(slug)
		api.GET("/products/:key", func(context *gin.Context) {
			handlers.GetProductOrCategoryHandler(context, svc)
		})
		//查詢商品詳細資料
		api.GET("/products/:key/:product_slug", func(context *gin.Context) {
			handlers.GetProductDataHandler(context, svc)
		})
		//查詢分類列表
		api.GET("/categories", func(context *gin.Context) {
			handlers.GetCategoryListHandler(context, svc)
		})
		//寄送信箱驗證信
		api.POST("/email/verify", func(context *gin.Context) {
			handlers.RequestEmailVerificationHandler(context, svc)
		})
		//完成信箱驗證
		api.GET("/email/verify", func(context *gin.Context) {
			handlers.ConfirmEmailVerificationHandler(context, svc)
		})

		////需要登入，使用中間件檢查是否登入
		loginRequired := api.Group("")
		loginRequired.Use(middleware.CheckLoginMiddleware())
		{
			//查詢購物車商品
			loginRequired.GET("/cart", func(context *gin.Context) {
				handlers.GetCartHandler(context, svc)
			})
			//新增商品至購物車
			loginRequired.POST("/cart", func(context *gin.Context) {
				handlers.AddToCartHandler(context, svc)
			})
			//更新購物車商品數量
			loginRequired.PATCH("/cart", func(context *gin.Context) {
				handlers.UpdateCartItemQuantityHandler(context, svc)
			})
			//刪除購物車商品
			loginRequired.DELETE("/cart", func(context *gin.Context) {
				handlers.DeleteCartItemHandler(context, svc)
			})
			//結帳
			loginRequired.POST("/checkout", func(context *gin.Context) {
				handlers.CheckoutHandler(context, svc)
			})
			//查詢訂單列表
			loginRequired.GET("/orders", func(context *gin.Context) {
				handlers.GetOrderListHandler(context, svc)
			})
			//查詢訂單詳細資訊
			loginRequired.GET("/orders/:id", func(context *gin.Context) {
				handlers.GetOrderDataHandler(context, svc)
			})
			//地址
			loginRequired.GET("/addresses", func(context *gin.Context) {
				handlers.GetAddressListHandler(context, svc)
			})
			loginRequired.POST("/addresses", func(context *gin.Context) {
				handlers.CreateAddressHandler(context, svc)
			})
			loginRequired.GET("/addresses/:id", func(context *gin.Context) {
				handlers.GetAddressHandler(context, svc)
			})
			loginRequired.PUT("/addresses/:id", func(context *gin.Context) {
				handlers.UpdateAddressHandler(context, svc)
			})
			loginRequired.DELETE("/addresses/:id", func(context *gin.Context) {
				handlers.DeleteAddressHandler(context, svc)
			})
			loginRequired.POST("/addresses/:id/set_default", func(context *gin.Context) {
				handlers.SetDefaultAddressHandler(context, svc)
			})
			//刪除帳號
			loginRequired.POST("/users/delete", func(context *gin.Context) {
				handlers.DeleteAccountHandler(context, svc)
			})
		}

		user := api.Group("/user")
		user.Use(middleware.CheckLoginMiddleware())
		{
			//登出
			user.POST("/logout", func(context *gin.Context) {
				handlers.LogOutHandler(context, svc)
			})
			//查詢使用者資料
			user.GET("/profile", func(context *gin.Context) {
				handlers.GetUserProfileHandler(context, svc)
			})
			//修改使用者資料
			user.PATCH("/profile", func(context *gin.Context) {
				handlers.UpdateUserProfileHandler(context, svc)
			})
			//使用者偏好設定
			user.GET("/settings", func(context *gin.Context) {
				handlers.GetUserSettingsHandler(context, svc)
			})
			user.PATCH("/settings", func(context *gin.Context) {
				handlers.UpdateUserSettingsHandler(context, svc)
			})
			//變更密碼
			user.POST("/change-password", func(context *gin.Context) {
				handlers.ChangePasswordHandler(context, svc)
			})
		}
	}

	return router
}
