package handlers

import (
	"net/http"

	"Storefront/services"

	"github.com/gin-gonic/gin"
)

// 結帳：扣款成功後建立訂單並清空購物車
func CheckoutHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var input services.CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if input.IdempotencyKey == "" {
		input.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	result, err := svc.Checkout.Checkout(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, "結帳失敗", err)
		return
	}

	//重送相同的idempotency key時回傳原訂單
	if result.Replayed {
		c.JSON(http.StatusOK, gin.H{
			"order":    result.Order,
			"replayed": true,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":    result.Order,
		"replayed": false,
	})
}

// 查詢訂單列表
func GetOrderListHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	orders, err := svc.Orders.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "無法讀取訂單列表", err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// 查詢訂單詳細資訊
func GetOrderDataHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := svc.Orders.Get(c.Request.Context(), orderID, userID)
	if err != nil {
		respondError(c, "無法讀取訂單", err)
		return
	}

	c.JSON(http.StatusOK, order)
}
