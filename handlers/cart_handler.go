package handlers

import (
	"net/http"
	"strconv"

	"Storefront/services"

	"github.com/gin-gonic/gin"
)

type cartItemReq struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// 查詢購物車商品
func GetCartHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	lines, err := svc.Cart.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "無法讀取購物車", err)
		return
	}

	c.JSON(http.StatusOK, lines)
}

// 新增商品至購物車，已存在則累加數量
func AddToCartHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	line, err := svc.Cart.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, "新增購物車商品失敗", err)
		return
	}

	c.JSON(http.StatusCreated, line)
}

// 更新購物車商品數量
func UpdateCartItemQuantityHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	line, err := svc.Cart.SetQuantity(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, "更新購物車商品數量失敗", err)
		return
	}

	c.JSON(http.StatusOK, line)
}

// 刪除購物車商品
func DeleteCartItemHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	productID, err := strconv.ParseUint(c.Query("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "商品ID格式錯誤",
			"error":   "product_id: must be a positive integer",
			"field":   "product_id",
		})
		return
	}

	if err := svc.Cart.RemoveItem(c.Request.Context(), userID, uint(productID)); err != nil {
		respondError(c, "刪除購物車商品失敗", err)
		return
	}

	c.Status(http.StatusNoContent)
}
