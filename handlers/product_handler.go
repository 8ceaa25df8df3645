package handlers

import (
	"net/http"
	"strconv"

	"Storefront/services"

	"github.com/gin-gonic/gin"
)

// 查詢最新的商品
func GetLatestProductsHandler(c *gin.Context, svc *services.Services) {
	products, err := svc.Catalog.Latest(c.Request.Context())
	if err != nil {
		respondError(c, "無法讀取最新商品", err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// 查詢商品列表
func GetProductListHandler(c *gin.Context, svc *services.Services) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "查詢數量輸入錯誤",
			"error":   err.Error(),
			"field":   "limit",
		})
		return
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "offset輸入錯誤",
			"error":   err.Error(),
			"field":   "offset",
		})
		return
	}

	products, total, err := svc.Catalog.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, "無法讀取商品列表", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "成功讀取商品列表",
		"products":   products,
		"totalCount": total,
	})
}

// 搜尋名稱或描述包含關鍵字的商品
func SearchProductsHandler(c *gin.Context, svc *services.Services) {
	var searchReq struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&searchReq); err != nil {
		bindError(c, err)
		return
	}

	products, err := svc.Catalog.Search(c.Request.Context(), searchReq.Query)
	if err != nil {
		respondError(c, "搜尋商品失敗", err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// 數字視為商品ID，其餘視為分類slug
func GetProductOrCategoryHandler(c *gin.Context, svc *services.Services) {
	key := c.Param("key")

	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		product, err := svc.Catalog.ByID(c.Request.Context(), uint(id))
		if err != nil {
			respondError(c, "查詢商品失敗", err)
			return
		}
		c.JSON(http.StatusOK, product)
		return
	}

	category, err := svc.Catalog.Category(c.Request.Context(), key)
	if err != nil {
		respondError(c, "查詢分類失敗", err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// 以分類slug與商品slug查詢商品詳細資料
func GetProductDataHandler(c *gin.Context, svc *services.Services) {
	product, err := svc.Catalog.BySlug(c.Request.Context(), c.Param("key"), c.Param("product_slug"))
	if err != nil {
		respondError(c, "查詢商品失敗", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product":      product,
		"absolute_url": product.AbsoluteURL(),
	})
}

// 查詢分類列表
func GetCategoryListHandler(c *gin.Context, svc *services.Services) {
	categories, err := svc.Catalog.Categories(c.Request.Context())
	if err != nil {
		respondError(c, "無法讀取分類列表", err)
		return
	}

	c.JSON(http.StatusOK, categories)
}
