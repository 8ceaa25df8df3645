package handlers

import (
	"net/http"

	"Storefront/services"

	"github.com/gin-gonic/gin"
)

// 查詢地址列表，預設地址排在最前面
func GetAddressListHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	addresses, err := svc.Addresses.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "無法讀取地址列表", err)
		return
	}

	c.JSON(http.StatusOK, addresses)
}

func GetAddressHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	addressID, ok := paramID(c, "id")
	if !ok {
		return
	}

	address, err := svc.Addresses.Get(c.Request.Context(), addressID, userID)
	if err != nil {
		respondError(c, "無法讀取地址", err)
		return
	}

	c.JSON(http.StatusOK, address)
}

// 新增地址，第一筆地址一律為預設
func CreateAddressHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var input services.AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	address, err := svc.Addresses.Create(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, "新增地址失敗", err)
		return
	}

	c.JSON(http.StatusCreated, address)
}

func UpdateAddressHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	addressID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input services.AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	address, err := svc.Addresses.Update(c.Request.Context(), addressID, userID, input)
	if err != nil {
		respondError(c, "修改地址失敗", err)
		return
	}

	c.JSON(http.StatusOK, address)
}

func DeleteAddressHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	addressID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := svc.Addresses.Delete(c.Request.Context(), addressID, userID); err != nil {
		respondError(c, "刪除地址失敗", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// 設為預設地址，其餘地址取消預設
func SetDefaultAddressHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	addressID, ok := paramID(c, "id")
	if !ok {
		return
	}

	address, err := svc.Addresses.SetDefault(c.Request.Context(), addressID, userID)
	if err != nil {
		respondError(c, "設定預設地址失敗", err)
		return
	}

	c.JSON(http.StatusOK, address)
}
