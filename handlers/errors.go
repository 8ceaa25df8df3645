package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"Storefront/apperror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// respondError 依錯誤種類回傳對應的狀態碼，未分類的錯誤只回傳通用訊息並記錄原因
func respondError(c *gin.Context, message string, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("route", c.FullPath()).Msg(message)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": message,
			"error":   "internal server error",
		})
		return
	}

	body := gin.H{
		"message": message,
		"error":   appErr.Error(),
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if len(appErr.Reasons) > 0 {
		body["reasons"] = appErr.Reasons
	}
	if appErr.Kind == apperror.KindInternal {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("route", c.FullPath()).Msg(message)
	}
	c.JSON(appErr.Kind.Status(), body)
}

func bindError(c *gin.Context, err error) {
	body := gin.H{
		"message": "綁定請求資料錯誤",
		"error":   err.Error(),
	}
	//binding tag驗證失敗時回傳第一個錯誤欄位
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		body["field"] = strings.ToLower(verrs[0].Field())
	}
	c.JSON(http.StatusBadRequest, body)
}

// getUserID 取得AuthMiddleware放入的使用者ID
func getUserID(c *gin.Context) (uint, bool) {
	userID, ok := c.Get("UserID")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"message": "無法取得使用者ID",
			"error":   "authentication required",
		})
		return 0, false
	}
	return userID.(uint), true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "ID格式錯誤",
			"error":   name + ": must be a positive integer",
			"field":   name,
		})
		return 0, false
	}
	return uint(id), true
}
