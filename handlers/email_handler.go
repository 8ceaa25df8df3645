package handlers

import (
	"net/http"

	"Storefront/services"

	"github.com/gin-gonic/gin"
)

// 寄送信箱驗證信
func RequestEmailVerificationHandler(c *gin.Context, svc *services.Services) {
	var verifyReq struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&verifyReq); err != nil {
		bindError(c, err)
		return
	}

	if err := svc.Verification.Request(c.Request.Context(), verifyReq.Email); err != nil {
		respondError(c, "寄送驗證信失敗", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "驗證信已寄出",
	})
}

// 以驗證碼完成信箱驗證
func ConfirmEmailVerificationHandler(c *gin.Context, svc *services.Services) {
	if err := svc.Verification.Confirm(c.Request.Context(), c.Query("token")); err != nil {
		respondError(c, "信箱驗證失敗", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "信箱驗證成功",
	})
}
