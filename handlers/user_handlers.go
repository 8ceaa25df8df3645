package handlers

import (
	"net/http"

	"Storefront/services"

	"github.com/gin-gonic/gin"
)

// 註冊使用者帳戶
func RegisterHandler(c *gin.Context, svc *services.Services) {
	var registerReq struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&registerReq); err != nil {
		bindError(c, err)
		return
	}

	user, err := svc.Users.Register(c.Request.Context(), registerReq.Username, registerReq.Email, registerReq.Password)
	if err != nil {
		respondError(c, "註冊失敗", err)
		return
	}

	//成功註冊
	c.JSON(http.StatusCreated, gin.H{
		"message":  "使用者已成功註冊",
		"username": user.Username,
	})
}

func LoginHandler(c *gin.Context, svc *services.Services) {
	//檢查是否已經登入
	if _, ok := c.Get("UserID"); ok {
		c.JSON(http.StatusOK, gin.H{
			"message": "已經登入",
		})
		return
	}

	//從請求擷取帳號和密碼
	var loginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		bindError(c, err)
		return
	}

	token, err := svc.Users.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
	if err != nil {
		respondError(c, "登入失敗", err)
		return
	}

	//成功登入 回傳Token和成功訊息
	c.Header("Authorization", "Bearer "+token)
	c.JSON(http.StatusOK, gin.H{
		"message": "成功登入",
		"token":   token,
	})
}

func LogOutHandler(c *gin.Context, svc *services.Services) {
	token := c.GetString("Token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "無法取得Token",
			"error":   "token missing",
		})
		return
	}

	if err := svc.Users.Logout(c.Request.Context(), token); err != nil {
		respondError(c, "登出失敗", err)
		return
	}

	c.Header("Authorization", "")
	c.JSON(http.StatusOK, gin.H{
		"message": "成功登出",
	})
}

// 查詢使用者資料
func GetUserProfileHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	profile, err := svc.Account.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "無法讀取使用者資料", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// 變更使用者資料，未提供的欄位不變更
func UpdateUserProfileHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var update services.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		bindError(c, err)
		return
	}

	profile, err := svc.Account.UpdateProfile(c.Request.Context(), userID, update)
	if err != nil {
		respondError(c, "修改使用者資料失敗", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func GetUserSettingsHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	settings, err := svc.Account.GetSettings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "無法讀取使用者設定", err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func UpdateUserSettingsHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var update services.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		bindError(c, err)
		return
	}

	settings, err := svc.Account.UpdateSettings(c.Request.Context(), userID, update)
	if err != nil {
		respondError(c, "修改使用者設定失敗", err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func ChangePasswordHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var passwordReq struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&passwordReq); err != nil {
		bindError(c, err)
		return
	}

	err := svc.Account.ChangePassword(c.Request.Context(), userID, passwordReq.CurrentPassword, passwordReq.NewPassword)
	if err != nil {
		respondError(c, "變更密碼失敗", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "成功變更密碼",
	})
}

// 永久刪除帳號及所有相關資料
func DeleteAccountHandler(c *gin.Context, svc *services.Services) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var deleteReq struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&deleteReq); err != nil {
		bindError(c, err)
		return
	}

	username, err := svc.Account.DeleteAccount(c.Request.Context(), userID, deleteReq.Password)
	if err != nil {
		respondError(c, "刪除帳號失敗", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "帳號已刪除",
		"username": username,
	})
}
