package middleware

import (
	"context"
	"strings"

	"Storefront/jwt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Authenticator 驗證Token並回傳其中的使用者資訊
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (jwt.Claims, error)
}

// AuthMiddleware 只解析Token，是否必須登入由CheckLoginMiddleware決定
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if token == "" {
			c.Next()
			return
		}

		//如Token不合法或錯誤則視為未登入
		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("無法驗證Token")
			c.Next()
			return
		}

		c.Set("Token", token)
		c.Set("UserID", claims.UserID)
		c.Set("Role", claims.Role)
		c.Next()
	}
}
