package services

import (
	"context"
	"errors"
	"time"

	"Storefront/apperror"
	"Storefront/jwt"
	"Storefront/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const roleUser = "user"

// Users 負責註冊、登入與登出，登入Token同時存入資料庫以便登出時撤銷
type Users struct {
	db     *gorm.DB
	signer *jwt.Signer
	policy PasswordPolicy
	ttl    time.Duration
	now    func() time.Time
}

// Register 在同一交易內建立使用者、個人資料與偏好設定
func (u *Users) Register(ctx context.Context, username, email, password string) (models.User, error) {
	if !ValidateUsername(username) {
		return models.User{}, apperror.Validation("username", "must be 8-20 letters, digits, '_' or '-'")
	}
	if !ValidateEmail(email) {
		return models.User{}, apperror.Validation("email", "is not a valid address")
	}
	if reasons := u.policy.Validate(password); len(reasons) > 0 {
		return models.User{}, &apperror.Error{
			Kind:    apperror.KindValidation,
			Field:   "password",
			Message: reasons[0],
			Reasons: reasons,
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		Role:     roleUser,
	}
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//檢查使用者名稱或Email是否重複
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperror.Validation("username", "is already taken")
		}
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperror.Validation("email", "is already registered")
		}

		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.UserProfile{UserID: user.ID}).Error; err != nil {
			return err
		}
		settings := models.DefaultUserSettings(user.ID)
		return tx.Create(&settings).Error
	})
	return user, err
}

// Login 帳號不存在或密碼錯誤一律回傳Unauthorized
func (u *Users) Login(ctx context.Context, username, password string) (string, error) {
	var user models.User
	err := u.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperror.Unauthorized("invalid username or password")
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", apperror.Unauthorized("invalid username or password")
	}

	expiresAt := u.now().Add(u.ttl)
	token, err := u.signer.GenerateToken(user.ID, user.Role, expiresAt)
	if err != nil {
		return "", err
	}

	loginToken := models.LoginToken{
		Token:          token,
		ExpirationTime: expiresAt,
		UserID:         user.ID,
		Role:           user.Role,
	}
	if err := u.db.WithContext(ctx).Create(&loginToken).Error; err != nil {
		return "", err
	}
	return token, nil
}

func (u *Users) Logout(ctx context.Context, token string) error {
	result := u.db.WithContext(ctx).Where("token = ?", token).Delete(&models.LoginToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("token not found or already logged out")
	}
	return nil
}

// Authenticate 驗證簽章後再確認Token尚未登出或過期
func (u *Users) Authenticate(ctx context.Context, token string) (jwt.Claims, error) {
	claims, err := u.signer.ParseToken(token)
	if err != nil {
		return jwt.Claims{}, apperror.Unauthorized("invalid token")
	}

	var loginToken models.LoginToken
	err = u.db.WithContext(ctx).
		Where("token = ? AND user_id = ?", token, claims.UserID).
		First(&loginToken).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jwt.Claims{}, apperror.Unauthorized("token has been revoked")
	}
	if err != nil {
		return jwt.Claims{}, err
	}
	if u.now().After(loginToken.ExpirationTime) {
		return jwt.Claims{}, apperror.Unauthorized("token has expired")
	}
	return claims, nil
}
