package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Storefront/apperror"
	"Storefront/mailer"
	"Storefront/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const verificationSubject = "Email Verification for VMarket"

type Verification struct {
	db          *gorm.DB
	mailer      mailer.Sender
	frontendURL string
	now         func() time.Time
	newToken    func() (string, error)
	log         zerolog.Logger
}

// Request 每位使用者只保留一筆驗證碼，重新申請會讓舊的失效
func (v *Verification) Request(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperror.Validation("email", "is required")
	}

	db := v.db.WithContext(ctx)
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return notFound(err, "no user with email %s", email)
	}

	token, err := v.newToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	now := v.now()
	record := models.EmailVerification{
		UserID:    user.ID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(models.EmailVerificationTTL),
	}
	link := strings.TrimRight(v.frontendURL, "/") + "/verify-email/" + token
	body := fmt.Sprintf("Hi %s,\n\nPlease verify your email address by opening the link below:\n\n%s\n\nThe link expires in 24 hours.\n", user.DisplayName(), link)

	//寄送失敗時回滾，舊的驗證碼繼續有效
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"token", "created_at", "expires_at"}),
			}).
			Create(&record).
			Error
		if err != nil {
			return err
		}
		if err := v.mailer.Send(ctx, user.Email, verificationSubject, body); err != nil {
			return fmt.Errorf("send verification mail: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	v.log.Info().Uint("user_id", user.ID).Msg("verification mail sent")
	return nil
}

// Confirm 過期的驗證碼會被刪除並回傳Invalid
func (v *Verification) Confirm(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperror.Validation("token", "is required")
	}

	expired := false
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.EmailVerification
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token = ?", token).
			First(&record).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Invalid("verification token is invalid")
		}
		if err != nil {
			return err
		}

		if record.IsExpired(v.now()) {
			//刪除需要提交，所以不回傳錯誤
			expired = true
			return tx.Delete(&record).Error
		}

		p, err := profile(tx, record.UserID)
		if err != nil {
			return err
		}
		if err := tx.Model(&p).Update("email_verified", true).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
	if err != nil {
		return err
	}
	if expired {
		return apperror.Invalid("verification token has expired")
	}
	return nil
}
