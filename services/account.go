package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"Storefront/apperror"
	"Storefront/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

type ProfileView struct {
	ID            uint    `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	DateOfBirth   *string `json:"date_of_birth"`
	EmailVerified bool    `json:"email_verified"`
}

// ProfileUpdate 中為nil的欄位不會變更
type ProfileUpdate struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"`
}

type SettingsUpdate struct {
	Language           *string `json:"language"`
	Currency           *string `json:"currency"`
	DarkMode           *bool   `json:"dark_mode"`
	EmailNotifications *bool   `json:"email_notifications"`
	OrderUpdates       *bool   `json:"order_updates"`
	PromotionalEmails  *bool   `json:"promotional_emails"`
	Newsletter         *bool   `json:"newsletter"`
}

type Account struct {
	db     *gorm.DB
	policy PasswordPolicy
}

func (a *Account) user(db *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := db.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, apperror.Unauthorized("user %d does not exist", userID)
	}
	return user, err
}

// profile 取得個人資料，舊帳號沒有資料列時補建
func profile(tx *gorm.DB, userID uint) (models.UserProfile, error) {
	p := models.UserProfile{UserID: userID}
	err := tx.Where("user_id = ?", userID).FirstOrCreate(&p).Error
	return p, err
}

func (a *Account) GetProfile(ctx context.Context, userID uint) (ProfileView, error) {
	db := a.db.WithContext(ctx)
	user, err := a.user(db, userID)
	if err != nil {
		return ProfileView{}, err
	}
	p, err := profile(db, userID)
	if err != nil {
		return ProfileView{}, err
	}
	return profileView(user, p), nil
}

func profileView(user models.User, p models.UserProfile) ProfileView {
	view := ProfileView{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.DisplayName(),
		Phone:         p.Phone,
		EmailVerified: p.EmailVerified,
	}
	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format(dateLayout)
		view.DateOfBirth = &dob
	}
	return view
}

// UpdateProfile 姓名以第一個空白拆成名與姓
func (a *Account) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (ProfileView, error) {
	var dob *time.Time
	if in.DateOfBirth != nil && *in.DateOfBirth != "" {
		t, err := time.Parse(dateLayout, *in.DateOfBirth)
		if err != nil {
			return ProfileView{}, apperror.Validation("date_of_birth", "must be formatted as YYYY-MM-DD")
		}
		dob = &t
	}

	var view ProfileView
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := a.user(tx, userID)
		if err != nil {
			return err
		}
		p, err := profile(tx, userID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			first, last, _ := strings.Cut(strings.TrimSpace(*in.Name), " ")
			user.FirstName = first
			user.LastName = strings.TrimSpace(last)
			err := tx.Model(&user).Updates(map[string]interface{}{
				"first_name": user.FirstName,
				"last_name":  user.LastName,
			}).Error
			if err != nil {
				return err
			}
		}

		if in.Phone != nil {
			p.Phone = *in.Phone
		}
		if in.DateOfBirth != nil {
			p.DateOfBirth = dob
		}
		if err := tx.Save(&p).Error; err != nil {
			return err
		}

		view = profileView(user, p)
		return nil
	})
	return view, err
}

func (a *Account) GetSettings(ctx context.Context, userID uint) (models.UserSettings, error) {
	return settings(a.db.WithContext(ctx), userID)
}

func settings(tx *gorm.DB, userID uint) (models.UserSettings, error) {
	s := models.DefaultUserSettings(userID)
	err := tx.Where("user_id = ?", userID).FirstOrCreate(&s).Error
	return s, err
}

func (a *Account) UpdateSettings(ctx context.Context, userID uint, in SettingsUpdate) (models.UserSettings, error) {
	var s models.UserSettings
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		s, err = settings(tx, userID)
		if err != nil {
			return err
		}

		if in.Language != nil {
			s.Language = *in.Language
		}
		if in.Currency != nil {
			s.Currency = *in.Currency
		}
		if in.DarkMode != nil {
			s.DarkMode = *in.DarkMode
		}
		if in.EmailNotifications != nil {
			s.EmailNotifications = *in.EmailNotifications
		}
		if in.OrderUpdates != nil {
			s.OrderUpdates = *in.OrderUpdates
		}
		if in.PromotionalEmails != nil {
			s.PromotionalEmails = *in.PromotionalEmails
		}
		if in.Newsletter != nil {
			s.Newsletter = *in.Newsletter
		}
		return tx.Save(&s).Error
	})
	return s, err
}

// ChangePassword 依序檢查：必填、目前密碼、密碼規則
func (a *Account) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if current == "" {
		return apperror.Validation("current_password", "is required")
	}
	if next == "" {
		return apperror.Validation("new_password", "is required")
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := a.user(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
			return apperror.InvalidCurrent()
		}
		if reasons := a.policy.Validate(next); len(reasons) > 0 {
			return apperror.PolicyViolation(reasons)
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		return tx.Model(&user).Update("password", string(hashedPassword)).Error
	})
}

// DeleteAccount 在同一交易內永久刪除使用者及其所有資料，回傳被刪除的使用者名稱
func (a *Account) DeleteAccount(ctx context.Context, userID uint, password string) (string, error) {
	if password == "" {
		return "", apperror.Validation("password", "is required")
	}

	var username string
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := a.user(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
			return apperror.InvalidPassword()
		}
		username = user.Username

		owned := []interface{}{
			&models.LoginToken{},
			&models.EmailVerification{},
			&models.UserSettings{},
			&models.UserProfile{},
			&models.Address{},
		}
		for _, model := range owned {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}

		orderIDs := tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.Order{}).
			Select("id").
			Where("user_id = ?", userID)
		if err := tx.Where("order_id IN (?)", orderIDs).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Order{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&user).Error
	})
	return username, err
}
