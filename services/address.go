package services

import (
	"context"
	"strings"

	"Storefront/apperror"
	"Storefront/models"

	"gorm.io/gorm"
)

type AddressInput struct {
	Name         string  `json:"name"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      string  `json:"zip_code"`
	Phone        string  `json:"phone"`
	IsDefault    bool    `json:"is_default"`
}

func (in AddressInput) validate() error {
	required := []struct {
		field, value string
	}{
		{"name", in.Name},
		{"address_line1", in.AddressLine1},
		{"city", in.City},
		{"state", in.State},
		{"zip_code", in.ZipCode},
		{"phone", in.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperror.Validation(r.field, "is required")
		}
	}
	return nil
}

func (in AddressInput) apply(a *models.Address) {
	a.Name = in.Name
	a.AddressLine1 = in.AddressLine1
	a.AddressLine2 = in.AddressLine2
	a.City = in.City
	a.State = in.State
	a.ZipCode = in.ZipCode
	a.Phone = in.Phone
}

// AddressBook 維持每位擁有地址的使用者恰好一筆預設地址
type AddressBook struct {
	db *gorm.DB
}

func (b *AddressBook) List(ctx context.Context, userID uint) ([]models.Address, error) {
	addresses := []models.Address{}
	err := b.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default desc, updated_at desc, id desc").
		Find(&addresses).
		Error
	return addresses, err
}

func (b *AddressBook) Get(ctx context.Context, id, userID uint) (models.Address, error) {
	return findAddress(b.db.WithContext(ctx), id, userID)
}

func findAddress(db *gorm.DB, id, userID uint) (models.Address, error) {
	var address models.Address
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&address).Error
	return address, notFound(err, "address %d not found", id)
}

func (b *AddressBook) Create(ctx context.Context, userID uint, in AddressInput) (models.Address, error) {
	if err := in.validate(); err != nil {
		return models.Address{}, err
	}

	address := models.Address{UserID: userID}
	in.apply(&address)

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		//第一筆地址一律為預設
		address.IsDefault = in.IsDefault || count == 0
		if address.IsDefault {
			if err := unsetDefault(tx, userID); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	return address, err
}

// Update 對目前預設地址送出is_default=false不會取消預設
func (b *AddressBook) Update(ctx context.Context, id, userID uint, in AddressInput) (models.Address, error) {
	if err := in.validate(); err != nil {
		return models.Address{}, err
	}

	var address models.Address
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		var err error
		address, err = findAddress(tx, id, userID)
		if err != nil {
			return err
		}

		in.apply(&address)
		if in.IsDefault && !address.IsDefault {
			if err := unsetDefault(tx, userID); err != nil {
				return err
			}
			address.IsDefault = true
		}
		return tx.Save(&address).Error
	})
	return address, err
}

// Delete 刪除預設地址時由最近更新的地址遞補
func (b *AddressBook) Delete(ctx context.Context, id, userID uint) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		address, err := findAddress(tx, id, userID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&address).Error; err != nil {
			return err
		}
		if !address.IsDefault {
			return nil
		}

		var next models.Address
		err = tx.
			Where("user_id = ?", userID).
			Order("updated_at desc, id desc").
			First(&next).
			Error
		if err != nil {
			return ignoreNotFound(err)
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
}

func (b *AddressBook) SetDefault(ctx context.Context, id, userID uint) (models.Address, error) {
	var address models.Address
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		var err error
		address, err = findAddress(tx, id, userID)
		if err != nil {
			return err
		}
		if address.IsDefault {
			return nil
		}

		if err := unsetDefault(tx, userID); err != nil {
			return err
		}
		address.IsDefault = true
		return tx.Model(&address).Update("is_default", true).Error
	})
	return address, err
}

func unsetDefault(tx *gorm.DB, userID uint) error {
	return tx.Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).
		Error
}
