// Package services holds the storefront operations. Handlers stay thin and
// call into these; everything that touches more than one row runs in a gorm
// transaction here.
package services

import (
	"errors"
	"time"

	"Storefront/apperror"
	"Storefront/cache"
	"Storefront/jwt"
	"Storefront/mailer"
	"Storefront/models"
	"Storefront/payment"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Gateway payment.Gateway
	Mailer  mailer.Sender
	Signer  *jwt.Signer
	Policy  PasswordPolicy
	Log     zerolog.Logger

	FrontendURL    string
	TokenTTL       time.Duration
	PaymentTimeout time.Duration
	LockTTL        time.Duration
}

type Services struct {
	Catalog      *Catalog
	Cart         *Cart
	Checkout     *Checkout
	Orders       *Orders
	Addresses    *AddressBook
	Users        *Users
	Account      *Account
	Verification *Verification
}

func New(d Deps) *Services {
	if d.Policy == nil {
		d.Policy = DefaultPasswordPolicy{}
	}
	if d.TokenTTL <= 0 {
		d.TokenTTL = 24 * time.Hour
	}
	if d.PaymentTimeout <= 0 {
		d.PaymentTimeout = 10 * time.Second
	}
	if d.LockTTL <= 0 {
		d.LockTTL = time.Minute
	}

	var products *cache.Products
	var locker *cache.Locker
	if d.Redis != nil {
		products = cache.NewProducts(d.Redis)
		locker = cache.NewLocker(d.Redis, "checkout:", d.LockTTL)
	}

	cart := &Cart{db: d.DB}
	return &Services{
		Catalog: &Catalog{db: d.DB, cache: products, log: d.Log},
		Cart:    cart,
		Checkout: &Checkout{
			db:      d.DB,
			cart:    cart,
			gateway: d.Gateway,
			mailer:  d.Mailer,
			locker:  locker,
			timeout: d.PaymentTimeout,
			log:     d.Log,
		},
		Orders:    &Orders{db: d.DB},
		Addresses: &AddressBook{db: d.DB},
		Users: &Users{
			db:     d.DB,
			signer: d.Signer,
			policy: d.Policy,
			ttl:    d.TokenTTL,
			now:    time.Now,
		},
		Account: &Account{db: d.DB, policy: d.Policy},
		Verification: &Verification{
			db:          d.DB,
			mailer:      d.Mailer,
			frontendURL: d.FrontendURL,
			now:         time.Now,
			newToken:    randomToken,
			log:         d.Log,
		},
	}
}

// lockUser 鎖定使用者資料列，讓同一使用者的地址與購物車寫入依序執行
func lockUser(tx *gorm.DB, userID uint) error {
	var user models.User
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&user, userID).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Unauthorized("user %d does not exist", userID)
	}
	return err
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(format, args...)
	}
	return err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
