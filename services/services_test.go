package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"Storefront/config"
	"Storefront/jwt"
	"Storefront/models"
	"Storefront/payment"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Passw0rd!"

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		testKey = key
	})
	return testKey
}

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *recordingMailer) messages() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type testEnv struct {
	db      *gorm.DB
	svc     *Services
	gateway *payment.Fake
	mail    *recordingMailer
	redis   *miniredis.Miniredis
	ctx     context.Context
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	env := &testEnv{
		db:      db,
		gateway: payment.NewFake(),
		mail:    &recordingMailer{},
		redis:   mr,
		ctx:     context.Background(),
	}
	env.svc = New(Deps{
		DB:             db,
		Redis:          rdb,
		Gateway:        env.gateway,
		Mailer:         env.mail,
		Signer:         jwt.NewSigner(signingKey(t)),
		Log:            zerolog.Nop(),
		FrontendURL:    "http://shop.test",
		PaymentTimeout: time.Second,
	})
	env.seedCatalog(t)
	return env
}

// seedCatalog 建立兩個分類與三個商品，商品1單價9.99、商品2單價5.00
func (e *testEnv) seedCatalog(t *testing.T) {
	t.Helper()
	categories := []models.Category{
		{ID: 1, Name: "Summer", Slug: "summer"},
		{ID: 2, Name: "Winter", Slug: "winter"},
	}
	if err := e.db.Create(&categories).Error; err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	products := []models.Product{
		{ID: 1, CategoryID: 1, Name: "Sun Hat", Slug: "sun-hat", Description: "Wide brim straw hat", Price: decimal.RequireFromString("9.99"), CreatedAt: base},
		{ID: 2, CategoryID: 1, Name: "Flip Flops", Slug: "flip-flops", Description: "Rubber sandals", Price: decimal.RequireFromString("5.00"), CreatedAt: base.Add(time.Hour)},
		{ID: 3, CategoryID: 2, Name: "Wool Scarf", Slug: "wool-scarf", Description: "Warm knitted scarf", Price: decimal.RequireFromString("20.00"), CreatedAt: base.Add(2 * time.Hour)},
	}
	if err := e.db.Omit("Category").Create(&products).Error; err != nil {
		t.Fatalf("seed products: %v", err)
	}
}

func (e *testEnv) register(t *testing.T, username, email string) models.User {
	t.Helper()
	user, err := e.svc.Users.Register(e.ctx, username, email, testPassword)
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func (e *testEnv) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
