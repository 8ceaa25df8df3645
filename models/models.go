package models

// All 回傳需要 AutoMigrate 的全部資料表
func All() []interface{} {
	return []interface{}{
		&User{},
		&LoginToken{},
		&UserProfile{},
		&UserSettings{},
		&EmailVerification{},
		&Category{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Address{},
	}
}
