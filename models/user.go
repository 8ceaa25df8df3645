package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username  string `gorm:"size:150;unique;not null"`
	Email     string `gorm:"size:254;unique;not null"`
	Password  string `gorm:"not null"`
	FirstName string `gorm:"size:150"`
	LastName  string `gorm:"size:150"`
	Role      string `gorm:"size:20;not null"`
}

// DisplayName 優先使用姓名，皆為空時回傳使用者名稱
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}
