package services

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"unicode"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
)

// PasswordPolicy 回傳密碼不符合的原因，空列表代表通過
type PasswordPolicy interface {
	Validate(password string) []string
}

// DefaultPasswordPolicy 8到50字元，需包含大小寫、數字與特殊符號，不可有空白
type DefaultPasswordPolicy struct{}

func (DefaultPasswordPolicy) Validate(password string) []string {
	var reasons []string
	if len(password) < 8 || len(password) > 50 {
		reasons = append(reasons, "password must be between 8 and 50 characters")
	}

	var (
		isUpper   = false
		isLower   = false
		isNumber  = false
		isSpecial = false
		isSpace   = false
	)
	for _, s := range password {
		switch {
		case unicode.IsSpace(s):
			isSpace = true
		case unicode.IsUpper(s):
			isUpper = true
		case unicode.IsLower(s):
			isLower = true
		case unicode.IsDigit(s):
			isNumber = true
		case unicode.IsPunct(s) || unicode.IsSymbol(s):
			isSpecial = true
		}
	}

	if !isUpper {
		reasons = append(reasons, "password must contain an uppercase letter")
	}
	if !isLower {
		reasons = append(reasons, "password must contain a lowercase letter")
	}
	if !isNumber {
		reasons = append(reasons, "password must contain a digit")
	}
	if !isSpecial {
		reasons = append(reasons, "password must contain a special character")
	}
	if isSpace {
		reasons = append(reasons, "password must not contain whitespace")
	}
	return reasons
}

// 檢查使用者名稱是否合法
func ValidateUsername(username string) bool {
	if len(username) < 8 || len(username) > 20 {
		return false
	}
	return usernamePattern.MatchString(username)
}

// 檢查信箱是否合法
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// randomToken 產生64個十六進位字元的驗證碼
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
