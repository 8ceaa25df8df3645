package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidClaims = errors.New("invalid token claims")

type Claims struct {
	UserID uint
	Role   string
}

// Signer 以RS256簽發及驗證Token
type Signer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	now        func() time.Time
}

func NewSigner(privateKey *rsa.PrivateKey) *Signer {
	return &Signer{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		now:        time.Now,
	}
}

// LoadSigner 讀取PEM格式的私鑰與公鑰
func LoadSigner(privateKeyPath, publicKeyPath string) (*Signer, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, err
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	keyBytes, err = os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, err
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Signer{privateKey: privateKey, publicKey: publicKey, now: time.Now}, nil
}

// GenerateToken 生成JWT Token
func (s *Signer) GenerateToken(userID uint, role string, expTime time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"userID": userID,
		"role":   role,
		"iat":    s.now().Unix(),
		"exp":    expTime.Unix(),
	})

	return token.SignedString(s.privateKey)
}

// ParseToken 驗證簽章與期限並取出Claims，撤銷檢查由呼叫端負責
func (s *Signer) ParseToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, err
	}

	if !token.Valid {
		return Claims{}, jwt.ErrTokenSignatureInvalid
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidClaims
	}
	userID, ok := mapClaims["userID"].(float64)
	if !ok {
		return Claims{}, ErrInvalidClaims
	}
	role, _ := mapClaims["role"].(string)

	return Claims{UserID: uint(userID), Role: role}, nil
}
