package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken возвращается для неподписанных, просроченных и испорченных токенов
	ErrInvalidToken = errors.New("недействительный токен")
	// ErrWeakSecret возвращается для слишком короткого секрета
	ErrWeakSecret = errors.New("секрет должен быть не короче 32 байт")
)

const issuer = "happy-builder"

// Claims represents JWT claims
type Claims struct {
	BuilderID string `json:"builder_id"`
	CanEdit   bool   `json:"can_edit"`
	jwt.RegisteredClaims
}

// TokenSigner выпускает и проверяет токены доступа к правкам мира
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner создаёт подписчика с секретом из конфигурации.
// Секрет принимается как base64 или как сырая строка.
func NewTokenSigner(secret string, ttl time.Duration) (*TokenSigner, error) {
	key := []byte(secret)
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) >= 32 {
		key = decoded
	}
	if len(key) < 32 {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenSigner{secret: key, ttl: ttl}, nil
}

// Issue creates a signed token for the given builder
func (s *TokenSigner) Issue(builderID string, canEdit bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		BuilderID: builderID,
		CanEdit:   canEdit,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   builderID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks token validity and returns its claims
func (s *TokenSigner) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecureSecret generates a new secure secret key
func GenerateSecureSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
