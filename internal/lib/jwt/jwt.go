package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidTokenClaims = errors.New("invalid token claims")
	ErrTokenExpired       = errors.New("token expired")
)

// AdminClaims - claims токена администратора. Name попадает в uploaded_by.
type AdminClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// NewToken выпускает HS256 токен на имя администратора.
func NewToken(name, secret string, duration time.Duration) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidTokenClaims
	}

	now := time.Now()
	claims := AdminClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse проверяет подпись и срок действия.
func Parse(tokenString, secret string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || strings.TrimSpace(claims.Name) == "" {
		return nil, ErrInvalidTokenClaims
	}

	return claims, nil
}

// NameFromToken читает имя без проверки подписи. Для клиента, у которого нет секрета.
func NameFromToken(tokenString string) (string, error) {
	claims := &AdminClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Name) == "" {
		return "", ErrInvalidTokenClaims
	}
	return claims.Name, nil
}
