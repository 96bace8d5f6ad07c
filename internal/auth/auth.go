package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"reciclaai/internal/httperr"
)

// Context — разрешённый контекст авторизации, передаётся явно в обработчики
type Context struct {
	ActorID int
	Role    string
}

// Claims токена доступа
type Claims struct {
	jwt.RegisteredClaims
	UserID   int    `json:"user_id"`
	UserType string `json:"user_type"`
}

// TokenManager выпускает и проверяет JWT (HMAC-SHA256)
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (tm *TokenManager) issue(userID int, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "reciclaai",
		},
		UserID:   userID,
		UserType: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// IssuePair выпускает пару access/refresh токенов для аккаунта
func (tm *TokenManager) IssuePair(userID int, role string) (access, refresh string, err error) {
	access, err = tm.issue(userID, role, tm.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = tm.issue(userID, role, tm.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Verify разбирает и проверяет строку токена
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, httperr.InvalidCredential("invalid or expired token")
	}
	return claims, nil
}

// Resolve извлекает контекст авторизации из bearer-учётных данных запроса.
// Отсутствие или неверный формат заголовка — Unauthenticated,
// просроченный или битый токен — InvalidCredential.
func (tm *TokenManager) Resolve(r *http.Request) (*Context, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, httperr.Unauthenticated("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, httperr.Unauthenticated("expected 'Bearer <token>'")
	}

	claims, err := tm.Verify(parts[1])
	if err != nil {
		return nil, err
	}
	if claims.UserID <= 0 || claims.UserType == "" {
		return nil, httperr.InvalidCredential("token carries no actor identity")
	}
	return &Context{ActorID: claims.UserID, Role: claims.UserType}, nil
}

// HashPassword хэширует пароль перед сохранением
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword сверяет пароль с хэшем
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
