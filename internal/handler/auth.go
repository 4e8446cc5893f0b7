package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const tokenCookieName = "__resident_scheduler_token"

type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignToken 为指定用户签发 HS256 令牌
func SignToken(secret, subject string, role domain.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   subject,
		},
	})
	return token.SignedString([]byte(secret))
}

func parseToken(secret, tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// tokenFromRequest 优先读取 Authorization 头，其次读取 cookie
func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			return "", errors.New("Authorization 头格式错误")
		}
		return tokenString, nil
	}

	cookie, err := r.Cookie(tokenCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
