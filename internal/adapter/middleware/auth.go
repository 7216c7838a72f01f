package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"loan-tracker/internal/domain/loan"
)

const callerKey = "caller"

// Claims is the token body issued by the identity service.
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth verifies an HS256 bearer token and stores the caller on the context.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			caller, err := ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			c.Set(callerKey, caller)
			return next(c)
		}
	}
}

// RequireAdmin rejects non-admin callers; use after JWTAuth.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, ok := CallerFrom(c)
		if !ok || !caller.IsAdmin() {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "admin access required"})
		}
		return next(c)
	}
}

func CallerFrom(c echo.Context) (loan.Caller, bool) {
	caller, ok := c.Get(callerKey).(loan.Caller)
	return caller, ok && caller.ID != ""
}

func ParseToken(secret []byte, token string) (loan.Caller, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return loan.Caller{}, err
	}
	id := claims.ID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return loan.Caller{}, errors.New("token has no subject")
	}
	role := loan.Role(strings.ToLower(claims.Role))
	if role == "" {
		role = loan.RoleUser
	}
	if role != loan.RoleUser && role != loan.RoleAdmin {
		return loan.Caller{}, errors.New("unknown role")
	}
	return loan.Caller{ID: id, Role: role}, nil
}

// IssueToken signs a token for caller. Used by tests and local tooling.
func IssueToken(secret []byte, caller loan.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:   caller.ID,
		Role: string(caller.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
