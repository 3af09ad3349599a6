package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

var _ ports.TokenService = (*JWTTokenService)(nil)

// NewJWTTokenService creates a new JWT token service. When issuer is set,
// tokens carrying a different "iss" are rejected.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate signs a token for the given identity. Production tokens come from
// the identity provider; this is used by dev tooling and tests.
func (s *JWTTokenService) Generate(c ports.TokenClaims) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if c.UserID != "" {
		claims["sub"] = c.UserID
	}
	if c.Email != "" {
		claims["email"] = c.Email
	}
	if c.Role != "" {
		claims["role"] = c.Role
	}
	if c.TenantID != "" {
		claims["tenant"] = c.TenantID
	}
	if c.Admin {
		claims["admin"] = true
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates a JWT token, returning the claims.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	out := &ports.TokenClaims{
		UserID:   stringClaim(claims, "sub"),
		Email:    stringClaim(claims, "email"),
		Role:     stringClaim(claims, "role"),
		TenantID: stringClaim(claims, "tenant"),
	}
	if out.UserID == "" && out.Email == "" {
		return nil, errors.New("token carries neither subject nor email")
	}
	out.Admin, _ = claims["admin"].(bool)

	return out, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	v, _ := claims[name].(string)
	return strings.TrimSpace(v)
}
