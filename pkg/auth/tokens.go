package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the JWT payload for an access token. The subject is the
// user ID; the role claim lets clients render what the account may do
// without an extra round trip, but the server always re-reads the user row.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access tokens and mints refresh tokens.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a TokenIssuer. The secret must not be empty.
func NewTokenIssuer(secret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token secret must not be empty")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &TokenIssuer{
		secret:     secret,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// IssueAccessToken signs a new access token for the user. It returns the
// compact token and its expiry time.
func (ti *TokenIssuer) IssueAccessToken(user *User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ti.accessTTL)

	claims := Claims{
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			Issuer:    ti.issuer,
			Audience:  jwt.ClaimStrings{ti.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, expiresAt, nil
}

// ParseAccessToken verifies a compact access token and returns its claims.
func (ti *TokenIssuer) ParseAccessToken(tokenString string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{}
	if ti.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(ti.issuer))
	}
	if ti.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(ti.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	return claims, nil
}

// RefreshTTL returns how long a freshly minted refresh token lives.
func (ti *TokenIssuer) RefreshTTL() time.Duration { return ti.refreshTTL }

// NewRefreshToken mints an opaque refresh token. The plain value goes to the
// client; only the hash is stored.
func NewRefreshToken() (plain, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}
	plain = hex.EncodeToString(buf)
	return plain, HashRefreshToken(plain), nil
}

// HashRefreshToken returns the hex SHA-256 digest of a refresh token.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
