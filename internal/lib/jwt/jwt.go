package jwt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const refreshTokenSize = 32

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the verified content of an access token.
type Claims struct {
	UserID    int64
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewAccessToken signs an HS256 access token for userID valid for ttl from now.
func NewAccessToken(userID int64, secret []byte, issuer string, ttl time.Duration, now time.Time) (string, error) {
	const op = "jwt.NewAccessToken"

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// ParseAccessToken verifies tokenStr at instant now. An empty issuer skips the
// issuer check. Only a token with a valid signature whose sole defect is its
// expiry yields ErrTokenExpired; everything else is ErrTokenInvalid.
func ParseAccessToken(tokenStr string, secret []byte, issuer string, now time.Time) (Claims, error) {
	const op = "jwt.ParseAccessToken"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	var rc jwt.RegisteredClaims

	token, err := jwt.ParseWithClaims(tokenStr, &rc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return Claims{}, fmt.Errorf("%s: %w: %v", op, ErrTokenInvalid, err)
	}

	if !token.Valid {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	userID, err := strconv.ParseInt(rc.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, fmt.Errorf("%s: %w: bad subject", op, ErrTokenInvalid)
	}

	claims := Claims{
		UserID:    userID,
		Issuer:    rc.Issuer,
		ExpiresAt: rc.ExpiresAt.Time,
	}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}

	return claims, nil
}

// NewRefreshToken returns 256 bits from crypto/rand, hex encoded.
func NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenSize)

	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("jwt.NewRefreshToken: %w", err)
	}

	return hex.EncodeToString(b), nil
}

// HashRefreshToken is the form refresh tokens are stored and looked up in.
func HashRefreshToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
