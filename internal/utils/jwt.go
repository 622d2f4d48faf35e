package utils // package utils provides helpers for admin tokens and password hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed admin JWT together with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// AdminClaims are the claims carried by an admin access token.  Subject
// holds the admin id; Lots lists the lots a LOT_ADMIN may manage.
type AdminClaims struct {
	Role string   `json:"role"`
	Lots []uint64 `json:"lots,omitempty"`
	jwt.RegisteredClaims
}

// AdminID parses the subject claim.
func (c AdminClaims) AdminID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// NewAccessToken builds and signs an HS256 JWT for an admin.
func NewAccessToken(secret string, adminID uint64, role string, lots []uint64, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := AdminClaims{
		Role: role,
		Lots: lots,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(adminID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ErrInvalidToken is returned for tokens that fail signature, algorithm or
// expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// ParseAccessToken verifies raw with secret and returns its claims.  Only
// HMAC-signed tokens are accepted.
func ParseAccessToken(secret, raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
