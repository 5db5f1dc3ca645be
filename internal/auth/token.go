package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookarr/pkg/utils"
)

// Claims is what a bookarr bearer token carries. UserID doubles as the
// registered subject; it is kept as its own field so handlers that tag
// requests and shelf rows with an owner never dig into RegisteredClaims.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the HS256 tokens that own requests and
// shelves. Tokens are stateless: expiry is the only revocation, so the
// configured lifetime should stay short.
type TokenService struct {
	Secret   []byte
	Issuer   string
	Duration time.Duration
}

// NewTokenService builds the service from process-level auth config.
func NewTokenService(cfg utils.AuthConfig) TokenService {
	return TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTDuration,
	}
}

// Issue signs a token for u and returns it together with its expiry.
func (ts TokenService) Issue(u *User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ts.Duration)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := tok.SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses raw and returns its claims. The parser pins HS256 and the
// configured issuer, so a token signed with another algorithm or minted by
// another deployment fails here rather than in a handler.
func (ts TokenService) Verify(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return ts.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ts.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if claims.UserID == "" {
		// tolerate tokens minted before UserID was its own claim
		claims.UserID = claims.Subject
	}
	return &claims, nil
}
