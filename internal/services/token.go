package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juhojo/blabbermouth/internal/models"
)

const (
	TokenLifetime = 2 * time.Hour
	// TokenNotBeforeOffset delays the first moment a fresh token is accepted.
	TokenNotBeforeOffset = 10 * time.Second
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenUser is the identity embedded in a bearer token.
type TokenUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type Claims struct {
	jwt.RegisteredClaims
	User TokenUser `json:"user"`
}

type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), now: time.Now}
}

// Create signs a token for user issued at now. It returns the token and its
// absolute expiry. now is truncated to the claim precision so nbf and exp sit
// exactly TokenNotBeforeOffset and TokenLifetime after iat.
func (s *TokenService) Create(user *models.User, now time.Time) (string, time.Time, error) {
	now = now.Truncate(jwt.TimePrecision)
	exp := now.Add(TokenLifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti is not checked against a revocation list yet
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(TokenNotBeforeOffset)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		User: TokenUser{ID: user.ID, Email: user.Email},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate verifies the signature and the nbf/exp window against the service clock.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.User.ID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
