package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jwalitptl/mediconnect-api/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carry the actor identity. Sessions are issued elsewhere; this
// package only signs and verifies.
type Claims struct {
	UserID int64      `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the identity passed to the core.
func (c *Claims) Actor() model.Actor {
	return model.Actor{UserID: c.UserID, Role: c.Role}
}

type JWTService struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewJWTService(secret, issuer string, expiry time.Duration) *JWTService {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

func (s *JWTService) GenerateAccessToken(user *model.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing uid or role", ErrInvalidToken)
	}
	return claims, nil
}
