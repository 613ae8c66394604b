package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const UserTokenTTL = 7 * 24 * time.Hour

var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the signed token payload. User tokens carry both the user id and
// the email; admin tokens carry the email alone.
type Claims struct {
	UserID int    `json:"userId,omitempty"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and verifies signed bearer tokens. Verification is stateless,
// there is no revocation: a token stays valid for its whole lifetime.
type Service struct {
	secret []byte

	// injectable for tests
	Now func() time.Time
}

// NewService fails on an empty secret on purpose: refusing to start beats
// signing tokens with a compiled-in fallback.
func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	return &Service{
		secret: []byte(secret),
		Now:    time.Now,
	}, nil
}

// IssueUser produces a user token, expiring after UserTokenTTL.
func (s *Service) IssueUser(userID int, email string) (string, error) {
	now := s.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(UserTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// IssueAdmin produces an admin token carrying the email claim only. Admin
// tokens are issued without an expiry, mirroring the original panel behavior.
func (s *Service) IssueAdmin(email string) (string, error) {
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates the token and returns its claims.
// Any malformed, expired or badly signed token yields ErrInvalidToken.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return s.secret, nil
		},
		jwt.WithTimeFunc(func() time.Time { return s.Now() }),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
