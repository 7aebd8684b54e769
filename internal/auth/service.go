package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidAccess = errors.New("invalid access level")
)

// Access is the permission a share token grants on its board.
type Access string

const (
	AccessEdit Access = "edit"
	AccessView Access = "view"
)

func ParseAccess(s string) (Access, error) {
	switch Access(s) {
	case AccessEdit, AccessView:
		return Access(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccess, s)
}

// CanEdit reports whether the access level allows mutating the canvas.
func (a Access) CanEdit() bool { return a == AccessEdit }

// Claims are carried by a share token. The subject is the board id.
type Claims struct {
	Access Access `json:"access"`
	jwt.RegisteredClaims
}

func (c *Claims) BoardID() string { return c.Subject }

const defaultTokenTTL = 30 * 24 * time.Hour

// Service issues and validates board share tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    defaultTokenTTL,
	}
}

// Issue signs a token granting access to one board.
func (s *Service) Issue(boardID string, access Access) (string, error) {
	if _, err := ParseAccess(string(access)); err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		Access: access,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   boardID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Validate parses a token and returns its claims.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if _, err := ParseAccess(string(claims.Access)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &claims, nil
}

// TokenPair is handed out when a board is created.
type TokenPair struct {
	Edit string `json:"editToken"`
	View string `json:"viewToken"`
}

func (s *Service) IssuePair(boardID string) (*TokenPair, error) {
	edit, err := s.Issue(boardID, AccessEdit)
	if err != nil {
		return nil, err
	}
	view, err := s.Issue(boardID, AccessView)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Edit: edit, View: view}, nil
}
