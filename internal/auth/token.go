package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
)

type staffClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenVerifier resolves a bearer token to the calling staff member.
type TokenVerifier interface {
	Verify(token string) (domain.StaffIdentity, error)
}

// JWT signs and verifies HS256 staff tokens carrying sub and role claims.
type JWT struct {
	secret []byte
	now    func() time.Time
}

var _ TokenVerifier = (*JWT)(nil)

func NewJWT(secret string) (*JWT, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWT{secret: []byte(secret), now: time.Now}, nil
}

func (j *JWT) Issue(identity domain.StaffIdentity, expiry time.Duration) (string, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", fmt.Errorf("%w: staff id is required", domain.ErrValidation)
	}
	if !identity.Role.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrValidation, identity.Role)
	}

	now := j.now()
	claims := staffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Role: string(identity.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify rejects tokens that are unsigned, signed with another algorithm,
// expired, or missing a subject or a known role.
func (j *JWT) Verify(token string) (domain.StaffIdentity, error) {
	claims := &staffClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.StaffIdentity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return domain.StaffIdentity{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	identity := domain.StaffIdentity{ID: strings.TrimSpace(claims.Subject), Role: domain.Role(claims.Role)}
	if identity.ID == "" {
		return domain.StaffIdentity{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	if !identity.Role.IsValid() {
		return domain.StaffIdentity{}, fmt.Errorf("%w: token has unknown role %q", domain.ErrUnauthorized, claims.Role)
	}
	return identity, nil
}
