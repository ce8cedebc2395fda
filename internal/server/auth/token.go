package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avdeev/authgate/internal/common"
	"github.com/avdeev/authgate/internal/server/models"
)

// Purpose tags what a token is good for. Each purpose is signed with its own
// secret, so a token issued for one purpose can never verify as another even
// if its payload were altered to claim so.
type Purpose string

const (
	PurposeAccess      Purpose = "access"
	PurposeRefresh     Purpose = "refresh"
	PurposeEmailVerify Purpose = "email-verify"
)

// Claims is the payload carried by every authgate token.
//
// TokenVersion snapshots the user's revocation counter at issuance. Verify
// does not compare it against the store; that is the workflow's job.
type Claims struct {
	jwt.RegisteredClaims
	Role         models.Role `json:"role,omitempty"`
	TokenVersion int64       `json:"tv"`
	Purpose      Purpose     `json:"purpose"`
}

// TokenService signs and verifies the three token kinds (HS256).
type TokenService struct {
	secrets map[Purpose][]byte
}

// NewTokenService builds a TokenService from per-purpose signing secrets.
// The secrets are validated for presence at config load; by the time this
// constructor runs they are guaranteed non-empty.
func NewTokenService(accessSecret, refreshSecret, emailSecret string) *TokenService {
	return &TokenService{
		secrets: map[Purpose][]byte{
			PurposeAccess:      []byte(accessSecret),
			PurposeRefresh:     []byte(refreshSecret),
			PurposeEmailVerify: []byte(emailSecret),
		},
	}
}

// Issue produces a signed token for subject with the given purpose, role,
// token version, and validity window. Role may be empty for tokens that do
// not carry authorization (refresh, email-verify).
func (s *TokenService) Issue(purpose Purpose, subject string, role models.Role, tokenVersion int64, validityDuration time.Duration) (string, error) {
	secret, ok := s.secrets[purpose]
	if !ok {
		return "", common.ErrInvalidToken
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Role:         role,
		TokenVersion: tokenVersion,
		Purpose:      purpose,
	})

	return token.SignedString(secret)
}

// Verify checks the signature and expiry of tokenString against the secret
// for expectedPurpose and returns its claims.
//
// Error contract: an expired token whose signature checks out yields
// common.ErrTokenExpired so callers can distinguish "needs refresh" from
// "tampered/forged"; every other failure (bad signature, malformed payload,
// wrong algorithm, purpose mismatch) yields common.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string, expectedPurpose Purpose) (*Claims, error) {
	secret, ok := s.secrets[expectedPurpose]
	if !ok {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Purpose != expectedPurpose {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
