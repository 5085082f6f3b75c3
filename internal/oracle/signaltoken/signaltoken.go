// Package signaltoken authenticates external verifier callbacks.
//
// The callback endpoint is the only inbound path that can complete a request
// without going through the pipeline, so its bearer tokens are verified
// against a shared signing key before any state is touched.
package signaltoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "verivote/pkg/domain-errors"
)

// Claims carries the verification verdict asserted by the external verifier.
type Claims struct {
	RequestID  string `json:"request_id"`
	IsVerified bool   `json:"is_verified"`
	jwt.RegisteredClaims
}

// Service signs and validates signal tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func New(signingKey string, issuer string, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Generate issues a signed signal token. Used by tests and by operators
// provisioning callback credentials for a verifier.
func (s *Service) Generate(requestID string, isVerified bool, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RequestID:  requestID,
		IsVerified: isVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// Validate parses and verifies a signal token, returning its claims.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "signal token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid signal token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid signal token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid signal token claims")
	}
	if claims.RequestID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signal token missing request id")
	}

	return claims, nil
}
