package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by both access and refresh tokens. CreatorID is the tenant
// key everything downstream hangs off.
type Claims struct {
	jwt.RegisteredClaims
	CreatorID uuid.UUID `json:"cid"`
	Email     string    `json:"email,omitempty"`
	SessionID string    `json:"sid,omitempty"`
	TokenUse  string    `json:"use"` // "access" or "refresh"
}

// TokenManager issues and verifies the JWT pair.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IssuePair mints an access/refresh token pair bound to a session.
func (m *TokenManager) IssuePair(creatorID uuid.UUID, email, sessionID string) (*TokenPair, error) {
	now := time.Now()

	access, err := m.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   creatorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
		CreatorID: creatorID,
		Email:     email,
		TokenUse:  "access",
	})
	if err != nil {
		return nil, err
	}

	refresh, err := m.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   creatorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
		CreatorID: creatorID,
		SessionID: sessionID,
		TokenUse:  "refresh",
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

func (m *TokenManager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccess parses and validates an access token.
func (m *TokenManager) VerifyAccess(tokenString string) (*Claims, error) {
	return m.verify(tokenString, "access")
}

// VerifyRefresh parses and validates a refresh token.
func (m *TokenManager) VerifyRefresh(tokenString string) (*Claims, error) {
	return m.verify(tokenString, "refresh")
}

func (m *TokenManager) verify(tokenString, use string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenUse != use {
		return nil, fmt.Errorf("%w: wrong token use %q", ErrInvalidToken, claims.TokenUse)
	}
	if claims.CreatorID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing creator id", ErrInvalidToken)
	}
	return claims, nil
}
