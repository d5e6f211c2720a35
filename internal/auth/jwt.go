package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims are the JWT claims carried by access tokens
type Claims struct {
	DisplayName string   `json:"name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
	StoreIDs    []string `json:"store_ids,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS256 access tokens
type TokenManager struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

// NewTokenManager creates a token manager with the given signing secret
func NewTokenManager(secret, issuer string, tokenTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		tokenTTL: tokenTTL,
	}
}

// IssueToken signs a token for the given actor
func (m *TokenManager) IssueToken(actor *ActorContext) (string, error) {
	now := time.Now()
	storeIDs := make([]string, len(actor.StoreIDs))
	for i, id := range actor.StoreIDs {
		storeIDs[i] = id.String()
	}

	claims := Claims{
		DisplayName: actor.DisplayName,
		Email:       actor.Email,
		Roles:       actor.RolesAsStrings(),
		StoreIDs:    storeIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a token and returns the actor it represents
func (m *TokenManager) ValidateToken(tokenString string) (*ActorContext, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	roles := make([]domain.RoleType, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		role := domain.RoleType(r)
		if role.IsValid() {
			roles = append(roles, role)
		}
	}

	storeIDs := make([]uuid.UUID, 0, len(claims.StoreIDs))
	for _, s := range claims.StoreIDs {
		if id, parseErr := uuid.Parse(s); parseErr == nil {
			storeIDs = append(storeIDs, id)
		}
	}

	return &ActorContext{
		UserID:      userID,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
		Roles:       roles,
		StoreIDs:    storeIDs,
	}, nil
}
