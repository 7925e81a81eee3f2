package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/parishhub/parish/internal/model"
)

const (
	DefaultTokenTTL = 7 * 24 * time.Hour
	tokenIssuer     = "parish"

	kindAdmin  = "admin"
	kindFamily = "family"
)

// ErrUnauthenticated covers every reason a token cannot be accepted.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims is the token payload. Kind decides which identity it decodes to.
type Claims struct {
	Kind        string             `json:"kind"`
	Role        model.Role         `json:"role,omitempty"`
	Permissions []model.Permission `json:"permissions,omitempty"`
	FamilyID    int64              `json:"familyId,omitempty"`
	AdminID     int64              `json:"adminId,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the identity.
func (m *TokenManager) Issue(id model.Identity) (string, error) {
	var claims Claims
	switch v := id.(type) {
	case model.AdminIdentity:
		claims = Claims{
			Kind:        kindAdmin,
			Role:        v.Role,
			Permissions: v.Permissions,
			AdminID:     v.AdminID,
		}
		claims.Subject = strconv.FormatInt(v.AdminID, 10)
	case model.FamilyIdentity:
		claims = Claims{
			Kind:     kindFamily,
			Role:     model.RoleFamily,
			FamilyID: v.FamilyID,
		}
		claims.Subject = strconv.FormatInt(v.FamilyID, 10)
	default:
		return "", fmt.Errorf("issue token: unsupported identity %T", id)
	}

	now := m.now()
	claims.Issuer = tokenIssuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token and decodes its identity. Every failure wraps
// ErrUnauthenticated.
func (m *TokenManager) Parse(tokenString string) (model.Identity, error) {
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	switch claims.Kind {
	case kindAdmin:
		if claims.AdminID == 0 || !claims.Role.IsAdmin() {
			return nil, fmt.Errorf("%w: malformed admin claims", ErrUnauthenticated)
		}
		return model.AdminIdentity{
			AdminID:     claims.AdminID,
			Role:        claims.Role,
			Permissions: claims.Permissions,
		}, nil
	case kindFamily:
		if claims.FamilyID == 0 {
			return nil, fmt.Errorf("%w: malformed family claims", ErrUnauthenticated)
		}
		return model.FamilyIdentity{FamilyID: claims.FamilyID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown token kind %q", ErrUnauthenticated, claims.Kind)
	}
}
