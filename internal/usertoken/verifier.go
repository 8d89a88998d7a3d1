package usertoken

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"theonebook/internal/util"
	"theonebook/pkg/domain"
	"theonebook/pkg/store"
)

const (
	defaultIssuer   = "theonebook"
	defaultAudience = "theonebook-api"
	defaultLeeway   = 30 * time.Second
	defaultTTL      = 7 * 24 * time.Hour
	minSecretLength = 16
)

var (
	// ErrUnauthenticated covers missing, malformed, forged and revoked tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenExpired is reported separately so clients can prompt a re-login.
	ErrTokenExpired = errors.New("token expired")
)

// Config configures user access-token issuing and verification.
type Config struct {
	Secret   string
	TTL      time.Duration
	Issuer   string
	Audience string
	Leeway   time.Duration
	Revoker  store.TokenRevoker
}

// Verifier issues and validates HS256 user access tokens.
type Verifier struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	leeway   time.Duration
	revoker  store.TokenRevoker
	now      func() time.Time
}

type userClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// NewVerifier creates a token verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d characters", minSecretLength)
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = defaultAudience
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Verifier{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   issuer,
		audience: audience,
		leeway:   leeway,
		revoker:  cfg.Revoker,
		now:      time.Now,
	}, nil
}

// Issue signs a token for the user.
func (v *Verifier) Issue(user domain.User) (string, error) {
	now := v.now().UTC()
	claims := userClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    v.issuer,
			Audience:  jwt.ClaimStrings{v.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        util.NewID(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify validates the token and returns the caller identity.
func (v *Verifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := v.parse(token)
	if err != nil {
		return domain.Identity{}, err
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || userID <= 0 {
		return domain.Identity{}, fmt.Errorf("%w: bad subject", ErrUnauthenticated)
	}
	if v.revoker != nil {
		revoked, err := v.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return domain.Identity{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return domain.Identity{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
		}
	}
	return domain.Identity{UserID: userID, Username: claims.Username, TokenID: claims.ID}, nil
}

// Revoke invalidates the token until it would have expired.
// Tokens that no longer verify are already unusable and are ignored.
func (v *Verifier) Revoke(ctx context.Context, token string) error {
	if v.revoker == nil {
		return nil
	}
	claims, err := v.parse(token)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}
	return v.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time.Sub(v.now()))
}

func (v *Verifier) parse(token string) (userClaims, error) {
	claims := userClaims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, fmt.Errorf("%w: empty token", ErrUnauthenticated)
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, ErrTokenExpired
		}
		return claims, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return claims, ErrUnauthenticated
	}
	return claims, nil
}
