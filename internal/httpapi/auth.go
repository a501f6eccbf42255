package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"motomarket/backend/internal/domain"
)

// AuthManager issues and parses the role-bearing access tokens. There are no
// per-user accounts: the shop terminal logs in as a role. The director role
// requires the director password; the seller role is open, matching the
// original single-terminal design where the app starts in seller mode.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	verifier DirectorPasswordVerifier
}

type DirectorPasswordVerifier interface {
	VerifyDirectorPassword(ctx context.Context, candidate string) (bool, error)
}

type roleClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, verifier DirectorPasswordVerifier) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		verifier: verifier,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	role := strings.ToLower(strings.TrimSpace(req.Role))

	switch role {
	case domain.RoleDirector:
		ok, err := a.verifier.VerifyDirectorPassword(ctx, req.Password)
		if err != nil {
			return domain.LoginResponse{}, err
		}
		if !ok {
			return domain.LoginResponse{}, errors.New("invalid credentials")
		}
	case domain.RoleSeller:
		// No credential; the seller surface carries no cost or profit data.
	default:
		return domain.LoginResponse{}, errors.New("unknown role")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &roleClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	if claims.Role != domain.RoleDirector && claims.Role != domain.RoleSeller {
		return domain.Actor{}, errors.New("invalid token role")
	}
	return domain.Actor{Role: claims.Role}, nil
}

func (a *AuthManager) sign(role string, expiresAt time.Time) (string, error) {
	claims := roleClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   role,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "motomarket",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
