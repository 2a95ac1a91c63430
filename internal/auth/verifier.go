// Package auth verifies operator session tokens and restricts write
// operations to an allow list of usernames.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/golang-jwt/jwt/v4"
)

// Config holds session verification configuration
type Config struct {
	JWTSecret        string   `mapstructure:"jwt_secret"`
	JWTPublicKey     string   `mapstructure:"jwt_public_key"`
	Issuer           string   `mapstructure:"issuer"`
	AllowedUsernames []string `mapstructure:"allowed_usernames"`
}

// User is the identity carried by a verified session
type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Claims are the session token claims the catalog reads
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Verifier validates a session token and returns the authorized user
type Verifier interface {
	VerifySession(ctx context.Context, token string) (*User, error)
}

// JWTVerifier verifies session JWTs locally with a public key or shared secret
type JWTVerifier struct {
	publicKey *rsa.PublicKey
	secret    []byte
	issuer    string
	allowed   map[string]struct{}
}

// NewJWTVerifier creates a verifier. An RS256 public key takes precedence
// over an HS256 secret; at least one must be configured.
func NewJWTVerifier(config Config) (*JWTVerifier, error) {
	v := &JWTVerifier{
		issuer:  config.Issuer,
		allowed: make(map[string]struct{}, len(config.AllowedUsernames)),
	}

	for _, name := range config.AllowedUsernames {
		if name = strings.TrimSpace(name); name != "" {
			v.allowed[name] = struct{}{}
		}
	}

	switch {
	case strings.TrimSpace(config.JWTPublicKey) != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(config.JWTPublicKey))
		if err != nil {
			return nil, fmt.Errorf("invalid JWT public key: %w", err)
		}
		v.publicKey = key
	case config.JWTSecret != "":
		v.secret = []byte(config.JWTSecret)
	default:
		return nil, errors.New("either a JWT public key or a JWT secret is required")
	}

	return v, nil
}

// VerifySession validates the token signature and claims, then checks the
// username against the allow list. An empty allow list admits any
// verified user.
func (v *JWTVerifier) VerifySession(ctx context.Context, tokenString string) (*User, error) {
	const op = "auth.VerifySession"

	if tokenString == "" {
		return nil, apperrors.Unauthorized(op, "Missing or invalid Authorization header. Expected: Bearer <token>", nil)
	}

	methods := []string{jwt.SigningMethodHS256.Alg()}
	if v.publicKey != nil {
		methods = []string{jwt.SigningMethodRS256.Alg()}
	}
	parser := jwt.NewParser(jwt.WithValidMethods(methods))

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if v.publicKey != nil {
			return v.publicKey, nil
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized(op, "Invalid or expired session token", err)
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, apperrors.Unauthorized(op, "Invalid or expired session token", errors.New("unexpected issuer"))
	}

	if claims.Subject == "" {
		return nil, apperrors.Unauthorized(op, "No user ID found in session", nil)
	}

	if len(v.allowed) > 0 {
		if _, ok := v.allowed[claims.Username]; !ok {
			username := claims.Username
			if username == "" {
				username = "unknown"
			}
			return nil, apperrors.Unauthorized(op,
				fmt.Sprintf("Access denied. User '%s' is not authorized to access this resource.", username), nil)
		}
	}

	return &User{
		ID:       claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}
