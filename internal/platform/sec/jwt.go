// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing) from
// the domain logic. Session semantics (TTL policy, invalidation, claim
// derivation) live in the auth service; sec only signs and verifies.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/backoffice/pkg/uuid"
)

// ErrTokenExpired is returned by [TokenService.VerifyToken] for a well-signed but expired token.
var ErrTokenExpired = errors.New("sec: token expired")

// SessionClaims is the payload embedded inside a session token.
//
// Roles and Permissions are a snapshot taken at issuance. They are not live:
// changes made after issuance surface only after a refresh or a new login.
type SessionClaims struct {
	jwt.RegisteredClaims

	PrincipalID string   `json:"principal_id"`
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	GuardType   string   `json:"guard_type"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Remember    bool     `json:"remember"`

	// Level is the highest role level held at issuance.
	Level int `json:"level"`

	// AuthTime is when the credentials were last presented. Refresh keeps it.
	AuthTime *jwt.NumericDate `json:"auth_time"`
}

// TokenService signs and verifies session tokens using RS256.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewTokenService creates a new TokenService reading PEM RSA keys from disk.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return &TokenService{privateKey: privateKey, publicKey: publicKey, issuer: issuer}, nil
}

// NewTokenServiceFromKey builds a TokenService from an in-memory key pair.
func NewTokenServiceFromKey(privateKey *rsa.PrivateKey, issuer string) *TokenService {
	return &TokenService{privateKey: privateKey, publicKey: &privateKey.PublicKey, issuer: issuer}
}

// IssueToken signs claims valid for timeToLive from issuedAt.
//
// A fresh token id (jti) is always assigned; it is the handle used for
// invalidation. Returns the signed token and the claims actually signed.
func (service *TokenService) IssueToken(claims SessionClaims, issuedAt time.Time, timeToLive time.Duration) (string, *SessionClaims, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.New(),
		Subject:   claims.PrincipalID,
		Issuer:    service.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(timeToLive)),
	}
	if claims.AuthTime == nil {
		claims.AuthTime = jwt.NewNumericDate(issuedAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", nil, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, &claims, nil
}

// VerifyToken checks signature, issuer and expiry.
// An expired but otherwise valid token yields [ErrTokenExpired].
func (service *TokenService) VerifyToken(tokenString string) (*SessionClaims, error) {
	claims, err := service.parse(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}
	return claims, nil
}

// ParseToken checks signature and issuer only; expiry is ignored.
// Refresh and logout use it to accept tokens past their access lifetime.
func (service *TokenService) ParseToken(tokenString string) (*SessionClaims, error) {
	claims, err := service.parse(tokenString, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}
	if claims.Issuer != service.issuer {
		return nil, fmt.Errorf("sec: unexpected issuer %q", claims.Issuer)
	}
	return claims, nil
}

func (service *TokenService) parse(tokenString string, options ...jwt.ParserOption) (*SessionClaims, error) {
	options = append(options,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(service.issuer),
	)

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return service.publicKey, nil
	}, options...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("sec: invalid token claims")
	}
	return claims, nil
}
