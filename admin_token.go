package main

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const adminTokenValidity = 12 * time.Hour

// AdminTokenCreator issues and verifies the short-lived session tokens
// handed out after a successful admin login.
type AdminTokenCreator struct {
	privateKey *rsa.PrivateKey
	issuerId   string
}

func NewAdminTokenCreator(privateKeyPath string, issuerId string) (*AdminTokenCreator, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
	if err != nil {
		return nil, err
	}

	return &AdminTokenCreator{
		privateKey: privateKey,
		issuerId:   issuerId,
	}, nil
}

func (c *AdminTokenCreator) CreateAdminJwt(username string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    c.issuerId,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenValidity)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(c.privateKey)
}

// ParseAdminJwt verifies the token signature and expiry and returns its
// claims.
func (c *AdminTokenCreator) ParseAdminJwt(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &c.privateKey.PublicKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
