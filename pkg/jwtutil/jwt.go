package jwtutil

import (
	"errors"
	"fmt"
	"shiftpool-service/pkg/config"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtConfig *config.JWTConfig

// TenantClaims extends jwt.RegisteredClaims to include tenant information.
// Tenant fields are empty for freelancer tokens: freelancers authenticate
// without a tenant scope and gain one only when a tenant provisions them.
type TenantClaims struct {
	Email      string  `json:"email"`
	UID        string  `json:"uid"`
	TenantID   *string `json:"tenant_id,omitempty"`
	TenantName string  `json:"tenant_name,omitempty"`
	Role       string  `json:"role,omitempty"`
	Freelancer bool    `json:"freelancer,omitempty"`
	jwt.RegisteredClaims
}

// Initialize sets up the JWT utility with configuration
func Initialize(config *config.JWTConfig) {
	jwtConfig = config
}

// GenerateFreelancerToken creates a new JWT token for a pool worker without
// tenant scope
func GenerateFreelancerToken(email, uid string) (string, error) {
	return generateTokenWithClaims(email, uid, nil, "", "", true)
}

// GenerateTokenWithTenant creates a new JWT token with tenant context
func GenerateTokenWithTenant(email, uid string, tenantID *string, tenantName, role string) (string, error) {
	return generateTokenWithClaims(email, uid, tenantID, tenantName, role, false)
}

// generateTokenWithClaims is a helper function that creates a token with the given claims
func generateTokenWithClaims(email, uid string, tenantID *string, tenantName, role string, freelancer bool) (string, error) {
	if jwtConfig == nil {
		return "", errors.New("JWT configuration not initialized")
	}

	// Get signing key from configuration
	signingKey := jwtConfig.SigningKey

	// Token expiration time from configuration
	expirationHours := jwtConfig.ExpirationHours

	// Create the claims
	claims := &TenantClaims{
		Email:      email,
		UID:        uid,
		TenantID:   tenantID,
		TenantName: tenantName,
		Role:       role,
		Freelancer: freelancer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	// Create token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// Generate encoded token
	return token.SignedString([]byte(signingKey))
}

// ValidateToken validates the token and returns the claims
func ValidateToken(tokenString string) (*TenantClaims, error) {
	if jwtConfig == nil {
		return nil, errors.New("JWT configuration not initialized")
	}

	// Get signing key from configuration
	signingKey := jwtConfig.SigningKey

	// Parse the token
	token, err := jwt.ParseWithClaims(
		tokenString,
		&TenantClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(signingKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	// Validate the token and extract claims
	if claims, ok := token.Claims.(*TenantClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
