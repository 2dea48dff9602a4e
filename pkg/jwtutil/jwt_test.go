package jwtutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftpool-service/pkg/config"
)

func initTestConfig() {
	Initialize(&config.JWTConfig{SigningKey: "unit-test-key", ExpirationHours: 1})
}

func TestTenantTokenRoundTrip(t *testing.T) {
	initTestConfig()

	tenantID := "tnt_acme"
	token, err := GenerateTokenWithTenant("manager@acme.test", "usr_manager", &tenantID, "Acme Events", "manager")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "manager@acme.test", claims.Email)
	assert.Equal(t, "usr_manager", claims.UID)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, tenantID, *claims.TenantID)
	assert.Equal(t, "Acme Events", claims.TenantName)
	assert.Equal(t, "manager", claims.Role)
	assert.False(t, claims.Freelancer)
}

func TestFreelancerTokenHasNoTenant(t *testing.T) {
	initTestConfig()

	token, err := GenerateFreelancerToken("free@pool.test", "usr_free")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.Freelancer)
	assert.Nil(t, claims.TenantID)
	assert.Empty(t, claims.TenantName)
	assert.Empty(t, claims.Role)
}

func TestTamperedTokenRejected(t *testing.T) {
	initTestConfig()

	token, err := GenerateFreelancerToken("free@pool.test", "usr_free")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged := parts[0] + "." + parts[1] + ".forgedsignature"

	_, err = ValidateToken(forged)
	assert.Error(t, err)
}

func TestWrongKeyRejected(t *testing.T) {
	initTestConfig()
	token, err := GenerateFreelancerToken("free@pool.test", "usr_free")
	require.NoError(t, err)

	Initialize(&config.JWTConfig{SigningKey: "a-different-key", ExpirationHours: 1})
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestUninitializedConfig(t *testing.T) {
	Initialize(nil)
	defer initTestConfig()

	_, err := GenerateFreelancerToken("free@pool.test", "usr_free")
	assert.Error(t, err)
	_, err = ValidateToken("whatever")
	assert.Error(t, err)
}
