package utils

import (
	"testing"

	"campusfind/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUSN(t *testing.T) {
	assert.Equal(t, "4VM21CS001", NormalizeUSN("  4vm21cs001 "))
}

func TestSameName(t *testing.T) {
	assert.True(t, SameName("Jane Doe", "  jane   DOE "))
	assert.False(t, SameName("Jane Doe", "Jane"))
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, PairKey("u1", "u2"), PairKey("u2", "u1"))
	assert.NotEqual(t, PairKey("u1", "u2"), PairKey("u1", "u3"))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, items, Paginate(items, Pagination{}))
	assert.Equal(t, []int{3, 4}, Paginate(items, Pagination{Page: 2, Limit: 2}))
	assert.Equal(t, []int{5}, Paginate(items, Pagination{Page: 3, Limit: 2}))
	assert.Empty(t, Paginate(items, Pagination{Page: 4, Limit: 2}))
}

func TestToken(t *testing.T) {
	config.GlobalConfig.JWT.Secret = "test-secret-key-with-at-least-32-chars"
	config.GlobalConfig.JWT.Expire = 1

	token, exp, err := GenerateToken("u1", RoleUser)
	require.NoError(t, err)
	require.NotNil(t, exp)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, RoleUser, claims.Role)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)

	config.GlobalConfig.JWT.Secret = "another-secret-key-with-32-or-more-chars"
	_, err = ParseToken(token)
	assert.Error(t, err)
}
