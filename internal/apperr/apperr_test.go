package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/apperr"
)

func TestError_MatchesSentinelAndKind(t *testing.T) {
	errCartMissing := apperr.New(apperr.ErrNotFound, "cart not found")
	wrapped := fmt.Errorf("service: failed to load cart: %w", errCartMissing)

	assert.ErrorIs(t, wrapped, errCartMissing)
	assert.ErrorIs(t, wrapped, apperr.ErrNotFound)
	assert.NotErrorIs(t, wrapped, apperr.ErrInvalidState)
	assert.Equal(t, apperr.ErrNotFound, apperr.Kind(wrapped))

	msg, ok := apperr.Message(wrapped)
	require.True(t, ok)
	assert.Equal(t, "cart not found", msg)
}

func TestKind_StoreFailureHasNoKind(t *testing.T) {
	err := fmt.Errorf("repository: failed to insert order: %w", errors.New("connection reset"))

	assert.Nil(t, apperr.Kind(err))
	_, ok := apperr.Message(err)
	assert.False(t, ok)
}
