package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOperationExactMatch(t *testing.T) {
	op, err := ResolveOperation("/api/v4/lottery/draw")
	require.NoError(t, err)
	assert.Equal(t, "LOTTERY_DRAW", op)
}

func TestResolveOperationNormalized(t *testing.T) {
	op, err := ResolveOperation("/api/v4/activities/SPRING2026/draw")
	require.NoError(t, err)
	assert.Equal(t, "LOTTERY_DRAW", op)

	op, err = ResolveOperation("/api/v4/orders/991/cancel")
	require.NoError(t, err)
	assert.Equal(t, "ORDER_CANCEL", op)
}

func TestResolveOperationVersionIndependent(t *testing.T) {
	for _, path := range []string{"/api/v2/lottery/draw", "/api/v3/lottery/draw", "/api/v4/lottery/draw"} {
		op, err := ResolveOperation(path)
		require.NoError(t, err)
		assert.Equal(t, "LOTTERY_DRAW", op, path)
	}
}

func TestResolveOperationTrailingSlash(t *testing.T) {
	op, err := ResolveOperation("/api/v4/lottery/draw/")
	require.NoError(t, err)
	assert.Equal(t, "LOTTERY_DRAW", op)
}

func TestResolveOperationUnmappedIsConfigurationDefect(t *testing.T) {
	_, err := ResolveOperation("/api/v4/not/a/registered/write")
	require.Error(t, err)

	ie, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindOperationNotMapped, ie.Kind)
	assert.Equal(t, 500, ie.Status)
}

func TestResolveOperationEmptyPathPassthrough(t *testing.T) {
	op, err := ResolveOperation("")
	require.NoError(t, err)
	assert.Empty(t, op)
}
