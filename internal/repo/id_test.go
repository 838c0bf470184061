package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/internal/domain"
)

func TestGenerateID_SkipsTakenIDs(t *testing.T) {
	calls := 0
	id, err := generateID(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	})

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 3, calls)
}

func TestGenerateID_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := generateID(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})

	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Equal(t, maxIDAttempts, calls)
}

func TestGenerateID_LookupError(t *testing.T) {
	boom := errors.New("store offline")
	_, err := generateID(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
}
