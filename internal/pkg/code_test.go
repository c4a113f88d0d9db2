package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResetCodeIsSixDigits(t *testing.T) {
	code, err := NewResetCode()
	require.NoError(t, err)
	assert.Len(t, code, ResetCodeLength)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestNotificationKeyIsPerUser(t *testing.T) {
	assert.Equal(t, "user:42", NotificationKey(42))
	assert.NotEqual(t, NotificationKey(1), NotificationKey(2))
}
