package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStringIncludesDetails(t *testing.T) {
	err := Validation("invalid event draft", "title too short", "category unknown")
	assert.Equal(t, "invalid event draft: title too short; category unknown", err.Error())
}

func TestIsMatchesKindAndCode(t *testing.T) {
	err := Conflict(ReasonAlreadyDecided, "event has already been decided")

	assert.True(t, errors.Is(err, &Error{Kind: KindConflict}))
	assert.True(t, errors.Is(err, &Error{Kind: KindConflict, Code: ReasonAlreadyDecided}))
	assert.False(t, errors.Is(err, &Error{Kind: KindConflict, Code: ReasonCapacityExceeded}))
	assert.False(t, errors.Is(err, &Error{Kind: KindNotFound}))
}

func TestDependencyKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency("failed to store event", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to store event", err.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("event not found")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", NotFound("gone"))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
