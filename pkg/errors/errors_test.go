package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	typed := Clone(ErrInvalidState, "enrollment is not a lead")
	wrapped := fmt.Errorf("activate: %w", typed)

	got := FromError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "INVALID_STATE", got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
	assert.Equal(t, "enrollment is not a lead", got.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	got := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.True(t, stdErrors.Is(got, sql.ErrConnDone))
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrOutOfRange, "lesson start date outside course")
	assert.Equal(t, "value outside allowed range", ErrOutOfRange.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, clone.Status)
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("create freeze: %w", Clone(ErrConflict, "active freeze exists"))
	assert.True(t, Is(err, ErrConflict))
	assert.False(t, Is(err, ErrNotFound))
	assert.False(t, Is(sql.ErrNoRows, ErrNotFound))
}

func TestWrapAsKeepsCause(t *testing.T) {
	err := WrapAs(sql.ErrTxDone, ErrInternal, "failed to activate enrollment")
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "failed to activate enrollment: sql: transaction has already been committed or rolled back", err.Error())
	assert.True(t, stdErrors.Is(err, sql.ErrTxDone))
}
